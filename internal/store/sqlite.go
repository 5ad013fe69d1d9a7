package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"contactreport/internal/model"

	"golang.org/x/oauth2"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no cached token exists for an account.
var ErrNotFound = errors.New("store: not found")

const activeAccountKey = "active_account"

// SQLiteStore implements auth.TokenCache backed by a local SQLite database.
// It holds credentials only; contacts are never persisted.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given path and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS tokens (
	account_id TEXT PRIMARY KEY,
	username   TEXT NOT NULL DEFAULT '',
	tenant_id  TEXT NOT NULL DEFAULT '',
	token_json TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveToken inserts or replaces the token cached for acct.
func (s *SQLiteStore) SaveToken(ctx context.Context, acct model.Account, tok *oauth2.Token) error {
	if acct.ID == "" {
		return errors.New("store: account id is required")
	}
	if tok == nil {
		return errors.New("store: token is required")
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tokens (account_id, username, tenant_id, token_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			username   = excluded.username,
			tenant_id  = excluded.tenant_id,
			token_json = excluded.token_json,
			updated_at = excluded.updated_at
	`, acct.ID, acct.Username, acct.TenantID, string(raw), time.Now().UTC().Format(time.RFC3339))
	return err
}

// LoadToken returns the cached account and token, or ErrNotFound.
func (s *SQLiteStore) LoadToken(ctx context.Context, accountID string) (model.Account, *oauth2.Token, error) {
	var (
		acct model.Account
		raw  string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT account_id, username, tenant_id, token_json FROM tokens WHERE account_id = ?", accountID).
		Scan(&acct.ID, &acct.Username, &acct.TenantID, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, nil, ErrNotFound
	}
	if err != nil {
		return model.Account{}, nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return model.Account{}, nil, fmt.Errorf("decode token for %s: %w", accountID, err)
	}
	return acct, &tok, nil
}

func (s *SQLiteStore) DeleteToken(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM tokens WHERE account_id = ?", accountID)
	return err
}

// GetActiveAccount returns the active account id, or "" when none is set.
func (s *SQLiteStore) GetActiveAccount(ctx context.Context) (string, error) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", activeAccountKey).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

func (s *SQLiteStore) SetActiveAccount(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, activeAccountKey, accountID)
	return err
}

func (s *SQLiteStore) ClearActiveAccount(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM metadata WHERE key = ?", activeAccountKey)
	return err
}
