package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"contactreport/internal/model"

	"golang.org/x/oauth2"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadToken(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	acct := model.Account{ID: "oid-1", Username: "admin@contoso.com", TenantID: "tid"}
	expiry := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	tok := &oauth2.Token{AccessToken: "at-1", RefreshToken: "rt-1", TokenType: "Bearer", Expiry: expiry}
	if err := s.SaveToken(ctx, acct, tok); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	gotAcct, gotTok, err := s.LoadToken(ctx, "oid-1")
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if gotAcct != acct {
		t.Fatalf("account = %+v; want %+v", gotAcct, acct)
	}
	if gotTok.AccessToken != "at-1" || gotTok.RefreshToken != "rt-1" || !gotTok.Expiry.Equal(expiry) {
		t.Fatalf("token round trip mismatch: %+v", gotTok)
	}

	// Save should replace the existing row
	tok.AccessToken = "at-2"
	if err := s.SaveToken(ctx, acct, tok); err != nil {
		t.Fatalf("SaveToken update: %v", err)
	}
	_, gotTok, _ = s.LoadToken(ctx, "oid-1")
	if gotTok.AccessToken != "at-2" {
		t.Fatalf("save did not replace token, got %q", gotTok.AccessToken)
	}
	var rows int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tokens").Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 token row, got %d", rows)
	}
}

func TestLoadTokenMissing(t *testing.T) {
	s := testStore(t)
	_, _, err := s.LoadToken(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveTokenValidation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.SaveToken(ctx, model.Account{}, &oauth2.Token{}); err == nil {
		t.Fatal("expected error for empty account id")
	}
	if err := s.SaveToken(ctx, model.Account{ID: "x"}, nil); err == nil {
		t.Fatal("expected error for nil token")
	}
}

func TestDeleteToken(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.SaveToken(ctx, model.Account{ID: "a"}, &oauth2.Token{AccessToken: "1"})
	s.SaveToken(ctx, model.Account{ID: "b"}, &oauth2.Token{AccessToken: "2"})
	if err := s.DeleteToken(ctx, "a"); err != nil {
		t.Fatalf("DeleteToken: %v", err)
	}
	if _, _, err := s.LoadToken(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted token to be gone, got %v", err)
	}
	if _, tok, err := s.LoadToken(ctx, "b"); err != nil || tok.AccessToken != "2" {
		t.Fatalf("expected other token to survive, got %v %v", tok, err)
	}
}

func TestActiveAccount(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.GetActiveAccount(ctx)
	if err != nil {
		t.Fatalf("GetActiveAccount: %v", err)
	}
	if id != "" {
		t.Fatalf("expected empty, got %q", id)
	}

	if err := s.SetActiveAccount(ctx, "oid-1"); err != nil {
		t.Fatalf("SetActiveAccount: %v", err)
	}
	id, _ = s.GetActiveAccount(ctx)
	if id != "oid-1" {
		t.Fatalf("expected oid-1, got %q", id)
	}

	// Update
	s.SetActiveAccount(ctx, "oid-2")
	id, _ = s.GetActiveAccount(ctx)
	if id != "oid-2" {
		t.Fatalf("expected oid-2, got %q", id)
	}

	if err := s.ClearActiveAccount(ctx); err != nil {
		t.Fatalf("ClearActiveAccount: %v", err)
	}
	id, _ = s.GetActiveAccount(ctx)
	if id != "" {
		t.Fatalf("expected empty after clear, got %q", id)
	}
}
