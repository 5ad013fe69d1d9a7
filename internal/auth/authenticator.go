package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"contactreport/internal/apperr"
	"contactreport/internal/config"
	"contactreport/internal/logging"
	"contactreport/internal/model"
	"contactreport/internal/store"
)

// TokenCache persists credentials between runs. *store.SQLiteStore
// implements it.
type TokenCache interface {
	SaveToken(ctx context.Context, acct model.Account, tok *oauth2.Token) error
	LoadToken(ctx context.Context, accountID string) (model.Account, *oauth2.Token, error)
	DeleteToken(ctx context.Context, accountID string) error
	GetActiveAccount(ctx context.Context) (string, error)
	SetActiveAccount(ctx context.Context, accountID string) error
	ClearActiveAccount(ctx context.Context) error
}

// Authenticator signs users in against Entra ID and hands out access tokens
// from the cached session.
type Authenticator struct {
	cfg         *config.Config
	oauth       *oauth2.Config
	cache       TokenCache
	httpClient  *http.Client
	openBrowser func(string) error
	log         *zap.Logger

	mu sync.Mutex // serializes silent refreshes
}

type Option func(*Authenticator)

// WithHTTPClient sets the client used for token endpoint calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *Authenticator) { a.httpClient = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Authenticator) { a.log = logging.OrNop(l) }
}

// WithBrowserOpener replaces OpenBrowser, mostly for tests.
func WithBrowserOpener(fn func(string) error) Option {
	return func(a *Authenticator) { a.openBrowser = fn }
}

func New(cfg *config.Config, cache TokenCache, opts ...Option) *Authenticator {
	a := &Authenticator{
		cfg:         cfg,
		oauth:       NewOAuthConfig(cfg),
		cache:       cache,
		httpClient:  http.DefaultClient,
		openBrowser: OpenBrowser,
		log:         zap.NewNop(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

var errNotSignedIn = apperr.New(apperr.CodeAuthenticationRequired, "Please log in first.")

// Login runs the interactive flow, caches the token and makes the account
// active.
func (a *Authenticator) Login(ctx context.Context, in Interaction) (model.Account, error) {
	tok, err := a.interactiveToken(ctx, in)
	if err != nil {
		return model.Account{}, err
	}
	acct, err := accountFromToken(tok)
	if err != nil {
		return model.Account{}, err
	}
	if err := a.cache.SaveToken(ctx, acct, tok); err != nil {
		return model.Account{}, fmt.Errorf("cache token: %w", err)
	}
	if err := a.cache.SetActiveAccount(ctx, acct.ID); err != nil {
		return model.Account{}, fmt.Errorf("set active account: %w", err)
	}
	a.log.Info("signed in", zap.String("account", acct.Username), zap.String("tenant", acct.TenantID))
	return acct, nil
}

// ActiveAccount returns the account of the cached session, if any.
func (a *Authenticator) ActiveAccount(ctx context.Context) (model.Account, bool, error) {
	id, err := a.cache.GetActiveAccount(ctx)
	if err != nil {
		return model.Account{}, false, err
	}
	if id == "" {
		return model.Account{}, false, nil
	}
	acct, _, err := a.cache.LoadToken(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Account{}, false, nil
	}
	if err != nil {
		return model.Account{}, false, err
	}
	return acct, true, nil
}

// AccessToken returns a valid access token for the active account,
// refreshing it silently when expired. It never prompts.
func (a *Authenticator) AccessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, err := a.cache.GetActiveAccount(ctx)
	if err != nil {
		return "", fmt.Errorf("read active account: %w", err)
	}
	if id == "" {
		return "", errNotSignedIn
	}
	acct, tok, err := a.cache.LoadToken(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return "", errNotSignedIn
	}
	if err != nil {
		return "", fmt.Errorf("load cached token: %w", err)
	}
	if tok.Valid() {
		return tok.AccessToken, nil
	}

	refreshCtx := context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	fresh, err := a.oauth.TokenSource(refreshCtx, tok).Token()
	if err != nil {
		a.log.Warn("silent token refresh failed", zap.String("account", acct.Username), zap.Error(err))
		return "", apperr.Wrap(err, apperr.CodeAuthenticationRequired, "Session expired. Please log in again.")
	}
	if err := a.cache.SaveToken(ctx, acct, fresh); err != nil {
		a.log.Warn("cache refreshed token", zap.Error(err))
	}
	return fresh.AccessToken, nil
}

// Logout forgets the active session and, when configured, opens the tenant's
// sign-out page.
func (a *Authenticator) Logout(ctx context.Context) error {
	id, err := a.cache.GetActiveAccount(ctx)
	if err != nil {
		return fmt.Errorf("read active account: %w", err)
	}
	if id != "" {
		if err := a.cache.DeleteToken(ctx, id); err != nil {
			return fmt.Errorf("delete cached token: %w", err)
		}
	}
	if err := a.cache.ClearActiveAccount(ctx); err != nil {
		return fmt.Errorf("clear active account: %w", err)
	}
	if a.cfg.LogoutInBrowser {
		if err := a.openBrowser(LogoutURL(a.cfg)); err != nil {
			a.log.Warn("open logout page failed", zap.Error(err))
		}
	}
	a.log.Info("signed out", zap.String("account_id", id))
	return nil
}
