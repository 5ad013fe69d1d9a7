package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Interaction connects the interactive login to whatever is driving it
// (the TUI or the terminal).
type Interaction struct {
	// ShowURL receives the authorization URL once the loopback listener is up.
	ShowURL func(authURL string)
	// Pasted delivers a manually pasted auth code or full redirect URL, for
	// when the browser cannot reach the loopback listener. Nil disables it.
	Pasted <-chan string
}

type codeResult struct {
	code string
	err  error
}

// interactiveToken runs the authorization code + PKCE flow. A loopback HTTP
// server captures the redirect; a pasted code or URL is accepted as well.
func (a *Authenticator) interactiveToken(ctx context.Context, in Interaction) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", a.cfg.RedirectPort))
	if err != nil {
		return nil, fmt.Errorf("listen on loopback: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	// Copy so concurrent callers never see each other's redirect.
	oc := *a.oauth
	oc.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/", port)

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	resCh := make(chan codeResult, 1)
	srv := &http.Server{
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           redirectRouter(state, resCh),
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := oc.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	if in.ShowURL != nil {
		in.ShowURL(authURL)
	}
	if a.cfg.OpenBrowser {
		if err := a.openBrowser(authURL); err != nil {
			a.log.Warn("open browser failed", zap.Error(err))
		}
	}
	a.log.Info("waiting for authorization redirect", zap.String("redirect", oc.RedirectURL))

	var code string
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-resCh:
		if r.err != nil {
			return nil, r.err
		}
		code = r.code
	case input, ok := <-in.Pasted:
		if !ok {
			return nil, errors.New("login input closed")
		}
		code, err = codeFromInput(input, state)
		if err != nil {
			return nil, err
		}
	}

	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	tok, err := oc.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	return tok, nil
}

func redirectRouter(state string, resCh chan<- codeResult) http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		// Entra echoes state on error redirects too; without it the request
		// is not ours and must not end the login.
		if q.Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			return
		}
		if e := q.Get("error"); e != "" {
			desc := q.Get("error_description")
			http.Error(w, "Sign-in failed: "+e, http.StatusBadRequest)
			deliver(resCh, codeResult{err: fmt.Errorf("authorization failed: %s: %s", e, desc)})
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "Missing 'code' parameter", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Authentication complete. You can close this window.")
		deliver(resCh, codeResult{code: code})
	})
	return r
}

func deliver(resCh chan<- codeResult, r codeResult) {
	select {
	case resCh <- r:
	default:
	}
}

// codeFromInput accepts either a bare code or the full redirect URL. A URL
// carrying a state must carry ours.
func codeFromInput(input, state string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("empty authorization code")
	}
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return input, nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("parse redirect URL: %w", err)
	}
	q := u.Query()
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("authorization failed: %s: %s", e, q.Get("error_description"))
	}
	if s := q.Get("state"); s != "" && s != state {
		return "", errors.New("state in pasted URL does not match this login")
	}
	c := q.Get("code")
	if c == "" {
		return "", errors.New("no 'code' parameter found in pasted URL")
	}
	return c, nil
}
