package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"contactreport/internal/apperr"
	"contactreport/internal/auth"
	"contactreport/internal/contacts"
	"contactreport/internal/logging"
	"contactreport/internal/model"
	"contactreport/internal/report"
)

// State is the sign-in state of the controller.
type State int

const (
	LoggedOut State = iota
	LoggingIn
	LoggedIn
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "logged out"
	case LoggingIn:
		return "logging in"
	case LoggedIn:
		return "logged in"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Authenticator is the identity provider as seen by the controller.
// *auth.Authenticator implements it.
type Authenticator interface {
	Login(ctx context.Context, in auth.Interaction) (model.Account, error)
	Logout(ctx context.Context) error
	ActiveAccount(ctx context.Context) (model.Account, bool, error)
}

// GraphAPI is the part of the Graph client the controller drives.
// *graph.Client implements it.
type GraphAPI interface {
	ListContacts(ctx context.Context) ([]model.Contact, error)
	report.MailSender
}

// LoadResult is what a successful sign-in hands to the UI.
type LoadResult struct {
	Account   model.Account
	Contacts  []model.Contact // full collection, empty if FetchErr is set
	Companies []string
	FetchErr  error // the initial fetch failed; the session is still signed in
}

// Controller owns the session state and the contact collection.
type Controller struct {
	auth  Authenticator
	api   GraphAPI
	store *contacts.Store
	log   *zap.Logger

	mu      sync.Mutex
	state   State
	account model.Account
}

func NewController(a Authenticator, api GraphAPI, store *contacts.Store, log *zap.Logger) *Controller {
	if store == nil {
		store = contacts.NewStore()
	}
	return &Controller{
		auth:  a,
		api:   api,
		store: store,
		log:   logging.OrNop(log),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Account returns the signed-in account, if any.
func (c *Controller) Account() (model.Account, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.account, c.state == LoggedIn
}

// Store exposes the contact collection for filtering and display.
func (c *Controller) Store() *contacts.Store {
	return c.store
}

// Login signs in interactively, then fetches contacts and the company
// options. A second Login while one is running fails with
// apperr.CodeLoginInProgress.
func (c *Controller) Login(ctx context.Context, in auth.Interaction) (*LoadResult, error) {
	c.mu.Lock()
	if c.state == LoggingIn {
		c.mu.Unlock()
		return nil, apperr.New(apperr.CodeLoginInProgress, "Login already in progress.")
	}
	prev := c.state
	c.state = LoggingIn
	c.mu.Unlock()

	acct, err := c.auth.Login(ctx, in)
	if err != nil {
		c.mu.Lock()
		// A previous session stays cached in the identity layer, so fall back
		// to it rather than dropping to LoggedOut.
		if prev == LoggedIn {
			c.state = LoggedIn
		} else {
			c.state = LoggedOut
		}
		c.mu.Unlock()
		c.log.Error("Login failed", zap.Error(err))
		return nil, apperr.Wrap(err, apperr.CodeAuthenticationRequired, "Login failed.")
	}

	c.mu.Lock()
	c.state = LoggedIn
	c.account = acct
	c.mu.Unlock()

	return c.load(ctx, acct), nil
}

// Resume adopts a session cached by an earlier run, if one exists, and
// loads contacts for it.
func (c *Controller) Resume(ctx context.Context) (*LoadResult, bool, error) {
	acct, ok, err := c.auth.ActiveAccount(ctx)
	if err != nil {
		c.log.Error("read cached session", zap.Error(err))
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	c.mu.Lock()
	if c.state == LoggingIn {
		c.mu.Unlock()
		return nil, false, apperr.New(apperr.CodeLoginInProgress, "Login already in progress.")
	}
	c.state = LoggedIn
	c.account = acct
	c.mu.Unlock()

	c.log.Info("resumed cached session", zap.String("account", acct.Username))
	return c.load(ctx, acct), true, nil
}

func (c *Controller) load(ctx context.Context, acct model.Account) *LoadResult {
	res := &LoadResult{Account: acct}
	all, err := c.FetchAndDisplay(ctx)
	if err != nil {
		res.FetchErr = err
		res.Contacts = c.store.All()
	} else {
		res.Contacts = all
	}
	res.Companies = contacts.Companies(res.Contacts)
	return res
}

// FetchAndDisplay replaces the collection with a fresh fetch and returns it.
// On failure the collection is left as it was.
func (c *Controller) FetchAndDisplay(ctx context.Context) ([]model.Contact, error) {
	fetched, err := c.api.ListContacts(ctx)
	if err != nil {
		c.log.Error("Error fetching contacts", zap.Error(err))
		return nil, apperr.Wrap(err, apperr.CodeAPICallFailed, "Failed to fetch tenant contacts.")
	}
	c.store.Replace(fetched)
	c.log.Info("contacts fetched", zap.Int("count", len(fetched)))
	return c.store.All(), nil
}

// Logout ends the session and clears the contact collection.
func (c *Controller) Logout(ctx context.Context) error {
	if err := c.auth.Logout(ctx); err != nil {
		c.log.Error("Logout failed", zap.Error(err))
		return apperr.Wrap(err, apperr.CodeInternal, "Logout failed.")
	}
	c.mu.Lock()
	c.state = LoggedOut
	c.account = model.Account{}
	c.mu.Unlock()
	c.store.Clear()
	return nil
}

// View applies f to the current collection.
func (c *Controller) View(f contacts.Filter) []model.Contact {
	return c.store.Apply(f)
}

// SendReport mails the report of view to recipient.
func (c *Controller) SendReport(ctx context.Context, recipient string, view []model.Contact) error {
	if err := report.SendMail(ctx, c.api, recipient, report.Build(view)); err != nil {
		c.log.Error("Error sending report", zap.String("recipient", recipient), zap.Error(err))
		return err
	}
	c.log.Info("report sent", zap.String("recipient", recipient), zap.Int("rows", len(view)))
	return nil
}

// DownloadReport writes Contact_Report.csv for view into dir.
func (c *Controller) DownloadReport(dir string, view []model.Contact) (string, error) {
	path, err := report.SaveCSV(dir, report.Build(view))
	if err != nil {
		c.log.Warn("report not saved", zap.Error(err))
		return "", err
	}
	c.log.Info("report saved", zap.String("path", path), zap.Int("rows", len(view)))
	return path, nil
}
