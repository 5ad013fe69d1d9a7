package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"contactreport/internal/apperr"
	"contactreport/internal/auth"
	"contactreport/internal/contacts"
	"contactreport/internal/model"
	"contactreport/internal/report"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var alice = model.Account{ID: "oid-1", Username: "alice@contoso.com", TenantID: "tenant-1"}

type fakeAuth struct {
	mu       sync.Mutex
	gate     chan struct{} // when set, Login blocks until it is closed
	entered  chan struct{}
	loginErr error
	active   *model.Account
	logouts  int
}

func (f *fakeAuth) Login(ctx context.Context, _ auth.Interaction) (model.Account, error) {
	if f.entered != nil {
		close(f.entered)
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return model.Account{}, ctx.Err()
		}
	}
	if f.loginErr != nil {
		return model.Account{}, f.loginErr
	}
	f.mu.Lock()
	a := alice
	f.active = &a
	f.mu.Unlock()
	return alice, nil
}

func (f *fakeAuth) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = nil
	f.logouts++
	return nil
}

func (f *fakeAuth) ActiveAccount(context.Context) (model.Account, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		return model.Account{}, false, nil
	}
	return *f.active, true, nil
}

type sentMail struct {
	to, subject, html string
}

type fakeGraph struct {
	mu       sync.Mutex
	contacts []model.Contact
	listErr  error
	sendErr  error
	sent     []sentMail
}

func (g *fakeGraph) ListContacts(context.Context) ([]model.Contact, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.contacts, nil
}

func (g *fakeGraph) SendHTMLMail(_ context.Context, to, subject, html string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return g.sendErr
	}
	g.sent = append(g.sent, sentMail{to, subject, html})
	return nil
}

func tenantContacts() []model.Contact {
	return []model.Contact{
		{DisplayName: model.Str("Ann"), Mail: model.Str("ann@x.com"), CompanyName: model.Str("Acme")},
		{DisplayName: model.Str("Bob"), Mail: nil, CompanyName: model.Str("Beta")},
		{DisplayName: model.Str("Cy"), Mail: model.Str("cy@x.com"), CompanyName: model.Str("Acme")},
	}
}

func TestLoginFetchesContactsAndCompanies(t *testing.T) {
	fa := &fakeAuth{}
	fg := &fakeGraph{contacts: tenantContacts()}
	c := NewController(fa, fg, nil, nil)
	assert.Equal(t, LoggedOut, c.State())

	res, err := c.Login(context.Background(), auth.Interaction{})
	require.NoError(t, err)
	require.NoError(t, res.FetchErr)
	assert.Equal(t, alice, res.Account)
	assert.Len(t, res.Contacts, 3)
	assert.Equal(t, []string{"Acme", "Beta"}, res.Companies)
	assert.Equal(t, LoggedIn, c.State())

	acct, ok := c.Account()
	assert.True(t, ok)
	assert.Equal(t, alice, acct)
	assert.Equal(t, 3, c.Store().Len())
}

func TestLoginFailureReturnsToLoggedOut(t *testing.T) {
	fa := &fakeAuth{loginErr: errors.New("user cancelled")}
	c := NewController(fa, &fakeGraph{}, nil, nil)

	_, err := c.Login(context.Background(), auth.Interaction{})
	require.Error(t, err)
	assert.Equal(t, "Login failed.", apperr.UserMessage(err))
	assert.Equal(t, LoggedOut, c.State())
	_, ok := c.Account()
	assert.False(t, ok)
}

func TestLoginIsExclusive(t *testing.T) {
	fa := &fakeAuth{gate: make(chan struct{}), entered: make(chan struct{})}
	c := NewController(fa, &fakeGraph{contacts: tenantContacts()}, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Login(context.Background(), auth.Interaction{})
		done <- err
	}()
	<-fa.entered
	assert.Equal(t, LoggingIn, c.State())

	_, err := c.Login(context.Background(), auth.Interaction{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrLoginInProgress)

	close(fa.gate)
	require.NoError(t, <-done)
	assert.Equal(t, LoggedIn, c.State())
}

func TestLoginFetchFailureKeepsSession(t *testing.T) {
	fa := &fakeAuth{}
	fg := &fakeGraph{listErr: errors.New("Graph API call failed: 403 Forbidden")}
	c := NewController(fa, fg, nil, nil)

	res, err := c.Login(context.Background(), auth.Interaction{})
	require.NoError(t, err)
	require.Error(t, res.FetchErr)
	assert.Equal(t, "Failed to fetch tenant contacts.", apperr.UserMessage(res.FetchErr))
	assert.Empty(t, res.Contacts)
	assert.Empty(t, res.Companies)
	assert.Equal(t, LoggedIn, c.State())
}

func TestResume(t *testing.T) {
	a := alice
	fa := &fakeAuth{active: &a}
	c := NewController(fa, &fakeGraph{contacts: tenantContacts()}, nil, nil)

	res, ok, err := c.Resume(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, alice, res.Account)
	assert.Len(t, res.Contacts, 3)
	assert.Equal(t, LoggedIn, c.State())
}

func TestResumeWithoutCachedSession(t *testing.T) {
	c := NewController(&fakeAuth{}, &fakeGraph{}, nil, nil)
	res, ok, err := c.Resume(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, res)
	assert.Equal(t, LoggedOut, c.State())
}

func TestFetchFailureLeavesCollectionUnchanged(t *testing.T) {
	fg := &fakeGraph{contacts: tenantContacts()}
	c := NewController(&fakeAuth{}, fg, nil, nil)
	_, err := c.FetchAndDisplay(context.Background())
	require.NoError(t, err)

	fg.mu.Lock()
	fg.listErr = &apperr.Error{Code: apperr.CodeAPICallFailed, Message: "Graph API call failed: 500 Internal Server Error"}
	fg.mu.Unlock()

	_, err = c.FetchAndDisplay(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAPICallFailed)
	assert.Equal(t, tenantContacts(), c.Store().All())
}

func TestFetchReplacesWholesale(t *testing.T) {
	fg := &fakeGraph{contacts: tenantContacts()}
	c := NewController(&fakeAuth{}, fg, nil, nil)
	_, err := c.FetchAndDisplay(context.Background())
	require.NoError(t, err)

	fg.mu.Lock()
	fg.contacts = []model.Contact{{DisplayName: model.Str("Dee"), CompanyName: model.Str("Gamma")}}
	fg.mu.Unlock()

	all, err := c.FetchAndDisplay(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, []string{"Gamma"}, c.Store().Companies())
}

func TestLogoutClearsCollection(t *testing.T) {
	fa := &fakeAuth{}
	c := NewController(fa, &fakeGraph{contacts: tenantContacts()}, nil, nil)
	_, err := c.Login(context.Background(), auth.Interaction{})
	require.NoError(t, err)

	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, LoggedOut, c.State())
	assert.Equal(t, 0, c.Store().Len())
	assert.False(t, c.Store().Loaded())
	assert.Equal(t, 1, fa.logouts)
}

func TestViewAppliesMostRecentFilter(t *testing.T) {
	c := NewController(&fakeAuth{}, &fakeGraph{contacts: tenantContacts()}, nil, nil)
	_, err := c.FetchAndDisplay(context.Background())
	require.NoError(t, err)

	acme := c.View(contacts.CompanyFilter("Acme"))
	assert.Len(t, acme, 2)

	// A search replaces the company filter rather than narrowing it.
	bob := c.View(contacts.SearchFilter("bob"))
	require.Len(t, bob, 1)
	assert.Equal(t, "Bob", bob[0].Name())
}

func TestSendReport(t *testing.T) {
	fg := &fakeGraph{contacts: tenantContacts()}
	c := NewController(&fakeAuth{}, fg, nil, nil)
	_, err := c.FetchAndDisplay(context.Background())
	require.NoError(t, err)

	view := c.View(contacts.CompanyFilter("Beta"))
	require.NoError(t, c.SendReport(context.Background(), "Admin@Contoso.COM", view))

	require.Len(t, fg.sent, 1)
	assert.Equal(t, "Admin@contoso.com", fg.sent[0].to)
	assert.Equal(t, report.MailSubject, fg.sent[0].subject)
	assert.Contains(t, fg.sent[0].html, "<td>Bob</td>")
	assert.Contains(t, fg.sent[0].html, "<td>N/A</td>")
	assert.NotContains(t, fg.sent[0].html, "Ann")
}

func TestSendReportBlankRecipient(t *testing.T) {
	fg := &fakeGraph{}
	c := NewController(&fakeAuth{}, fg, nil, nil)
	err := c.SendReport(context.Background(), "  ", tenantContacts())
	require.Error(t, err)
	assert.Equal(t, "Please provide an admin email.", apperr.UserMessage(err))
	assert.Empty(t, fg.sent)
}

func TestSendReportFailure(t *testing.T) {
	fg := &fakeGraph{sendErr: errors.New("boom")}
	c := NewController(&fakeAuth{}, fg, nil, nil)
	err := c.SendReport(context.Background(), "admin@contoso.com", tenantContacts())
	require.Error(t, err)
	assert.Equal(t, "Failed to send the report.", apperr.UserMessage(err))
}

func TestDownloadReport(t *testing.T) {
	dir := t.TempDir()
	c := NewController(&fakeAuth{}, &fakeGraph{}, nil, nil)

	_, err := c.DownloadReport(dir, nil)
	require.ErrorIs(t, err, report.ErrNoData)
	_, statErr := os.Stat(filepath.Join(dir, report.FileName))
	assert.True(t, os.IsNotExist(statErr))

	path, err := c.DownloadReport(dir, tenantContacts())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Name,Email,Company\nAnn,ann@x.com,Acme\nBob,N/A,Beta\nCy,cy@x.com,Acme\n", string(data))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "logged out", LoggedOut.String())
	assert.Equal(t, "logging in", LoggingIn.String())
	assert.Equal(t, "logged in", LoggedIn.String())
	assert.Equal(t, "State(7)", State(7).String())
}
