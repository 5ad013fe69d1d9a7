package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"contactreport/internal/apperr"
	"contactreport/internal/contacts"
	"contactreport/internal/logging"
	"contactreport/internal/model"
	"contactreport/internal/session"
)

type viewState int

const (
	viewLoading   viewState = iota
	viewAuth                // waiting for the browser redirect or a pasted code
	viewTable               // main contact table
	viewCompanies           // company picker
	viewRecipient           // admin email prompt
)

const statusTTL = 3 * time.Second

type Options struct {
	DownloadDir string
	Logger      *zap.Logger
}

type AppModel struct {
	// Core state
	ctrl        *session.Controller
	downloadDir string
	log         *zap.Logger
	status      string
	statusSeq   int

	// Auth flow. loginSeq numbers attempts so only the live one's result
	// tears the flow down.
	authURL     string
	loggingIn   bool
	loginSeq    int
	pasted      chan string
	cancelLogin context.CancelFunc
	codeInput   textinput.Model

	// View state machine
	view      viewState
	filter    contacts.Filter
	current   []model.Contact
	companies []string
	searching bool

	// Sub-models
	table          table.Model
	companyList    list.Model
	searchInput    textinput.Model
	recipientInput textinput.Model

	// Layout
	width, height int

	// Program reference for sending messages from goroutines
	program *tea.Program
}

// SetProgram stores a reference to the tea.Program so the login goroutine can
// hand the authorization URL back to the Update loop.
func (m *AppModel) SetProgram(p *tea.Program) {
	m.program = p
}

func NewAppModel(ctrl *session.Controller, opts Options) AppModel {
	ci := textinput.New()
	ci.Placeholder = "Paste auth code or redirect URL here"

	si := textinput.New()
	si.Prompt = "Search: "
	si.Placeholder = "name or email"

	ri := textinput.New()
	ri.Prompt = "Send to: "
	ri.Placeholder = "admin@contoso.com"

	return AppModel{
		ctrl:           ctrl,
		downloadDir:    opts.DownloadDir,
		log:            logging.OrNop(opts.Logger),
		status:         "Checking for a saved session...",
		view:           viewLoading,
		codeInput:      ci,
		table:          newContactTable(),
		companyList:    newCompanyList(),
		searchInput:    si,
		recipientInput: ri,
	}
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(resumeCmd(m.ctrl), textinput.Blink)
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(columnsFor(msg.Width))
		m.table.SetHeight(max(msg.Height-9, 3)) // header, search, footer, status
		m.companyList.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case resumeResultMsg:
		if msg.err != nil {
			m.view = viewTable
			return m, m.setStatus(apperr.UserMessage(msg.err))
		}
		if !msg.ok {
			return m, m.startLogin()
		}
		m.view = viewTable
		m.applyLoad(msg.res)
		if msg.res.FetchErr != nil {
			return m, m.setStatus(apperr.UserMessage(msg.res.FetchErr))
		}
		m.status = ""
		return m, nil

	case authURLMsg:
		m.authURL = string(msg)
		m.view = viewAuth
		return m, m.codeInput.Focus()

	case loginResultMsg:
		if msg.seq != m.loginSeq || !m.loggingIn {
			m.log.Debug("dropping result of a superseded login", zap.Int("seq", msg.seq), zap.Error(msg.err))
			return m, nil
		}
		m.endLogin()
		m.authURL = ""
		m.codeInput.Reset()
		m.codeInput.Blur()
		m.view = viewTable
		if msg.err != nil {
			m.log.Debug("login ended without a session", zap.Error(msg.err))
			if errors.Is(msg.err, context.Canceled) {
				return m, m.setStatus("Login cancelled.")
			}
			return m, m.setStatus(apperr.UserMessage(msg.err))
		}
		m.applyLoad(msg.res)
		if msg.res.FetchErr != nil {
			return m, m.setStatus("Login successful. " + apperr.UserMessage(msg.res.FetchErr))
		}
		return m, m.setStatus("Login successful.")

	case fetchResultMsg:
		if msg.err != nil {
			return m, m.setStatus(apperr.UserMessage(msg.err))
		}
		m.showFull(msg.contacts)
		return m, m.setStatus("Contacts refreshed.")

	case actionResultMsg:
		if msg.err != nil {
			m.log.Debug("action failed", zap.String("action", msg.action), zap.Error(msg.err))
			return m, m.setStatus(errorStyle.Render(apperr.UserMessage(msg.err)))
		}
		switch msg.action {
		case "send":
			return m, m.setStatus("Report sent!")
		case "download":
			return m, m.setStatus("Report saved to " + msg.detail)
		case "logout":
			m.showFull(nil)
			return m, m.setStatus("Logged out.")
		}
		return m, nil

	case clearStatusMsg:
		if int(msg) == m.statusSeq {
			m.status = ""
		}
		return m, nil
	}

	// Delegate to active sub-model
	var cmd tea.Cmd
	switch m.view {
	case viewAuth:
		m.codeInput, cmd = m.codeInput.Update(msg)
	case viewTable:
		if m.searching {
			m.searchInput, cmd = m.searchInput.Update(msg)
		} else {
			m.table, cmd = m.table.Update(msg)
		}
	case viewCompanies:
		m.companyList, cmd = m.companyList.Update(msg)
	case viewRecipient:
		m.recipientInput, cmd = m.recipientInput.Update(msg)
	}
	return m, cmd
}

func (m *AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys
	switch key {
	case "ctrl+c":
		m.abortLogin()
		return m, tea.Quit
	}

	switch m.view {
	case viewLoading:
		if key == "q" {
			m.abortLogin()
			return m, tea.Quit
		}
		return m, nil

	case viewAuth:
		switch key {
		case "enter":
			val := strings.TrimSpace(m.codeInput.Value())
			m.codeInput.Reset()
			if val == "" {
				return m, nil
			}
			select {
			case m.pasted <- val:
				m.status = "Exchanging code..."
			default:
			}
			return m, nil
		case "esc":
			m.abortLogin()
			return m, nil
		}
		var cmd tea.Cmd
		m.codeInput, cmd = m.codeInput.Update(msg)
		return m, cmd

	case viewTable:
		if m.searching {
			return m.handleSearchKey(msg)
		}
		_, signedIn := m.ctrl.Account()
		switch key {
		case "q":
			return m, tea.Quit
		case "L":
			return m, m.startLogin()
		}
		if !signedIn {
			return m, nil
		}
		switch key {
		case "/":
			m.searching = true
			m.table.Blur()
			return m, m.searchInput.Focus()
		case "c":
			m.companyList.ResetFilter()
			m.companyList.Title = companyTitle(len(m.companies))
			cmd := m.companyList.SetItems(companiesToItems(m.companies))
			m.view = viewCompanies
			return m, cmd
		case "m":
			m.view = viewRecipient
			m.recipientInput.Reset()
			return m, m.recipientInput.Focus()
		case "d":
			return m, downloadCmd(m.ctrl, m.downloadDir, m.current)
		case "r":
			m.status = "Fetching contacts..."
			return m, fetchCmd(m.ctrl)
		case "o":
			m.status = "Logging out..."
			return m, logoutCmd(m.ctrl)
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd

	case viewCompanies:
		// When the list is filtering, let it handle all keys except ctrl+c
		if m.companyList.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.companyList, cmd = m.companyList.Update(msg)
			return m, cmd
		}
		switch key {
		case "esc", "q":
			m.view = viewTable
			return m, nil
		case "enter":
			if item, ok := m.companyList.SelectedItem().(companyItem); ok {
				m.searchInput.Reset()
				m.applyFilter(contacts.CompanyFilter(item.name))
			}
			m.view = viewTable
			return m, nil
		}
		var cmd tea.Cmd
		m.companyList, cmd = m.companyList.Update(msg)
		return m, cmd

	case viewRecipient:
		switch key {
		case "esc":
			m.recipientInput.Blur()
			m.view = viewTable
			return m, nil
		case "enter":
			to := m.recipientInput.Value()
			m.recipientInput.Blur()
			m.view = viewTable
			m.status = "Sending report..."
			return m, sendCmd(m.ctrl, to, m.current)
		}
		var cmd tea.Cmd
		m.recipientInput, cmd = m.recipientInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleSearchKey re-runs the search on every keystroke.
func (m *AppModel) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		m.table.Focus()
		return m, nil
	case "esc":
		m.searching = false
		m.searchInput.Reset()
		m.searchInput.Blur()
		m.table.Focus()
		m.applyFilter(contacts.Filter{})
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.applyFilter(contacts.SearchFilter(m.searchInput.Value()))
	return m, cmd
}

// startLogin begins an interactive login unless one is already running.
// The check is on the model's own flag: the controller only learns about the
// attempt once the command goroutine gets scheduled.
func (m *AppModel) startLogin() tea.Cmd {
	if m.loggingIn || m.ctrl.State() == session.LoggingIn {
		return m.setStatus("Login already in progress.")
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.loggingIn = true
	m.loginSeq++
	m.cancelLogin = cancel
	m.pasted = make(chan string, 1)
	m.status = "Starting login..."
	return loginCmd(ctx, m.loginSeq, m.ctrl, m.pasted, m.sendToProgram)
}

func (m *AppModel) abortLogin() {
	if m.cancelLogin != nil {
		m.cancelLogin()
	}
}

// endLogin releases the live attempt's state.
func (m *AppModel) endLogin() {
	if m.cancelLogin != nil {
		m.cancelLogin()
	}
	m.loggingIn = false
	m.cancelLogin = nil
	m.pasted = nil
}

func (m *AppModel) sendToProgram(msg tea.Msg) {
	if m.program != nil {
		m.program.Send(msg)
	}
}

func (m *AppModel) applyLoad(res *session.LoadResult) {
	if res == nil {
		return
	}
	m.showFull(res.Contacts)
	m.companies = res.Companies
}

// showFull displays the whole collection and drops any filter.
func (m *AppModel) showFull(all []model.Contact) {
	m.filter = contacts.Filter{}
	m.searching = false
	m.searchInput.Reset()
	m.companies = contacts.Companies(all)
	m.current = all
	m.table.SetRows(tableRows(all))
	m.table.GotoTop()
}

// applyFilter replaces the current filter. Company and search do not compose.
func (m *AppModel) applyFilter(f contacts.Filter) {
	m.filter = f
	m.current = m.ctrl.View(f)
	m.table.SetRows(tableRows(m.current))
	m.table.GotoTop()
}

func (m *AppModel) setStatus(s string) tea.Cmd {
	m.status = s
	m.statusSeq++
	return clearStatusAfter(m.statusSeq, statusTTL)
}

// View renders the appropriate view based on current state.
func (m *AppModel) View() string {
	if m.view == viewAuth {
		var b strings.Builder
		b.WriteString("Open this URL in your browser to sign in:\n\n")
		b.WriteString(m.authURL)
		b.WriteString("\n\nIf the browser cannot reach this machine, paste the code or the full redirect URL:\n\n")
		b.WriteString(m.codeInput.View())
		b.WriteString(footerStyle.Render("enter: submit  esc: cancel"))
		if m.status != "" {
			b.WriteString("\n")
			b.WriteString(m.status)
		}
		return b.String()
	}

	if m.view == viewLoading {
		if m.status != "" {
			return m.status + "\n"
		}
		return "Loading...\n"
	}

	var b strings.Builder
	switch m.view {
	case viewTable:
		acct, signedIn := m.ctrl.Account()
		b.WriteString(tableHeader(acct.Username, len(m.current), m.ctrl.Store().Len(), m.filter.Describe()))
		b.WriteString("\n")
		if m.searching || m.searchInput.Value() != "" {
			b.WriteString(m.searchInput.View())
			b.WriteString("\n")
		}
		b.WriteString(tableBorder.Render(m.table.View()))
		b.WriteString("\n")
		if m.searching {
			b.WriteString(searchFooter())
		} else {
			b.WriteString(tableFooter(signedIn))
		}
	case viewCompanies:
		b.WriteString(m.companyList.View())
		b.WriteString("\n")
		b.WriteString(companiesFooter())
	case viewRecipient:
		b.WriteString(headerStyle.Render("Mail the current view as an HTML table"))
		b.WriteString("\n")
		b.WriteString(m.recipientInput.View())
		b.WriteString("\n")
		b.WriteString(footerStyle.Render("enter: send  esc: back"))
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.status)
	}
	return b.String()
}
