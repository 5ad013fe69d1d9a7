package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"contactreport/internal/apperr"
	"contactreport/internal/auth"
	"contactreport/internal/config"
	"contactreport/internal/contacts"
	"contactreport/internal/graph"
	"contactreport/internal/logging"
	"contactreport/internal/session"
	"contactreport/internal/store"
	"contactreport/internal/tui"
)

var (
	// Global flags
	configDir string
	verbose   bool
)

// rootCmd runs the interactive contact browser.
var rootCmd = &cobra.Command{
	Use:   "contactreport",
	Short: "Browse, filter and export a tenant's Microsoft Graph contacts",
	Long: `contactreport signs in to Microsoft Entra ID, fetches the tenant's org
contacts from Microsoft Graph and shows them as a table.

The table can be narrowed by company or by a name/email search, then mailed
to an admin as an HTML table or saved as Contact_Report.csv.

Run without arguments to start the terminal UI.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.config/contactreport)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(loginCmd, logoutCmd, listCmd, exportCmd, sendCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorText(err))
		os.Exit(1)
	}
}

const setupHint = `Register a public client app in Entra ID (redirect URI http://127.0.0.1)
and set tenant_id and client_id in config.yaml, or export
CONTACTREPORT_TENANT_ID and CONTACTREPORT_CLIENT_ID.`

// errorText is the one-line failure shown on stderr, plus setup help when
// the app is not configured yet.
func errorText(err error) string {
	msg := "Error: " + apperr.UserMessage(err)
	if errors.Is(err, apperr.ErrNotConfigured) {
		msg += "\n\n" + setupHint
	}
	return msg
}

// app is the wired object graph shared by the TUI and the subcommands.
type app struct {
	cfg  *config.Config
	log  *zap.Logger
	db   *store.SQLiteStore
	ctrl *session.Controller
}

func openApp() (*app, error) {
	dir := configDir
	if dir == "" {
		d, err := config.DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Path:    cfg.LogPath(),
		Verbose: verbose,
	})
	if err != nil {
		return nil, err
	}

	db, err := store.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("open credential cache: %w", err)
	}

	hc := &http.Client{Timeout: cfg.HTTPTimeout}
	authn := auth.New(cfg, db, auth.WithHTTPClient(hc), auth.WithLogger(log))
	gc := graph.NewClient(authn,
		graph.WithBaseURL(cfg.GraphBaseURL),
		graph.WithHTTPClient(hc),
		graph.WithLogger(log),
	)

	return &app{
		cfg:  cfg,
		log:  log,
		db:   db,
		ctrl: session.NewController(authn, gc, contacts.NewStore(), log),
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("close credential cache", zap.Error(err))
	}
	_ = a.log.Sync()
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	appModel := tui.NewAppModel(a.ctrl, tui.Options{
		DownloadDir: a.cfg.DownloadDir,
		Logger:      a.log,
	})
	p := tea.NewProgram(&appModel, tea.WithAltScreen())
	appModel.SetProgram(p)
	if _, err := p.Run(); err != nil {
		a.log.Error("terminal UI exited", zap.Error(err))
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}
