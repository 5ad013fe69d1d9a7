package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"contactreport/internal/apperr"
	"contactreport/internal/auth"
	"contactreport/internal/contacts"
	"contactreport/internal/model"
	"contactreport/internal/report"
	"contactreport/internal/session"
)

var (
	companyFlag string
	searchFlag  string
	exportDir   string
	sendTo      string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in interactively and cache the session",
	Long: `Opens the Entra ID sign-in page and waits for the redirect on a loopback
port. If the browser cannot reach this machine, paste the code or the full
redirect URL on stdin.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the cached session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the contact report table",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the contact report to Contact_Report.csv",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Mail the contact report as an HTML table",
	Example: `  contactreport send --to admin@contoso.com
  contactreport send --to admin@contoso.com --company Contoso`,
	Args: cobra.NoArgs,
	RunE: runSend,
}

func init() {
	for _, c := range []*cobra.Command{listCmd, exportCmd, sendCmd} {
		c.Flags().StringVar(&companyFlag, "company", "", "only contacts of this company (exact match)")
		c.Flags().StringVar(&searchFlag, "search", "", "only contacts whose name or email contains this text")
		c.MarkFlagsMutuallyExclusive("company", "search")
	}
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "output directory (default: download_dir from config)")
	sendCmd.Flags().StringVar(&sendTo, "to", "", "recipient address")
	_ = sendCmd.MarkFlagRequired("to")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	out := cmd.ErrOrStderr()
	res, err := a.ctrl.Login(ctx, auth.Interaction{
		ShowURL: func(u string) {
			fmt.Fprintf(out, "Open this URL in your browser to sign in:\n\n%s\n\nOr paste the code / redirect URL here: ", u)
		},
		Pasted: readLines(cmd.InOrStdin()),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nLogin successful. Signed in as %s.\n", res.Account.Username)
	if res.FetchErr != nil {
		return res.FetchErr
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d contacts, %d companies.\n", len(res.Contacts), len(res.Companies))
	return nil
}

// readLines feeds stdin lines to the login flow. The goroutine ends with
// the process.
func readLines(r io.Reader) <-chan string {
	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 4096), 64*1024)
		for sc.Scan() {
			if line := sc.Text(); line != "" {
				ch <- line
				return
			}
		}
	}()
	return ch
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()
	if err := a.ctrl.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	return nil
}

// loadView resumes the cached session and applies the filter flags.
func loadView(ctx context.Context, cmd *cobra.Command, ctrl *session.Controller) ([]model.Contact, error) {
	res, ok, err := ctrl.Resume(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.CodeAuthenticationRequired, "Please log in first. Run: contactreport login")
	}
	if res.FetchErr != nil {
		return nil, res.FetchErr
	}
	return ctrl.View(filterFromFlags(cmd)), nil
}

// filterFromFlags maps --company / --search to a filter. Cobra rejects both
// at once.
func filterFromFlags(cmd *cobra.Command) contacts.Filter {
	switch {
	case cmd.Flags().Changed("company"):
		return contacts.CompanyFilter(companyFlag)
	case cmd.Flags().Changed("search"):
		return contacts.SearchFilter(searchFlag)
	default:
		return contacts.Filter{}
	}
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()
	view, err := loadView(ctx, cmd, a.ctrl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(report.Build(view)))
	fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d contacts (%s)\n", len(view), a.ctrl.Store().Len(), filterFromFlags(cmd).Describe())
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()
	view, err := loadView(ctx, cmd, a.ctrl)
	if err != nil {
		return err
	}
	dir := exportDir
	if dir == "" {
		dir = a.cfg.DownloadDir
	}
	path, err := a.ctrl.DownloadReport(dir, view)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report saved to %s (%d rows).\n", path, len(view))
	return nil
}

func runSend(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()
	view, err := loadView(ctx, cmd, a.ctrl)
	if err != nil {
		return err
	}
	if err := a.ctrl.SendReport(ctx, sendTo, view); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Report sent!")
	return nil
}

var headerCell = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var bodyCell = lipgloss.NewStyle().Padding(0, 1)

// renderTable draws r for the terminal. Cell text is exactly what the
// exports carry.
func renderTable(r model.Report) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(r.Header...).
		Rows(r.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			return bodyCell
		})
	return t.String()
}
