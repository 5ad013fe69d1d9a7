package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"contactreport/internal/auth"
	"contactreport/internal/model"
	"contactreport/internal/session"
)

func resumeCmd(ctrl *session.Controller) tea.Cmd {
	return func() tea.Msg {
		res, ok, err := ctrl.Resume(context.Background())
		return resumeResultMsg{res: res, ok: ok, err: err}
	}
}

// loginCmd runs the whole interactive login. The authorization URL is sent
// back through send while the command is still blocked on the redirect.
func loginCmd(ctx context.Context, seq int, ctrl *session.Controller, pasted <-chan string, send func(tea.Msg)) tea.Cmd {
	return func() tea.Msg {
		res, err := ctrl.Login(ctx, auth.Interaction{
			ShowURL: func(u string) { send(authURLMsg(u)) },
			Pasted:  pasted,
		})
		return loginResultMsg{seq: seq, res: res, err: err}
	}
}

func fetchCmd(ctrl *session.Controller) tea.Cmd {
	return func() tea.Msg {
		cs, err := ctrl.FetchAndDisplay(context.Background())
		return fetchResultMsg{contacts: cs, err: err}
	}
}

func sendCmd(ctrl *session.Controller, to string, view []model.Contact) tea.Cmd {
	return func() tea.Msg {
		err := ctrl.SendReport(context.Background(), to, view)
		return actionResultMsg{action: "send", err: err}
	}
}

func downloadCmd(ctrl *session.Controller, dir string, view []model.Contact) tea.Cmd {
	return func() tea.Msg {
		path, err := ctrl.DownloadReport(dir, view)
		return actionResultMsg{action: "download", detail: path, err: err}
	}
}

func logoutCmd(ctrl *session.Controller) tea.Cmd {
	return func() tea.Msg {
		err := ctrl.Logout(context.Background())
		return actionResultMsg{action: "logout", err: err}
	}
}

func clearStatusAfter(seq int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearStatusMsg(seq)
	})
}
