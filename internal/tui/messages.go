package tui

import (
	"contactreport/internal/model"
	"contactreport/internal/session"
)

// Async message types for Bubble Tea commands.

type authURLMsg string

type resumeResultMsg struct {
	res *session.LoadResult
	ok  bool
	err error
}

type loginResultMsg struct {
	seq int
	res *session.LoadResult
	err error
}

type fetchResultMsg struct {
	contacts []model.Contact
	err      error
}

type actionResultMsg struct {
	action string // "send", "download", "logout"
	detail string
	err    error
}

// clearStatusMsg clears the status line if no newer status replaced it.
type clearStatusMsg int
