package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"contactreport/internal/model"
	"contactreport/internal/report"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			PaddingBottom(1)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	tableBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))
)

func newContactTable() table.Model {
	t := table.New(
		table.WithColumns(columnsFor(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(s)
	return t
}

// columnsFor splits width over the report columns. Email gets the most room.
func columnsFor(width int) []table.Column {
	usable := width - 8 // borders and cell padding
	if usable < 30 {
		usable = 30
	}
	name := usable * 3 / 10
	company := usable * 3 / 10
	email := usable - name - company
	widths := []int{name, email, company}
	cols := make([]table.Column, len(model.ReportHeader))
	for i, title := range model.ReportHeader {
		cols[i] = table.Column{Title: title, Width: widths[i]}
	}
	return cols
}

// tableRows renders view through the report builder so the screen and the
// exports always show the same cells.
func tableRows(view []model.Contact) []table.Row {
	r := report.Build(view)
	rows := make([]table.Row, len(r.Rows))
	for i, cells := range r.Rows {
		rows[i] = table.Row(cells)
	}
	return rows
}

func tableHeader(account string, shown, total int, filter string) string {
	who := "not signed in"
	if account != "" {
		who = account
	}
	return headerStyle.Render(fmt.Sprintf("Contacts for %s  (%d of %d, %s)", who, shown, total, filter))
}

func tableFooter(signedIn bool) string {
	if !signedIn {
		return footerStyle.Render("L: log in  q: quit")
	}
	return footerStyle.Render("/: search  c: company  m: mail report  d: download csv  r: refresh  L: log in again  o: log out  q: quit")
}

func searchFooter() string {
	return footerStyle.Render("type to filter  enter: keep  esc: clear")
}
