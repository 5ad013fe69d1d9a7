package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"contactreport/internal/contacts"
)

// companyItem is one option of the company picker. The zero value is the
// "All companies" entry.
type companyItem struct {
	name string
}

func (c companyItem) FilterValue() string { return c.name }
func (c companyItem) Title() string {
	if c.name == contacts.AllCompanies {
		return "All companies"
	}
	return c.name
}
func (c companyItem) Description() string {
	if c.name == contacts.AllCompanies {
		return "show every contact"
	}
	return ""
}

func companiesToItems(companies []string) []list.Item {
	items := make([]list.Item, 0, len(companies)+1)
	items = append(items, companyItem{name: contacts.AllCompanies})
	for _, c := range companies {
		items = append(items, companyItem{name: c})
	}
	return items
}

func newCompanyList() list.Model {
	d := list.NewDefaultDelegate()
	d.ShowDescription = false
	l := list.New([]list.Item{}, d, 0, 0)
	l.KeyMap.Quit.SetKeys("q")
	l.SetShowHelp(false)
	return l
}

func companyTitle(n int) string {
	return fmt.Sprintf("Companies (%d)", n)
}

func companiesFooter() string {
	return footerStyle.Render("enter: select  /: filter  esc: back")
}
