package contacts

import (
	"strings"

	"contactreport/internal/model"
)

// AllCompanies is the company option that selects the whole collection.
const AllCompanies = ""

// FilterKind says which filter produced a view. The two kinds do not
// compose: whichever was applied last runs over the full collection.
type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterCompany
	FilterSearch
)

// Filter is the most recently applied filter.
type Filter struct {
	Kind  FilterKind
	Value string
}

func CompanyFilter(company string) Filter { return Filter{Kind: FilterCompany, Value: company} }
func SearchFilter(query string) Filter   { return Filter{Kind: FilterSearch, Value: query} }

// Apply returns the view of cs selected by f.
func (f Filter) Apply(cs []model.Contact) []model.Contact {
	switch f.Kind {
	case FilterCompany:
		return ByCompany(cs, f.Value)
	case FilterSearch:
		return Search(cs, f.Value)
	default:
		return clone(cs)
	}
}

// Describe is a short label for status and list titles.
func (f Filter) Describe() string {
	switch f.Kind {
	case FilterCompany:
		if f.Value == AllCompanies {
			return "all companies"
		}
		return "company: " + f.Value
	case FilterSearch:
		if f.Value == "" {
			return "all contacts"
		}
		return "search: " + f.Value
	default:
		return "all contacts"
	}
}

// Companies returns the distinct non-empty company names in first-seen order.
func Companies(cs []model.Contact) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range cs {
		name := c.Company()
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// ByCompany keeps contacts whose company equals company exactly
// (case-sensitive). AllCompanies returns the whole collection.
func ByCompany(cs []model.Contact, company string) []model.Contact {
	if company == AllCompanies {
		return clone(cs)
	}
	out := make([]model.Contact, 0, len(cs))
	for _, c := range cs {
		if c.CompanyName != nil && *c.CompanyName == company {
			out = append(out, c)
		}
	}
	return out
}

// Search keeps contacts whose display name or mail contains query,
// ignoring case. Missing fields never match.
func Search(cs []model.Contact, query string) []model.Contact {
	q := strings.ToLower(query)
	out := make([]model.Contact, 0, len(cs))
	for _, c := range cs {
		if containsFold(c.DisplayName, q) || containsFold(c.Mail, q) {
			out = append(out, c)
		}
	}
	return out
}

func containsFold(field *string, lowerQuery string) bool {
	if field == nil || *field == "" {
		return false
	}
	return strings.Contains(strings.ToLower(*field), lowerQuery)
}

func clone(cs []model.Contact) []model.Contact {
	out := make([]model.Contact, len(cs))
	copy(out, cs)
	return out
}
