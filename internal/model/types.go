package model

// Placeholder is shown in a report cell when the contact field is missing.
const Placeholder = "N/A"

// ReportHeader is the fixed column set of every rendered table and export.
var ReportHeader = []string{"Name", "Email", "Company"}

// Contact is an org contact as returned by Graph. Nil fields were null or
// absent in the response.
type Contact struct {
	DisplayName *string `json:"displayName"`
	Mail        *string `json:"mail"`
	CompanyName *string `json:"companyName"`
}

// Name returns the display name or "" when missing.
func (c Contact) Name() string { return deref(c.DisplayName) }

// Email returns the mail address or "" when missing.
func (c Contact) Email() string { return deref(c.Mail) }

// Company returns the company name or "" when missing.
func (c Contact) Company() string { return deref(c.CompanyName) }

// Cells projects the contact into the report columns, substituting
// Placeholder for missing or empty fields.
func (c Contact) Cells() []string {
	return []string{orPlaceholder(c.DisplayName), orPlaceholder(c.Mail), orPlaceholder(c.CompanyName)}
}

// Report is a header row plus data rows, built from a filtered view at the
// moment of a send or download.
type Report struct {
	Header []string
	Rows   [][]string
}

// Empty reports whether the report has no data rows.
func (r Report) Empty() bool { return len(r.Rows) == 0 }

// Account identifies the signed-in user.
type Account struct {
	ID       string // object id (oid claim)
	Username string // preferred_username
	TenantID string
}

// Str returns a pointer to s. Handy for building contacts in tests and fixtures.
func Str(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orPlaceholder(s *string) string {
	if s == nil || *s == "" {
		return Placeholder
	}
	return *s
}
