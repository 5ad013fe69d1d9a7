package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"contactreport/internal/apperr"
	"contactreport/internal/model"
	"contactreport/internal/util"
)

const (
	// FileName is the name of the downloaded report.
	FileName    = "Contact_Report.csv"
	MailSubject = "Contact Report"
)

// Build projects contacts into the Name/Email/Company grid.
func Build(cs []model.Contact) model.Report {
	r := model.Report{
		Header: append([]string(nil), model.ReportHeader...),
		Rows:   make([][]string, 0, len(cs)),
	}
	for _, c := range cs {
		r.Rows = append(r.Rows, c.Cells())
	}
	return r
}

var htmlTable = template.Must(template.New("report").Parse(
	`<table border="1"><thead><tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead>` +
		`<tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody></table>`))

// HTML renders r as the mail body table. Cell text is escaped.
func HTML(r model.Report) (string, error) {
	var b bytes.Buffer
	if err := htmlTable.Execute(&b, r); err != nil {
		return "", fmt.Errorf("render report html: %w", err)
	}
	return b.String(), nil
}

// ErrNoData is returned when a download is attempted with no rows.
var ErrNoData = apperr.New(apperr.CodeInputValidation, "No data to download.")

// WriteCSV writes header and rows with standard CSV quoting. It writes
// nothing when r has no rows.
func WriteCSV(w io.Writer, r model.Report) error {
	if r.Empty() {
		return ErrNoData
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(r.Rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// SaveCSV writes r to dir/Contact_Report.csv and returns the path. No file
// is created when r has no rows.
func SaveCSV(dir string, r model.Report) (string, error) {
	if r.Empty() {
		return "", ErrNoData
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}
	path := filepath.Join(dir, FileName)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", tmp, err)
	}
	if err := WriteCSV(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return path, nil
}

// MailSender is the part of the Graph client used to deliver a report.
type MailSender interface {
	SendHTMLMail(ctx context.Context, to, subject, html string) error
}

// SendMail mails r as an HTML table to recipient.
func SendMail(ctx context.Context, sender MailSender, recipient string, r model.Report) error {
	if strings.TrimSpace(recipient) == "" {
		return apperr.New(apperr.CodeInputValidation, "Please provide an admin email.")
	}
	to := util.NormalizeRecipient(recipient)
	if to == "" {
		return apperr.New(apperr.CodeInputValidation, fmt.Sprintf("%q is not a valid email address.", recipient))
	}
	body, err := HTML(r)
	if err != nil {
		return err
	}
	if err := sender.SendHTMLMail(ctx, to, MailSubject, body); err != nil {
		return apperr.Wrap(err, apperr.CodeAPICallFailed, "Failed to send the report.")
	}
	return nil
}
