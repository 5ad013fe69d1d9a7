package util

import (
	"net/mail"
	"strings"
)

// NormalizeRecipient extracts and normalizes an email address typed by the user.
// - Accepts bare addresses and RFC 5322 forms like "Name <Admin@Example.COM>"
// - Lowercases the domain only; the local part is kept as typed
// - For a comma separated list, the first valid address wins
// Returns empty string if no address can be parsed.
func NormalizeRecipient(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	addr, err := mail.ParseAddress(input)
	if err != nil || addr == nil {
		addr = nil
		for _, p := range strings.Split(input, ",") {
			p = strings.TrimSpace(p)
			a, e := mail.ParseAddress(p)
			if e == nil && a != nil {
				addr = a
				break
			}
		}
		if addr == nil {
			return ""
		}
	}

	email := strings.TrimSpace(addr.Address)
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return ""
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}
