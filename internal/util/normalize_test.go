package util

import "testing"

func TestNormalizeRecipient_Basic(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`admin@contoso.com`, "admin@contoso.com"},
		{`  admin@Contoso.COM  `, "admin@contoso.com"},
		{`Admin <It.Admin@Example.COM>`, "It.Admin@example.com"}, // local part kept
		{`"IT" <ops+reports@example.com>`, "ops+reports@example.com"},
		{`not an address`, ""},
		{`"A" <nope> , "B" <b@D.com>`, "b@d.com"}, // list fallback picks first valid
		{``, ""},
		{`   `, ""},
	}
	for _, tc := range tests {
		if got := NormalizeRecipient(tc.in); got != tc.want {
			t.Errorf("NormalizeRecipient(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}
