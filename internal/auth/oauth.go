package auth

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"contactreport/internal/config"
)

const graphResource = "https://graph.microsoft.com/"

// Scopes requested at sign-in: directory and contact read/write plus
// mail send on Graph, and the OIDC scopes that give us an id_token and a
// refresh token.
var Scopes = []string{
	graphResource + "User.ReadWrite.All",
	graphResource + "Directory.ReadWrite.All",
	graphResource + "Mail.Send",
	"openid",
	"profile",
	"offline_access",
}

// NewOAuthConfig builds a public-client config for the tenant's v2.0
// endpoints. RedirectURL is filled in per login by the loopback listener.
func NewOAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID: cfg.ClientID,
		Scopes:   append([]string(nil), Scopes...),
		Endpoint: endpoint(cfg.AuthorityHost, cfg.TenantID),
	}
}

func endpoint(authorityHost, tenantID string) oauth2.Endpoint {
	host := strings.TrimRight(authorityHost, "/")
	var ep oauth2.Endpoint
	if host == "" || host == config.DefaultAuthority {
		ep = microsoft.AzureADEndpoint(tenantID)
	} else {
		ep = oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("%s/%s/oauth2/v2.0/authorize", host, tenantID),
			TokenURL: fmt.Sprintf("%s/%s/oauth2/v2.0/token", host, tenantID),
		}
	}
	// Public client: no secret, so never try HTTP basic auth.
	ep.AuthStyle = oauth2.AuthStyleInParams
	return ep
}

// LogoutURL is the tenant's end-session endpoint.
func LogoutURL(cfg *config.Config) string {
	host := strings.TrimRight(cfg.AuthorityHost, "/")
	if host == "" {
		host = config.DefaultAuthority
	}
	return fmt.Sprintf("%s/%s/oauth2/v2.0/logout", host, url.PathEscape(cfg.TenantID))
}
