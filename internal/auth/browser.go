package auth

import (
	"fmt"
	"net"
	"net/url"
	"os/exec"
	"runtime"
)

// OpenBrowser shows an Entra sign-in or sign-out page in the user's default
// browser. Only https URLs are opened, plus plain http to a loopback host
// for local identity endpoints.
func OpenBrowser(rawURL string) error {
	if err := checkBrowserURL(rawURL); err != nil {
		return err
	}
	name, args, err := browserCommand(runtime.GOOS, rawURL)
	if err != nil {
		return err
	}
	return exec.Command(name, args...).Start()
}

func browserCommand(goos, rawURL string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{rawURL}, nil
	case "linux", "freebsd", "openbsd":
		return "xdg-open", []string{rawURL}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", rawURL}, nil
	default:
		return "", nil, fmt.Errorf("cannot open a browser on %s; open the URL manually", goos)
	}
}

// checkBrowserURL rejects anything that is not a web page, so the URL never
// reaches the platform opener as a file path or custom scheme.
func checkBrowserURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse browser URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("refusing to open URL without host: %q", rawURL)
	}
	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if isLoopback(u.Hostname()) {
			return nil
		}
		return fmt.Errorf("refusing to open plain http URL for %s", u.Hostname())
	default:
		return fmt.Errorf("refusing to open %q URL", u.Scheme)
	}
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
