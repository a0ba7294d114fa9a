// internal/favicon/normalize.go
package favicon

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

const defaultScheme = "https://"

// Normalize turns what a user typed into the canonical absolute URL used as
// the favicon target. Inputs without an http(s) scheme get "https://"
// prepended; nothing is resolved or fetched.
func Normalize(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, ErrMissingInput
	}

	s := strings.TrimSpace(raw)
	if scheme, rest, ok := cutHTTPScheme(s); ok {
		s = scheme + "://" + rest
	} else {
		s = defaultScheme + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Opaque != "" {
		return nil, fmt.Errorf("%w: opaque url", ErrInvalidURL)
	}

	host, err := canonicalHost(u.Hostname())
	if err != nil {
		return nil, err
	}
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		u.Host = "[" + host + "]"
	} else {
		u.Host = host
	}

	if u.Path == "" {
		u.Path = "/"
	}

	return u, nil
}

// cutHTTPScheme splits off an "http:" or "https:" prefix. Any run of slashes
// after the colon is dropped, so "http:/example.com" keeps its scheme and
// host the way a browser reads it.
func cutHTTPScheme(s string) (scheme, rest string, ok bool) {
	lower := strings.ToLower(s)
	for _, candidate := range []string{"https", "http"} {
		if strings.HasPrefix(lower, candidate+":") {
			return candidate, strings.TrimLeft(s[len(candidate)+1:], "/\\"), true
		}
	}
	return "", "", false
}

func canonicalHost(host string) (string, error) {
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", fmt.Errorf("%w: empty host", ErrInvalidURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("%w: idna: %v", ErrInvalidURL, err)
	}
	return strings.ToLower(ascii), nil
}
