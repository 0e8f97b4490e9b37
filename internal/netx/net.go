// Package netx holds HTTP transport helpers shared by network remotes.
package netx

import (
	"fmt"
	"net/http"
	"net/url"
)

// ProxyTransport returns a transport option routing requests through raw.
// Only http, https and socks5 proxies with a host are accepted.
func ProxyTransport(raw string) (func(*http.Transport), error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("bad proxy %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return nil, fmt.Errorf("bad proxy %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("bad proxy %q: missing host", raw)
	}
	return func(tr *http.Transport) {
		tr.Proxy = http.ProxyURL(u)
	}, nil
}
