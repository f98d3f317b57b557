package util

import (
	"net"
	"net/url"
	"strings"
)

// HostOf extracts the bare hostname from a URL: no scheme, no port, no
// path. Returns "" when no hostname can be derived.
func HostOf(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}

	if parsed, err := url.Parse(rawURL); err == nil && parsed.Hostname() != "" {
		return parsed.Hostname()
	}

	// Scheme-less input like "example.com/path" parses without a host;
	// strip the path and port by hand.
	host := rawURL
	if i := strings.Index(host, "/"); i >= 0 {
		host = host[:i]
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host
}

// IsIPLiteral reports whether host is a literal IPv4 or IPv6 address
// rather than a domain name.
func IsIPLiteral(host string) bool {
	return net.ParseIP(host) != nil
}
