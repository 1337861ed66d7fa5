package files

import (
	"net"
	"strings"
)

// DefaultDomain is used when a request carries no hostname.
const DefaultDomain = "localhost"

// Caller describes who is asking and for which host.
type Caller struct {
	// Identity is the authenticated address, empty for anonymous callers.
	Identity string

	// Hostname is the request host, possibly with a port.
	Hostname string
}

// Authenticated reports whether the caller carries an identity.
func (c Caller) Authenticated() bool {
	return strings.TrimSpace(c.Identity) != ""
}

// Domain returns the tenant namespace of the caller.
func (c Caller) Domain() string {
	return ResolveDomain(c.Hostname)
}

// ResolveDomain maps a request hostname to a domain: lower-cased, port and
// trailing dot removed. IPv6 literals have their colons replaced so the
// result is usable as a key component.
func ResolveDomain(hostname string) string {
	host := strings.TrimSpace(hostname)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	host = strings.ReplaceAll(host, ":", "-")

	if host == "" || strings.ContainsAny(host, "/\\ \x00") {
		return DefaultDomain
	}
	return host
}
