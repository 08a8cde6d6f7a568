package utils

import (
	"net"
	"strings"
)

// NormalizeIP strips a port, IPv6 brackets and an IPv4-mapped IPv6 prefix from a peer address.
// Proxy headers are resolved by fiber before this point, and only for trusted peers.
func NormalizeIP(addr string) string {
	candidate := strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(candidate); err == nil {
		candidate = host
	}
	candidate = strings.Trim(candidate, "[]")
	return strings.TrimPrefix(candidate, "::ffff:")
}

// IsPublicIP is false for empty, unparsable, loopback, private, link-local and unspecified addresses
func IsPublicIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return !(parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() ||
		parsed.IsLinkLocalUnicast() || parsed.IsLinkLocalMulticast())
}
