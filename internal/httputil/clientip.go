package httputil

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// GetClientIP returns the address a request came from, for logging only.
// The first valid address in X-Forwarded-For wins, then X-Real-IP, then the
// connection's RemoteAddr. Header values that do not parse as an IP are
// ignored.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip, ok := parseIP(first); ok {
			return ip
		}
	}

	if ip, ok := parseIP(r.Header.Get("X-Real-IP")); ok {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func parseIP(value string) (string, bool) {
	value = strings.Trim(strings.TrimSpace(value), "[]")
	if value == "" {
		return "", false
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return "", false
	}
	return addr.String(), true
}
