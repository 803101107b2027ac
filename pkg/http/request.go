package http

import (
	"net"
	"net/http"
	"strings"
)

// ExtractClientIP extracts the client IP address from the request. When a
// forwarded-address header is present the first entry is used, trimmed;
// otherwise the connection's remote address.
func ExtractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if isValidIP(first) {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if isValidIP(xri) {
			return xri
		}
	}

	return getRemoteAddr(r)
}

// IsLoopback reports whether ip is a loopback or unspecified address, for
// which the geolocation resolver is skipped in favour of the configured
// fallback location.
func IsLoopback(ip string) bool {
	if ip == "" || ip == "localhost" {
		return true
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.IsLoopback() || parsed.IsUnspecified()
}

// getRemoteAddr extracts the IP address from RemoteAddr (removing port if present)
func getRemoteAddr(r *http.Request) string {
	if r.RemoteAddr != "" {
		// RemoteAddr may include port: "ip:port"
		if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return ip
		}
		return r.RemoteAddr
	}
	return "unknown"
}

// isValidIP checks if a string is a valid IPv4 or IPv6 address
func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}
