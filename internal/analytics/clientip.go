package analytics

import (
	"net"
	"net/http"
	"strings"
)

// localFallbackIP is attributed to requests whose origin cannot be
// determined. It resolves to the Local geolocation sentinel downstream.
const localFallbackIP = "127.0.0.1"

// ClientIP derives the visitor IP from proxy headers.
// Checks X-Forwarded-For first (leftmost entry is the original client),
// then X-Real-IP, then the connection's remote address.
func ClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		first := xff
		if i := strings.IndexByte(xff, ','); i >= 0 {
			first = xff[:i]
		}
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}

	return localFallbackIP
}
