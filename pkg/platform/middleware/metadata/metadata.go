// Package metadata records who is calling: client address and user agent.
package metadata

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"safeballot/pkg/requestcontext"
)

// ClientMetadata stores the caller's address and User-Agent on the request
// context. Audit events and device labels read them from there.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest prefers the left-most X-Forwarded-For hop, then
// X-Real-IP, then the socket peer. Header values that do not parse as an
// address are skipped.
func ClientIPFromRequest(r *http.Request) string {
	if hops := r.Header.Get("X-Forwarded-For"); hops != "" {
		first, _, _ := strings.Cut(hops, ",")
		if ip, ok := parseAddr(first); ok {
			return ip
		}
	}
	if ip, ok := parseAddr(r.Header.Get("X-Real-IP")); ok {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip, ok := parseAddr(host); ok {
		return ip
	}
	return "unknown"
}

func parseAddr(s string) (string, bool) {
	addr, err := netip.ParseAddr(strings.Trim(strings.TrimSpace(s), "[]"))
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}
