package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RealClientIP returns the client IP from the request.
// Uses r.RemoteAddr only (no proxy headers). Use for rate limiting and logging
// when traffic goes directly to the app.
func RealClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}

// ForwardedClientIP walks X-Forwarded-For from the right and returns the first
// hop that is not a private or loopback proxy address; hops further left are
// client-controlled. Falls back to X-Real-IP, then RemoteAddr.
func ForwardedClientIP(r *http.Request) string {
	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				continue
			}
			if addr.IsPrivate() || addr.IsLoopback() {
				continue
			}
			return addr.Unmap().String()
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return RealClientIP(r)
}

// Resolver picks the strategy from the TRUST_PROXY setting.
func Resolver(trustProxy bool) func(*http.Request) string {
	if trustProxy {
		return ForwardedClientIP
	}
	return RealClientIP
}
