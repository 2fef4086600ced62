package httpx

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

const ctxKeyClientIP ctxKey = "client_ip"

// ProxyTrust lists the peers allowed to report the client address through
// X-Forwarded-For or X-Real-IP. The zero value trusts nobody.
type ProxyTrust struct {
	Proxies []netip.Prefix
}

// ParseProxyTrust accepts CIDR ranges and bare addresses.
func ParseProxyTrust(entries []string) (ProxyTrust, error) {
	var t ProxyTrust
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return ProxyTrust{}, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			t.Proxies = append(t.Proxies, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return ProxyTrust{}, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		a = a.Unmap()
		t.Proxies = append(t.Proxies, netip.PrefixFrom(a, a.BitLen()))
	}
	return t, nil
}

func (t ProxyTrust) trusts(a netip.Addr) bool {
	a = a.Unmap()
	for _, p := range t.Proxies {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// Resolve returns the client address of r. Forwarded headers are read only
// when the direct peer is trusted; X-Forwarded-For is walked right to left
// and the first untrusted hop is the client.
func (t ProxyTrust) Resolve(r *http.Request) string {
	peer := peerIP(r)
	addr, err := netip.ParseAddr(peer)
	if err != nil || !t.trusts(addr) {
		return peer
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				// A malformed hop was written by someone we do not trust.
				return peer
			}
			if !t.trusts(hop) {
				return hop.Unmap().String()
			}
		}
		return peer
	}

	if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return xri.Unmap().String()
	}
	return peer
}

func peerIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ClientIPMiddleware resolves the client address once per request.
func ClientIPMiddleware(t ProxyTrust) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), ctxKeyClientIP, t.Resolve(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the address resolved by ClientIPMiddleware, or the direct
// peer when the middleware did not run.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(ctxKeyClientIP).(string); ok {
		return ip
	}
	return peerIP(r)
}
