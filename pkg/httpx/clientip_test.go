package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hollandstar/sportteams/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestParseProxyTrust(t *testing.T) {
	trust, err := httpx.ParseProxyTrust([]string{"10.0.0.0/8", " 192.168.1.5 ", "", "::1"})
	require.NoError(t, err)
	require.Len(t, trust.Proxies, 3)

	_, err = httpx.ParseProxyTrust([]string{"not-an-ip"})
	require.Error(t, err)

	_, err = httpx.ParseProxyTrust([]string{"10.0.0.0/99"})
	require.Error(t, err)
}

func TestProxyTrustResolve(t *testing.T) {
	trust, err := httpx.ParseProxyTrust([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		trust  httpx.ProxyTrust
		remote string
		xff    string
		xri    string
		want   string
	}{
		{name: "peer address", trust: trust, remote: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "headers from an untrusted peer are ignored", trust: trust, remote: "192.0.2.1:1234", xff: "198.51.100.1", xri: "198.51.100.2", want: "192.0.2.1"},
		{name: "zero value trusts nobody", remote: "10.0.0.1:1234", xff: "198.51.100.1", want: "10.0.0.1"},
		{name: "trusted proxy forwards the client", trust: trust, remote: "10.0.0.1:1234", xff: "198.51.100.1", want: "198.51.100.1"},
		{name: "spoofed leftmost hop is skipped", trust: trust, remote: "10.0.0.1:1234", xff: "1.2.3.4, 198.51.100.1, 10.0.0.2", want: "198.51.100.1"},
		{name: "malformed hop falls back to the peer", trust: trust, remote: "10.0.0.1:1234", xff: "198.51.100.1, garbage", want: "10.0.0.1"},
		{name: "only trusted hops", trust: trust, remote: "10.0.0.1:1234", xff: "10.0.0.9", want: "10.0.0.1"},
		{name: "X-Real-IP from a trusted proxy", trust: trust, remote: "10.0.0.1:1234", xri: "198.51.100.7", want: "198.51.100.7"},
		{name: "RemoteAddr without a port", trust: trust, remote: "192.0.2.9", want: "192.0.2.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			require.Equal(t, tt.want, tt.trust.Resolve(req))
		})
	}
}

func TestClientIP(t *testing.T) {
	trust, err := httpx.ParseProxyTrust([]string{"10.0.0.1"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "198.51.100.4")
	require.Equal(t, "10.0.0.1", httpx.ClientIP(req), "no resolver ran")

	var got string
	h := httpx.ClientIPMiddleware(trust)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = httpx.ClientIP(r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "198.51.100.4", got)
}
