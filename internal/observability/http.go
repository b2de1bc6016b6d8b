package observability

import (
	"net"
	"net/http"
	"strings"
)

// Request metadata helpers shared by the HTTP handlers and the websocket
// handshake. All of them degrade to the empty string when the client sent
// nothing usable.

func RequestIDFromRequest(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return r.Header.Get("X-Correlation-Id")
}

func DeviceIDFromRequest(r *http.Request) string {
	return r.Header.Get("X-Device-Id")
}

// IPFromRequest resolves the client address, preferring proxy headers over
// the socket peer.
func IPFromRequest(r *http.Request) string {
	if real := r.Header.Get("X-Real-Ip"); real != "" {
		return real
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
