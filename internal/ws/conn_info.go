package ws

import "time"

// ConnInfo is the per-connection metadata captured once at handshake time
// and attached to every lifecycle event the connection emits.
type ConnInfo struct {
	ConnID      string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
