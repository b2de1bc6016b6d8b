package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"relay-service/internal/models"
)

// Client wraps one websocket connection as a session.Conn. Writes are
// serialized with a mutex: the engine fans out under its own lock, but
// control frames and close handling may write concurrently.
type Client struct {
	conn *websocket.Conn
	info ConnInfo
	mu   sync.Mutex
}

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{conn: conn, info: info}
}

// Send writes one event to the peer as a JSON text frame.
func (c *Client) Send(event models.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(event)
}

// Close closes the underlying connection, unblocking the read loop.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Info returns the connection metadata captured at handshake time.
func (c *Client) Info() ConnInfo {
	return c.info
}
