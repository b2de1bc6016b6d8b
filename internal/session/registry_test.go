package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"relay-service/internal/models"
)

type fakeConn struct{ id string }

func (f *fakeConn) Send(models.Event) error { return nil }
func (f *fakeConn) Close() error            { return nil }

func TestBindOverwritesPriorBinding(t *testing.T) {
	r := NewRegistry()
	conn := &fakeConn{id: "c1"}

	r.Bind(conn, "u1")
	r.Bind(conn, "u2")

	bindings := r.Bindings()
	assert.Len(t, bindings, 1)
	assert.Equal(t, "u2", bindings[conn])
}

func TestUnbindIdempotent(t *testing.T) {
	r := NewRegistry()
	conn := &fakeConn{id: "c1"}

	assert.False(t, r.Unbind(conn), "unbinding an unknown connection is a no-op")

	r.Bind(conn, "u1")
	assert.True(t, r.Unbind(conn))
	assert.False(t, r.Unbind(conn), "second unbind reports nothing removed")
	assert.Empty(t, r.Bindings())
}

func TestConnectionsForUserSpansTabs(t *testing.T) {
	r := NewRegistry()
	tab1 := &fakeConn{id: "c1"}
	tab2 := &fakeConn{id: "c2"}
	other := &fakeConn{id: "c3"}

	r.Bind(tab1, "u1")
	r.Bind(tab2, "u1")
	r.Bind(other, "u2")

	assert.Len(t, r.ConnectionsFor("u1"), 2)
	assert.Len(t, r.ConnectionsFor("u2"), 1)
	assert.Empty(t, r.ConnectionsFor("u3"))
}

func TestConnectedUserIDsDeduplicates(t *testing.T) {
	r := NewRegistry()
	r.Bind(&fakeConn{id: "c1"}, "u1")
	r.Bind(&fakeConn{id: "c2"}, "u1")
	r.Bind(&fakeConn{id: "c3"}, "u2")

	assert.ElementsMatch(t, []string{"u1", "u2"}, r.ConnectedUserIDs())
}
