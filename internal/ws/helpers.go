package ws

import "github.com/google/uuid"

// newConnID tags a connection for the lifecycle event stream. Connection
// ids share the uuid scheme used for every other id in the relay.
func newConnID() string {
	return uuid.NewString()
}
