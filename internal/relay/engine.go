// Package relay implements the channel session and fan-out engine: it owns
// the atomic mutation+broadcast step for every incoming operation and
// delivers each state change to exactly the set of live connections
// entitled to observe it.
package relay

import (
	"log"
	"sync"

	"relay-service/internal/models"
	"relay-service/internal/observability"
	"relay-service/internal/persistence"
	"relay-service/internal/session"
	"relay-service/internal/store"
)

// Syncer receives whole-state snapshots after every mutation.
type Syncer interface {
	Enqueue(snap persistence.Snapshot)
}

// Engine coordinates the identity store, channel store, and session
// registry. A single mutex serializes every mutation together with its
// fan-out, so no two operations interleave their read-modify-write on the
// same entity and a broadcast always reflects the state it was derived
// from. Entitlement is re-derived from the channel store on every fan-out
// event, so a just-granted membership takes effect on the very next
// message.
type Engine struct {
	mu       sync.Mutex
	identity *store.Identity
	channels *store.Channels
	sessions *session.Registry
	syncer   Syncer
	version  uint64
}

// NewEngine wires the engine to its collaborators. syncer may be nil in
// tests.
func NewEngine(identity *store.Identity, channels *store.Channels, sessions *session.Registry, syncer Syncer) *Engine {
	return &Engine{
		identity: identity,
		channels: channels,
		sessions: sessions,
		syncer:   syncer,
	}
}

// SignUp registers a user and persists the new state.
func (e *Engine) SignUp(email, password, displayName string) (models.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	user, err := e.identity.CreateUser(email, password, displayName)
	if err != nil {
		return models.User{}, err
	}
	e.flushLocked()
	return user, nil
}

// Login authenticates a user, rotating the session token.
func (e *Engine) Login(email, password string) (models.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	user, err := e.identity.Authenticate(email, password)
	if err != nil {
		return models.User{}, err
	}
	e.flushLocked()
	return user, nil
}

// Restore resolves a previously issued token without rotating it.
func (e *Engine) Restore(token string) (models.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.identity.ResolveToken(token)
}

// UpdateProfile applies a partial profile update and broadcasts the new
// public profile to every bound connection. Profile visibility is global:
// any user may appear in another's member list or DM list.
func (e *Engine) UpdateProfile(uid string, upd models.ProfileUpdate) (models.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	user, err := e.identity.UpdateProfile(uid, upd)
	if err != nil {
		return models.User{}, err
	}
	e.flushLocked()

	profile := user.Profile()
	e.deliverAllLocked(models.Event{Type: models.EventProfileUpdate, Profile: &profile})
	return user, nil
}

// UpdateProfileByToken is the websocket-frame variant of UpdateProfile.
func (e *Engine) UpdateProfileByToken(token string, upd models.ProfileUpdate) (models.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	user, err := e.identity.ResolveToken(token)
	if err != nil {
		return models.User{}, err
	}
	user, err = e.identity.UpdateProfile(user.UID, upd)
	if err != nil {
		return models.User{}, err
	}
	e.flushLocked()

	profile := user.Profile()
	e.deliverAllLocked(models.Event{Type: models.EventProfileUpdate, Profile: &profile})
	return user, nil
}

// CreateRoom creates a room and pushes each bound connection its updated
// scoped room list.
func (e *Engine) CreateRoom(ownerID, name string, isPrivate bool) (models.Room, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	room := e.channels.CreateRoom(ownerID, name, isPrivate)
	e.flushLocked()
	e.deliverRoomListsLocked()
	return room, nil
}

// Invite adds the user with the given email to a private room's membership
// and pushes updated scoped room lists. Inviting an existing member is a
// no-op. The room guards run before the target lookup, so a caller not
// allowed to invite learns nothing about which emails are registered.
func (e *Engine) Invite(roomID, actingUID, targetEmail string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	room, err := e.channels.GetRoom(roomID)
	if err != nil {
		return err
	}
	if room.OwnerID != actingUID && !memberOf(room, actingUID) {
		return store.ErrNotAuthorized
	}

	target, err := e.identity.FindByEmail(targetEmail)
	if err != nil {
		return err
	}
	if _, err := e.channels.Invite(roomID, actingUID, target.UID); err != nil {
		return err
	}
	e.flushLocked()
	e.deliverRoomListsLocked()
	return nil
}

func memberOf(room models.Room, uid string) bool {
	for _, member := range room.Members {
		if member == uid {
			return true
		}
	}
	return false
}

// OpenThread returns the direct thread between the caller and the user with
// the given email, creating it on first contact.
func (e *Engine) OpenThread(uid, otherEmail string) (models.DirectThread, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	other, err := e.identity.FindByEmail(otherEmail)
	if err != nil {
		return models.DirectThread{}, err
	}
	if other.UID == uid {
		return models.DirectThread{}, store.ErrNotAuthorized
	}

	thread, created := e.channels.OpenThread(uid, other.UID)
	if created {
		e.flushLocked()
	}
	return thread, nil
}

// SendMessage appends a message to a channel and delivers it to exactly the
// set of bound connections entitled to the channel. Connections not
// entitled receive nothing.
func (e *Engine) SendMessage(token, channelType, channelID, text, imageURL string) (models.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	author, err := e.identity.ResolveToken(token)
	if err != nil {
		return models.Message{}, err
	}

	msg, err := e.channels.Append(channelType, channelID, author, text, imageURL)
	if err != nil {
		return models.Message{}, err
	}
	e.flushLocked()

	event := models.Event{
		Type:        models.EventMessage,
		ChannelType: channelType,
		ChannelID:   channelID,
		Message:     &msg,
	}

	// Entitlement is re-derived from the channel store here, after the
	// append, so a just-granted membership sees this very message.
	uids, public, err := e.channels.EntitledUsers(channelType, channelID)
	if err != nil {
		return msg, nil
	}
	entitled := make(map[string]struct{}, len(uids))
	for _, uid := range uids {
		entitled[uid] = struct{}{}
	}
	for conn, uid := range e.sessions.Bindings() {
		if !public {
			if _, ok := entitled[uid]; !ok {
				continue
			}
		}
		e.deliver(conn, event)
	}
	return msg, nil
}

// HandleAuth processes an auth frame: on a valid token it binds the
// connection, pushes the scoped snapshot (auth:ok, state) to that
// connection, and broadcasts presence to everyone. On an invalid token the
// connection stays unauthenticated and receives auth:fail.
func (e *Engine) HandleAuth(conn session.Conn, token string) (models.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	user, err := e.identity.ResolveToken(token)
	if err != nil {
		e.deliver(conn, models.Event{Type: models.EventAuthFail})
		return models.User{}, err
	}

	e.sessions.Bind(conn, user.UID)

	profile := user.Profile()
	e.deliver(conn, models.Event{Type: models.EventAuthOK, Profile: &profile})
	e.deliver(conn, models.Event{
		Type:  models.EventState,
		Rooms: e.channels.VisibleRooms(user.UID),
		DMs:   e.channels.ThreadsFor(user.UID),
	})
	e.deliverAllLocked(e.presenceEventLocked())
	return user, nil
}

// Disconnect unbinds the connection and, if it was bound, broadcasts the
// shrunken presence set. Safe to call more than once per connection.
func (e *Engine) Disconnect(conn session.Conn) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.sessions.Unbind(conn) {
		return
	}
	e.deliverAllLocked(e.presenceEventLocked())
}

// StateFor computes the scoped snapshot for the side-channel state fetch.
func (e *Engine) StateFor(uid string) (rooms []models.Room, dms []models.DirectThread) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channels.VisibleRooms(uid), e.channels.ThreadsFor(uid)
}

func (e *Engine) presenceEventLocked() models.Event {
	return models.Event{
		Type:  models.EventPresence,
		Users: e.identity.Profiles(e.sessions.ConnectedUserIDs()),
	}
}

func (e *Engine) deliverAllLocked(event models.Event) {
	for conn := range e.sessions.Bindings() {
		e.deliver(conn, event)
	}
}

// deliverRoomListsLocked pushes each bound connection the room list visible
// to its user. Private rooms never appear in a non-member's list.
func (e *Engine) deliverRoomListsLocked() {
	for conn, uid := range e.sessions.Bindings() {
		e.deliver(conn, models.Event{
			Type:  models.EventRoomsUpdate,
			Rooms: e.channels.VisibleRooms(uid),
		})
	}
}

// deliver writes one event to one connection. A failed write closes the
// connection; its read loop then runs the normal disconnect path.
func (e *Engine) deliver(conn session.Conn, event models.Event) {
	if err := conn.Send(event); err != nil {
		log.Printf("websocket write error: %v", err)
		_ = conn.Close()
		return
	}
	observability.IncFanoutDelivery(event.Type)
}

// flushLocked captures the whole state under the engine lock and hands it
// to the persistence syncer. Snapshot versions follow mutation order.
func (e *Engine) flushLocked() {
	if e.syncer == nil {
		return
	}
	e.version++
	e.syncer.Enqueue(persistence.Snapshot{
		Version: e.version,
		Users:   e.identity.Export(),
		Rooms:   e.channels.ExportRooms(),
		Threads: e.channels.ExportThreads(),
	})
}
