package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"relay-service/internal/models"
)

// Channels holds rooms and direct threads, each an ordered append log with
// a membership policy. Like Identity it is a single owned object guarded by
// an internal RWMutex; the engine additionally serializes mutations.
type Channels struct {
	mu      sync.RWMutex
	rooms   map[string]models.Room
	threads map[string]models.DirectThread

	now func() int64 // injectable clock for tests, unix millis
}

// NewChannels builds a channel store seeded from snapshots (may be nil).
func NewChannels(rooms map[string]models.Room, threads map[string]models.DirectThread) *Channels {
	s := &Channels{
		rooms:   make(map[string]models.Room, len(rooms)),
		threads: make(map[string]models.DirectThread, len(threads)),
		now:     func() int64 { return time.Now().UnixMilli() },
	}
	for id, r := range rooms {
		s.rooms[id] = r
	}
	for id, t := range threads {
		s.threads[id] = t
	}
	return s
}

// ThreadID derives the deterministic, order-independent id for the thread
// between two users.
func ThreadID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

// CreateRoom creates a room owned by ownerID. Private rooms start with the
// owner as sole member; public rooms carry no explicit membership.
func (s *Channels) CreateRoom(ownerID, name string, isPrivate bool) models.Room {
	room := models.Room{
		ID:        uuid.NewString(),
		Name:      name,
		IsPrivate: isPrivate,
		OwnerID:   ownerID,
		Members:   []string{},
		Messages:  []models.Message{},
	}
	if isPrivate {
		room.Members = []string{ownerID}
	}

	s.mu.Lock()
	s.rooms[room.ID] = room
	s.mu.Unlock()
	return room
}

// Invite adds targetID to a private room's membership. Only the owner or an
// existing member may invite; inviting an existing member is a no-op.
func (s *Channels) Invite(roomID, actingID, targetID string) (models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return models.Room{}, ErrRoomNotFound
	}
	if room.OwnerID != actingID && !contains(room.Members, actingID) {
		return models.Room{}, ErrNotAuthorized
	}
	if !contains(room.Members, targetID) {
		room.Members = append(room.Members, targetID)
		s.rooms[roomID] = room
	}
	return room, nil
}

// OpenThread returns the direct thread between two users, creating it with
// an empty log on first contact. Creation is idempotent: concurrent opens
// from both directions converge on the same thread.
func (s *Channels) OpenThread(userA, userB string) (models.DirectThread, bool) {
	id := ThreadID(userA, userB)

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.threads[id]; ok {
		return t, false
	}
	t := models.DirectThread{
		ID:           id,
		Participants: []string{userA, userB},
		Messages:     []models.Message{},
	}
	s.threads[id] = t
	return t, true
}

// canAccessLocked reports whether the user is entitled to read and append
// to the channel.
func (s *Channels) canAccessLocked(channelType, channelID, uid string) (bool, error) {
	switch channelType {
	case models.ChannelRoom:
		room, ok := s.rooms[channelID]
		if !ok {
			return false, ErrRoomNotFound
		}
		if !room.IsPrivate {
			return true, nil
		}
		return room.OwnerID == uid || contains(room.Members, uid), nil
	case models.ChannelDM:
		t, ok := s.threads[channelID]
		if !ok {
			return false, ErrThreadNotFound
		}
		return contains(t.Participants, uid), nil
	default:
		return false, ErrRoomNotFound
	}
}

// Append validates and appends a message to a channel. All preconditions
// (existence, entitlement, content) are checked before any mutation, so a
// failed append leaves the log untouched. CreatedAt is clamped to be
// non-decreasing within the channel.
func (s *Channels) Append(channelType, channelID string, author models.User, text, imageURL string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.canAccessLocked(channelType, channelID, author.UID)
	if err != nil {
		return models.Message{}, err
	}
	if !ok {
		return models.Message{}, ErrNotAuthorized
	}
	if text == "" && imageURL == "" {
		return models.Message{}, ErrEmptyContent
	}

	msg := models.Message{
		ID:          uuid.NewString(),
		AuthorID:    author.UID,
		DisplayName: author.DisplayName,
		Text:        text,
		ImageURL:    imageURL,
		CreatedAt:   s.now(),
	}

	switch channelType {
	case models.ChannelRoom:
		room := s.rooms[channelID]
		if n := len(room.Messages); n > 0 && room.Messages[n-1].CreatedAt > msg.CreatedAt {
			msg.CreatedAt = room.Messages[n-1].CreatedAt
		}
		room.Messages = append(room.Messages, msg)
		s.rooms[channelID] = room
	case models.ChannelDM:
		t := s.threads[channelID]
		if n := len(t.Messages); n > 0 && t.Messages[n-1].CreatedAt > msg.CreatedAt {
			msg.CreatedAt = t.Messages[n-1].CreatedAt
		}
		t.Messages = append(t.Messages, msg)
		s.threads[channelID] = t
	}
	return msg, nil
}

// VisibleRooms returns the rooms readable by the user: every public room
// plus the private rooms where the user is owner or member, sorted by name
// then id for stable wire output.
func (s *Channels) VisibleRooms(uid string) []models.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]models.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		if !room.IsPrivate || room.OwnerID == uid || contains(room.Members, uid) {
			rooms = append(rooms, room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Name != rooms[j].Name {
			return rooms[i].Name < rooms[j].Name
		}
		return rooms[i].ID < rooms[j].ID
	})
	return rooms
}

// ThreadsFor returns the direct threads the user participates in, sorted by
// id.
func (s *Channels) ThreadsFor(uid string) []models.DirectThread {
	s.mu.RLock()
	defer s.mu.RUnlock()

	threads := make([]models.DirectThread, 0)
	for _, t := range s.threads {
		if contains(t.Participants, uid) {
			threads = append(threads, t)
		}
	}
	sort.Slice(threads, func(i, j int) bool { return threads[i].ID < threads[j].ID })
	return threads
}

// EntitledUsers returns the user ids entitled to the channel, or nil with
// public=true when the channel is a public room (entitlement is implicit =
// every authenticated user). The fan-out path re-derives it on every
// message, so membership changes take effect on the very next one.
func (s *Channels) EntitledUsers(channelType, channelID string) (uids []string, public bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch channelType {
	case models.ChannelRoom:
		room, ok := s.rooms[channelID]
		if !ok {
			return nil, false, ErrRoomNotFound
		}
		if !room.IsPrivate {
			return nil, true, nil
		}
		uids = append([]string{room.OwnerID}, room.Members...)
		return uids, false, nil
	case models.ChannelDM:
		t, ok := s.threads[channelID]
		if !ok {
			return nil, false, ErrThreadNotFound
		}
		return append([]string(nil), t.Participants...), false, nil
	default:
		return nil, false, ErrRoomNotFound
	}
}

// GetRoom fetches a room by id.
func (s *Channels) GetRoom(roomID string) (models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return models.Room{}, ErrRoomNotFound
	}
	return room, nil
}

// ExportRooms copies the room collection for snapshotting.
func (s *Channels) ExportRooms() map[string]models.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.Room, len(s.rooms))
	for id, r := range s.rooms {
		out[id] = r
	}
	return out
}

// ExportThreads copies the thread collection for snapshotting.
func (s *Channels) ExportThreads() map[string]models.DirectThread {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.DirectThread, len(s.threads))
	for id, t := range s.threads {
		out[id] = t
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
