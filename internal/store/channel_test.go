package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-service/internal/models"
)

func testUser(uid, name string) models.User {
	return models.User{UID: uid, DisplayName: name}
}

func TestThreadIDOrderIndependent(t *testing.T) {
	assert.Equal(t, ThreadID("u1", "u2"), ThreadID("u2", "u1"))
	assert.Equal(t, "u1_u2", ThreadID("u2", "u1"))
}

func TestCreateRoomMembership(t *testing.T) {
	s := NewChannels(nil, nil)

	private := s.CreateRoom("owner", "secret", true)
	assert.True(t, private.IsPrivate)
	assert.Equal(t, []string{"owner"}, private.Members)

	public := s.CreateRoom("owner", "general", false)
	assert.False(t, public.IsPrivate)
	assert.Empty(t, public.Members)
}

func TestInviteAuthorizationAndIdempotence(t *testing.T) {
	s := NewChannels(nil, nil)
	room := s.CreateRoom("owner", "secret", true)

	_, err := s.Invite("missing", "owner", "u2")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = s.Invite(room.ID, "stranger", "u2")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	updated, err := s.Invite(room.ID, "owner", "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"owner", "u2"}, updated.Members)

	// Members may invite too; inviting an existing member changes nothing.
	again, err := s.Invite(room.ID, "u2", "u2")
	require.NoError(t, err)
	assert.Equal(t, updated.Members, again.Members)
}

func TestOpenThreadIdempotentUnderConcurrency(t *testing.T) {
	s := NewChannels(nil, nil)

	var wg sync.WaitGroup
	created := make([]bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "u1", "u2"
			if i%2 == 1 {
				a, b = b, a
			}
			_, created[i] = s.OpenThread(a, b)
		}(i)
	}
	wg.Wait()

	creations := 0
	for _, c := range created {
		if c {
			creations++
		}
	}
	assert.Equal(t, 1, creations)

	thread, created2 := s.OpenThread("u2", "u1")
	assert.False(t, created2)
	assert.Equal(t, ThreadID("u1", "u2"), thread.ID)
}

func TestAppendPublicRoomOpenToAnyUser(t *testing.T) {
	s := NewChannels(nil, nil)
	room := s.CreateRoom("owner", "general", false)

	msg, err := s.Append(models.ChannelRoom, room.ID, testUser("u2", "Bob"), "hi all", "")
	require.NoError(t, err)
	assert.Equal(t, "u2", msg.AuthorID)
	assert.Equal(t, "Bob", msg.DisplayName)
}

func TestAppendPrivateRoomRequiresMembership(t *testing.T) {
	s := NewChannels(nil, nil)
	room := s.CreateRoom("owner", "secret", true)

	_, err := s.Append(models.ChannelRoom, room.ID, testUser("u2", "Bob"), "hi", "")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	got, err := s.GetRoom(room.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Messages, "failed append must not mutate the log")

	_, err = s.Invite(room.ID, "owner", "u2")
	require.NoError(t, err)

	_, err = s.Append(models.ChannelRoom, room.ID, testUser("u2", "Bob"), "hi", "")
	require.NoError(t, err)
}

func TestAppendDMRequiresParticipant(t *testing.T) {
	s := NewChannels(nil, nil)
	thread, _ := s.OpenThread("u1", "u2")

	_, err := s.Append(models.ChannelDM, thread.ID, testUser("u3", "Eve"), "psst", "")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = s.Append(models.ChannelDM, thread.ID, testUser("u1", "Alice"), "hey", "")
	require.NoError(t, err)
}

func TestAppendRejectsEmptyContent(t *testing.T) {
	s := NewChannels(nil, nil)
	room := s.CreateRoom("owner", "general", false)

	_, err := s.Append(models.ChannelRoom, room.ID, testUser("owner", "A"), "", "")
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = s.Append(models.ChannelRoom, room.ID, testUser("owner", "A"), "", "/uploads/x.png")
	require.NoError(t, err, "image-only messages are valid")
}

func TestAppendUnknownChannel(t *testing.T) {
	s := NewChannels(nil, nil)

	_, err := s.Append(models.ChannelRoom, "missing", testUser("u1", "A"), "hi", "")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = s.Append(models.ChannelDM, "missing", testUser("u1", "A"), "hi", "")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestAppendCreatedAtMonotonic(t *testing.T) {
	s := NewChannels(nil, nil)
	room := s.CreateRoom("owner", "general", false)

	clock := int64(1000)
	s.now = func() int64 { return clock }

	first, err := s.Append(models.ChannelRoom, room.ID, testUser("owner", "A"), "one", "")
	require.NoError(t, err)

	// A clock stepping backwards must not reorder the log.
	clock = 500
	second, err := s.Append(models.ChannelRoom, room.ID, testUser("owner", "A"), "two", "")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, second.CreatedAt, first.CreatedAt)

	got, err := s.GetRoom(room.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "one", got.Messages[0].Text)
	assert.Equal(t, "two", got.Messages[1].Text)
}

func TestVisibleRoomsScoping(t *testing.T) {
	s := NewChannels(nil, nil)
	public := s.CreateRoom("owner", "general", false)
	private := s.CreateRoom("owner", "secret", true)

	visible := s.VisibleRooms("stranger")
	require.Len(t, visible, 1)
	assert.Equal(t, public.ID, visible[0].ID)

	_, err := s.Invite(private.ID, "owner", "stranger")
	require.NoError(t, err)
	assert.Len(t, s.VisibleRooms("stranger"), 2)
	assert.Len(t, s.VisibleRooms("owner"), 2)
}

func TestThreadsForParticipantOnly(t *testing.T) {
	s := NewChannels(nil, nil)
	s.OpenThread("u1", "u2")
	s.OpenThread("u1", "u3")

	assert.Len(t, s.ThreadsFor("u1"), 2)
	assert.Len(t, s.ThreadsFor("u2"), 1)
	assert.Empty(t, s.ThreadsFor("u4"))
}

func TestEntitledUsers(t *testing.T) {
	s := NewChannels(nil, nil)
	public := s.CreateRoom("owner", "general", false)
	private := s.CreateRoom("owner", "secret", true)
	thread, _ := s.OpenThread("u1", "u2")

	_, isPublic, err := s.EntitledUsers(models.ChannelRoom, public.ID)
	require.NoError(t, err)
	assert.True(t, isPublic)

	uids, isPublic, err := s.EntitledUsers(models.ChannelRoom, private.ID)
	require.NoError(t, err)
	assert.False(t, isPublic)
	assert.Contains(t, uids, "owner")

	uids, _, err = s.EntitledUsers(models.ChannelDM, thread.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, uids)
}
