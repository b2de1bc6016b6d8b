package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-service/internal/models"
)

func profileUpdate(name, avatar, color, theme *string) models.ProfileUpdate {
	return models.ProfileUpdate{DisplayName: name, AvatarURL: avatar, Color: color, Theme: theme}
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	s := NewIdentity(nil)

	user, err := s.CreateUser("a@x.com", "p1", "Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, user.UID)
	assert.NotEmpty(t, user.Token)
	assert.NotEqual(t, "p1", user.PasswordHash)
	assert.Equal(t, DefaultColor, user.Color)
	assert.Equal(t, DefaultTheme, user.Theme)

	authed, err := s.Authenticate("a@x.com", "p1")
	require.NoError(t, err)
	assert.Equal(t, user.UID, authed.UID)
}

func TestCreateUserEmailTakenCaseInsensitive(t *testing.T) {
	s := NewIdentity(nil)

	_, err := s.CreateUser("a@x.com", "p1", "")
	require.NoError(t, err)

	_, err = s.CreateUser("A@X.COM", "p2", "")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestCreateUserDefaultsDisplayNameToEmailLocalPart(t *testing.T) {
	s := NewIdentity(nil)

	user, err := s.CreateUser("bob@example.org", "p1", "")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.DisplayName)
}

func TestAuthenticateRotatesTokenInvalidatingPrior(t *testing.T) {
	s := NewIdentity(nil)

	user, err := s.CreateUser("a@x.com", "p1", "Alice")
	require.NoError(t, err)
	signupToken := user.Token

	authed, err := s.Authenticate("a@x.com", "p1")
	require.NoError(t, err)
	require.NotEqual(t, signupToken, authed.Token)

	_, err = s.ResolveToken(signupToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	resolved, err := s.ResolveToken(authed.Token)
	require.NoError(t, err)
	assert.Equal(t, user.UID, resolved.UID)
}

func TestAuthenticateInvalidCredentials(t *testing.T) {
	s := NewIdentity(nil)

	_, err := s.CreateUser("a@x.com", "p1", "")
	require.NoError(t, err)

	_, err = s.Authenticate("a@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Authenticate("nobody@x.com", "p1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResolveTokenRejectsEmptyAndForged(t *testing.T) {
	s := NewIdentity(nil)

	_, err := s.ResolveToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.ResolveToken("forged-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUpdateProfilePartial(t *testing.T) {
	s := NewIdentity(nil)

	user, err := s.CreateUser("a@x.com", "p1", "Alice")
	require.NoError(t, err)

	name := "Alicia"
	updated, err := s.UpdateProfile(user.UID, profileUpdate(&name, nil, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, "Alicia", updated.DisplayName)
	assert.Equal(t, DefaultColor, updated.Color)

	// Avatar may be set and cleared explicitly.
	avatar := "/uploads/a.png"
	updated, err = s.UpdateProfile(user.UID, profileUpdate(nil, &avatar, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, avatar, updated.AvatarURL)

	empty := ""
	updated, err = s.UpdateProfile(user.UID, profileUpdate(nil, &empty, nil, nil))
	require.NoError(t, err)
	assert.Empty(t, updated.AvatarURL)
	assert.Equal(t, "Alicia", updated.DisplayName)
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	s := NewIdentity(nil)

	name := "x"
	_, err := s.UpdateProfile("missing", profileUpdate(&name, nil, nil, nil))
	assert.ErrorIs(t, err, ErrUserNotFound)
}
