package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"relay-service/internal/models"
)

// Profile defaults applied on signup.
const (
	DefaultColor = "#5865F2"
	DefaultTheme = "black-gray"
)

// Identity holds all user records and resolves bearer tokens. It is
// constructed once at process start and shared by reference; all access is
// guarded by an internal RWMutex.
type Identity struct {
	mu    sync.RWMutex
	users map[string]models.User // uid -> user
}

// NewIdentity builds an identity store seeded from a snapshot (may be nil).
func NewIdentity(seed map[string]models.User) *Identity {
	users := make(map[string]models.User, len(seed))
	for uid, u := range seed {
		users[uid] = u
	}
	return &Identity{users: users}
}

// CreateUser registers a new user. The email must be unused
// (case-insensitive); the credential is bcrypt-hashed before storage and a
// fresh session token is issued.
func (s *Identity) CreateUser(email, password, displayName string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return models.User{}, ErrEmailTaken
		}
	}

	if displayName == "" {
		displayName = strings.SplitN(email, "@", 2)[0]
	}

	user := models.User{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Color:        DefaultColor,
		Theme:        DefaultTheme,
		Token:        uuid.NewString(),
	}
	s.users[user.UID] = user
	return user, nil
}

// Authenticate verifies the credential for a case-insensitive email lookup
// and rotates the session token on success, invalidating any prior token.
func (s *Identity) Authenticate(email, password string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for uid, u := range s.users {
		if !strings.EqualFold(u.Email, email) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return models.User{}, ErrInvalidCredentials
		}
		u.Token = uuid.NewString()
		s.users[uid] = u
		return u, nil
	}
	return models.User{}, ErrInvalidCredentials
}

// ResolveToken maps a bearer token to its user. Forged, stale, or empty
// tokens always resolve to ErrInvalidToken, never to a default identity.
func (s *Identity) ResolveToken(token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrInvalidToken
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Token == token {
			return u, nil
		}
	}
	return models.User{}, ErrInvalidToken
}

// Get fetches a user by id.
func (s *Identity) Get(uid string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[uid]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return u, nil
}

// FindByEmail looks a user up by case-insensitive email.
func (s *Identity) FindByEmail(email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, ErrUserNotFound
}

// UpdateProfile applies a partial update to display fields. Nil fields are
// left unchanged; empty DisplayName/Color/Theme are ignored, while AvatarURL
// may be cleared with an explicit empty string.
func (s *Identity) UpdateProfile(uid string, upd models.ProfileUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	if upd.DisplayName != nil && *upd.DisplayName != "" {
		u.DisplayName = *upd.DisplayName
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = *upd.AvatarURL
	}
	if upd.Color != nil && *upd.Color != "" {
		u.Color = *upd.Color
	}
	if upd.Theme != nil && *upd.Theme != "" {
		u.Theme = *upd.Theme
	}
	s.users[uid] = u
	return u, nil
}

// Profiles returns the public profiles of the given user ids, skipping
// unknown ids, sorted by display name for stable output.
func (s *Identity) Profiles(uids []string) []models.PublicProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := make([]models.PublicProfile, 0, len(uids))
	for _, uid := range uids {
		if u, ok := s.users[uid]; ok {
			profiles = append(profiles, u.Profile())
		}
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].DisplayName < profiles[j].DisplayName })
	return profiles
}

// AllProfiles returns the public profiles of every registered user.
func (s *Identity) AllProfiles() []models.PublicProfile {
	s.mu.RLock()
	uids := make([]string, 0, len(s.users))
	for uid := range s.users {
		uids = append(uids, uid)
	}
	s.mu.RUnlock()
	return s.Profiles(uids)
}

// Export copies the full user collection for snapshotting.
func (s *Identity) Export() map[string]models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.User, len(s.users))
	for uid, u := range s.users {
		out[uid] = u
	}
	return out
}
