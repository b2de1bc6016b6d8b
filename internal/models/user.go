package models

// User is the full identity record held by the identity store.
// Token is the single currently-valid session token; it is rotated
// on every successful login.
type User struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	DisplayName  string `json:"displayName"`
	AvatarURL    string `json:"avatarUrl"`
	Color        string `json:"color"`
	Theme        string `json:"theme"`
	Token        string `json:"token"`
}

// PublicProfile is the broadcast-safe view of a user.
type PublicProfile struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	Color       string `json:"color"`
	Theme       string `json:"theme"`
}

// Profile returns the public view of the user.
func (u User) Profile() PublicProfile {
	return PublicProfile{
		UID:         u.UID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Color:       u.Color,
		Theme:       u.Theme,
	}
}

// ProfileUpdate is a partial profile mutation. Nil fields are left
// unchanged; AvatarURL may be set to the empty string to clear it.
type ProfileUpdate struct {
	DisplayName *string `json:"displayName,omitempty"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
	Color       *string `json:"color,omitempty"`
	Theme       *string `json:"theme,omitempty"`
}
