package models

// Server-to-client event types.
const (
	EventAuthOK        = "auth:ok"
	EventAuthFail      = "auth:fail"
	EventState         = "state"
	EventRoomsUpdate   = "rooms:update"
	EventMessage       = "message"
	EventProfileUpdate = "profile:update"
	EventPresence      = "presence"
)

// Client-to-server frame types.
const (
	FrameAuth          = "auth"
	FrameSendMessage   = "sendMessage"
	FrameUpdateProfile = "updateProfile"
)

// Event is the envelope pushed to websocket clients. Only the fields
// relevant to Type are populated.
type Event struct {
	Type        string          `json:"type"`
	Profile     *PublicProfile  `json:"profile,omitempty"`
	Rooms       []Room          `json:"rooms,omitempty"`
	DMs         []DirectThread  `json:"dms,omitempty"`
	Users       []PublicProfile `json:"users,omitempty"`
	ChannelType string          `json:"channelType,omitempty"`
	ChannelID   string          `json:"channelId,omitempty"`
	Message     *Message        `json:"message,omitempty"`
}

// ClientFrame is a frame received from a websocket client.
type ClientFrame struct {
	Type        string `json:"type"`
	Token       string `json:"token"`
	ChannelType string `json:"channelType"`
	ChannelID   string `json:"channelId"`
	Text        string `json:"text"`
	ImageURL    string `json:"imageUrl"`

	// updateProfile fields
	DisplayName *string `json:"displayName,omitempty"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
	Color       *string `json:"color,omitempty"`
	Theme       *string `json:"theme,omitempty"`
}

// ProfileUpdate extracts the partial profile mutation carried by an
// updateProfile frame.
func (f ClientFrame) ProfileUpdate() ProfileUpdate {
	return ProfileUpdate{
		DisplayName: f.DisplayName,
		AvatarURL:   f.AvatarURL,
		Color:       f.Color,
		Theme:       f.Theme,
	}
}
