package models

// Channel type discriminators used on the wire and in channel refs.
const (
	ChannelRoom = "room"
	ChannelDM   = "dm"
)

// Room is a named channel. Public rooms are readable and writable by any
// authenticated user; private rooms only by the owner and invited members.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsPrivate bool      `json:"isPrivate"`
	OwnerID   string    `json:"owner"`
	Members   []string  `json:"members"`
	Messages  []Message `json:"messages"`
}

// DirectThread is the one-to-one channel between exactly two users. Its id
// is the sorted, underscore-joined participant pair, so at most one thread
// exists per pair.
type DirectThread struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	Messages     []Message `json:"messages"`
}

// Message is an immutable entry in a channel's append log. At least one of
// Text and ImageURL is always present; CreatedAt (unix millis) is
// server-assigned and non-decreasing within a channel.
type Message struct {
	ID          string `json:"id"`
	AuthorID    string `json:"uid"`
	DisplayName string `json:"displayName"`
	Text        string `json:"text"`
	ImageURL    string `json:"imageUrl"`
	CreatedAt   int64  `json:"createdAt"`
}
