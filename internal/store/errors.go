package store

import "errors"

// Recoverable, user-visible failures returned by the stores. Handlers map
// these to HTTP statuses; the websocket layer maps them to silent drops or
// auth:fail, matching the transport contract.
var (
	ErrEmailTaken         = errors.New("email in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserNotFound       = errors.New("user not found")
	ErrRoomNotFound       = errors.New("room not found")
	ErrThreadNotFound     = errors.New("thread not found")
	ErrNotAuthorized      = errors.New("not allowed")
	ErrEmptyContent       = errors.New("empty message content")
)
