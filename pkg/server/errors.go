package server

import (
	"errors"
)

// Sentinel errors for dispatch failures.
var (
	// ErrNotJoined is returned when a message that requires a joined user
	// arrives on a connection without one.
	ErrNotJoined = errors.New("server: not joined")

	// ErrAlreadyJoined is returned when a second join request arrives on a
	// connection that already carries a user.
	ErrAlreadyJoined = errors.New("server: already joined")

	// ErrUnknownMessage is returned for a message tag the server does not
	// handle.
	ErrUnknownMessage = errors.New("server: unknown message")
)
