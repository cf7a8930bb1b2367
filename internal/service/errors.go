package service

import "errors"

// Errors surfaced to the originating connection. Delivery failures are never
// surfaced; they are counted and logged per connection instead.
var (
	// ErrInvalidRoom rejects a join with an empty or missing room name.
	ErrInvalidRoom = errors.New("invalid room name")

	// ErrInvalidMessage rejects a chat message missing required fields.
	ErrInvalidMessage = errors.New("invalid chat message")

	// ErrPersistence reports a store write failure. The broadcast for the
	// message still happens; only durability is lost.
	ErrPersistence = errors.New("message store unavailable")
)
