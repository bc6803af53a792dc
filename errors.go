package notifier

import "errors"

var (
	// ErrInvalidEvent is returned for events that are missing required fields.
	// Such events are rejected before any collaborator is called.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrTransportClosed is returned by transports after Close.
	ErrTransportClosed = errors.New("transport closed")
)
