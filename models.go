package notifier

import (
	"encoding/json"
	"fmt"
)

// Outcome is the terminal result of handling a single event.
type Outcome string

const (
	// OutcomeUnknown means handling did not reach a terminal state. The event
	// is neither sent nor dead-lettered and must be redelivered by the caller.
	OutcomeUnknown Outcome = "unknown"
	// OutcomeSent means the transport accepted the message and a dedup record
	// was written for the event ID.
	OutcomeSent Outcome = "sent"
	// OutcomeDeduplicated means a live dedup record suppressed the send.
	OutcomeDeduplicated Outcome = "deduplicated"
	// OutcomeDeadLettered means the send failed and the event was recorded in
	// the dead-letter store.
	OutcomeDeadLettered Outcome = "dead_lettered"
	// OutcomeRejected means the event was malformed and no collaborator was
	// called.
	OutcomeRejected Outcome = "rejected"
)

// Event is a single unit of notification work. It is read-only to the
// dispatcher; the payload is opaque here and only interpreted by the renderer.
type Event struct {
	EventID   string          `json:"event_id"`
	Recipient string          `json:"recipient"`
	Payload   json.RawMessage `json:"payload"`
	// Attempt counts prior delivery attempts. Zero on first delivery,
	// incremented by the replay service on resubmission.
	Attempt int `json:"attempt,omitempty"`
}

// Message is a rendered, transport-ready notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

func validateEvent(event Event) error {
	if event.EventID == "" {
		return fmt.Errorf("%w: event_id is required", ErrInvalidEvent)
	}
	if event.Recipient == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidEvent)
	}
	if len(event.Payload) == 0 {
		return fmt.Errorf("%w: payload is required", ErrInvalidEvent)
	}
	return nil
}
