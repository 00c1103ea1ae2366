package realtime

import "github.com/google/uuid"

// EventType enumerates the outbound events the discovery gateway can push.
type EventType string

const (
	EventReceiveMessage      EventType = "receive_message"
	EventReceiveError        EventType = "receive_error"
	EventPersonaComplete     EventType = "persona_complete"
	EventConversationPaused  EventType = "conversation_paused"
	EventConversationResumed EventType = "conversation_resumed"
)

// Event is a single message pushed to a user's connections. UserID is the
// routing key: every connection in the user's group receives the event.
type Event struct {
	UserID uuid.UUID      `json:"user_id"`
	Type   EventType      `json:"type"`
	Data   map[string]any `json:"data,omitempty"`
}
