package persona

import (
	"time"

	"github.com/google/uuid"
)

// PurposePersonaDiscovery tags the fixed-purpose chat session used to elicit
// personality, values and goals signal from a user.
const PurposePersonaDiscovery = "persona_discovery"

// Sender is a closed enum over message authorship.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Role maps a sender to its chat-completion role. Exhaustive over the enum;
// unknown senders map to the user role so a malformed document never produces
// an invalid request.
func (s Sender) Role() string {
	switch s {
	case SenderUser:
		return "user"
	case SenderAssistant:
		return "assistant"
	default:
		return "user"
	}
}

// Message is one chat turn. Immutable once appended to a conversation.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ExtractionResult is the structured output of the one-time analytical pass
// over a finished discovery conversation. Embedded in the conversation
// document.
type ExtractionResult struct {
	Traits     []string `json:"traits"`
	Values     []string `json:"values"`
	Goals      []string `json:"goals"`
	Challenges []string `json:"challenges"`
	Interests  []string `json:"interests"`

	CommunicationStyle string `json:"communication_style"`
	DecisionMaking     string `json:"decision_making"`
	PrimaryMotivation  string `json:"primary_motivation"`
	LearningStyle      string `json:"learning_style"`

	Confidence  float64   `json:"confidence"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// Conversation is the persona-discovery conversation document, stored as JSON
// in the conversation store and partitioned by owning user. Messages are
// append-only; insertion order is chronological order.
type Conversation struct {
	ID      uuid.UUID `json:"id"`
	UserID  uuid.UUID `json:"user_id"`
	Purpose string    `json:"purpose"`
	Active  bool      `json:"active"`

	Messages []Message `json:"messages"`

	LastMessageAt time.Time `json:"last_message_at"`
	MessageCount  int       `json:"message_count"`

	// CompletionPct is a heuristic 0-100 estimate, not semantic understanding.
	CompletionPct float64 `json:"completion_pct"`

	Extraction *ExtractionResult `json:"extraction,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewConversation returns an empty active discovery conversation for a user.
func NewConversation(userID uuid.UUID) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		Purpose:   PurposePersonaDiscovery,
		Active:    true,
		Messages:  []Message{},
		CreatedAt: now,
	}
}

// Append adds a message and keeps the count/last-at fields consistent.
func (c *Conversation) Append(sender Sender, content string, at time.Time) Message {
	msg := Message{
		ID:        uuid.New(),
		Sender:    sender,
		Content:   content,
		Timestamp: at,
	}
	c.Messages = append(c.Messages, msg)
	c.MessageCount = len(c.Messages)
	c.LastMessageAt = at
	return msg
}
