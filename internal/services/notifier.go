package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/spinnernet/backend/internal/realtime"
)

// discoveryNotifier implements realtime.Notifier over the event emitter.
type discoveryNotifier struct {
	emit EventEmitter
}

func NewDiscoveryNotifier(emit EventEmitter) realtime.Notifier {
	return &discoveryNotifier{emit: emit}
}

func (n *discoveryNotifier) MessageReceived(userID uuid.UUID, text string, progress float64) {
	n.send(userID, realtime.EventReceiveMessage, map[string]any{
		"text":     text,
		"progress": progress,
	})
}

func (n *discoveryNotifier) ErrorMessage(userID uuid.UUID, text string) {
	n.send(userID, realtime.EventReceiveError, map[string]any{"text": text})
}

func (n *discoveryNotifier) PersonaComplete(userID uuid.UUID, text string) {
	n.send(userID, realtime.EventPersonaComplete, map[string]any{"text": text})
}

func (n *discoveryNotifier) Paused(userID uuid.UUID) {
	n.send(userID, realtime.EventConversationPaused, map[string]any{
		"text": "Conversation paused. Pick it back up whenever you're ready.",
	})
}

func (n *discoveryNotifier) Resumed(userID uuid.UUID) {
	n.send(userID, realtime.EventConversationResumed, map[string]any{
		"text": "Welcome back! Let's keep going.",
	})
}

func (n *discoveryNotifier) send(userID uuid.UUID, eventType realtime.EventType, data map[string]any) {
	if n == nil || n.emit == nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.Event{
		UserID: userID,
		Type:   eventType,
		Data:   data,
	})
}
