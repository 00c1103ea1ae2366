package realtime

import (
	"testing"

	"github.com/google/uuid"

	"github.com/spinnernet/backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init failed: %v", err)
	}
	return log
}

func TestHub_SendToUserReachesAllConnections(t *testing.T) {
	hub := NewHub(testLogger(t))
	userID := uuid.New()
	a := hub.NewClient(userID)
	b := hub.NewClient(userID)
	other := hub.NewClient(uuid.New())

	hub.SendToUser(userID, Event{UserID: userID, Type: EventReceiveMessage})

	for _, c := range []*Client{a, b} {
		select {
		case ev := <-c.Outbound:
			if ev.Type != EventReceiveMessage {
				t.Fatalf("unexpected event type %q", ev.Type)
			}
		default:
			t.Fatalf("client did not receive event")
		}
	}
	select {
	case <-other.Outbound:
		t.Fatalf("event leaked to another user's connection")
	default:
	}
}

func TestHub_SendToUnknownUserIsNoop(t *testing.T) {
	hub := NewHub(testLogger(t))
	hub.SendToUser(uuid.New(), Event{Type: EventReceiveMessage})
}

func TestHub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(testLogger(t))
	userID := uuid.New()
	client := hub.NewClient(userID)

	// Fill the buffer and push one more; the call must return.
	for i := 0; i < cap(client.Outbound)+5; i++ {
		hub.SendToUser(userID, Event{UserID: userID, Type: EventReceiveMessage})
	}
	if len(client.Outbound) != cap(client.Outbound) {
		t.Fatalf("expected a full buffer, got %d", len(client.Outbound))
	}
}

func TestHub_CloseClient(t *testing.T) {
	hub := NewHub(testLogger(t))
	client := hub.NewClient(uuid.New())

	hub.CloseClient(client)
	select {
	case <-client.Done():
	default:
		t.Fatalf("done channel not closed")
	}

	// Second close is a no-op, not a panic.
	hub.CloseClient(client)

	// Events after close must not panic or deliver.
	hub.SendToUser(client.UserID, Event{UserID: client.UserID, Type: EventReceiveMessage})
	if _, ok := <-client.Outbound; ok {
		t.Fatalf("closed client received event")
	}
}

func TestHub_DeliverRoutesByEmbeddedUser(t *testing.T) {
	hub := NewHub(testLogger(t))
	userID := uuid.New()
	client := hub.NewClient(userID)

	hub.Deliver(Event{UserID: userID, Type: EventPersonaComplete})
	select {
	case ev := <-client.Outbound:
		if ev.Type != EventPersonaComplete {
			t.Fatalf("unexpected event type %q", ev.Type)
		}
	default:
		t.Fatalf("Deliver did not route the event")
	}

	// Events without a user id are dropped.
	hub.Deliver(Event{Type: EventPersonaComplete})
	select {
	case <-client.Outbound:
		t.Fatalf("unkeyed event must not be delivered")
	default:
	}
}
