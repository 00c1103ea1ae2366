package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/spinnernet/backend/internal/discovery"
	"github.com/spinnernet/backend/internal/domain/persona"
)

type fakeDiscovery struct {
	result   *discovery.TurnResult
	err      error
	active   *persona.Conversation
	delay    time.Duration
	calls    int
	lastText string
}

func (f *fakeDiscovery) ProcessMessage(ctx context.Context, userID uuid.UUID, text string) (*discovery.TurnResult, error) {
	f.calls++
	f.lastText = text
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeDiscovery) ActiveConversation(ctx context.Context, userID uuid.UUID) (*persona.Conversation, error) {
	return f.active, nil
}

type notifierCall struct {
	kind     string
	userID   uuid.UUID
	text     string
	progress float64
}

type recordingNotifier struct {
	calls []notifierCall
}

func (n *recordingNotifier) MessageReceived(userID uuid.UUID, text string, progress float64) {
	n.calls = append(n.calls, notifierCall{"message", userID, text, progress})
}

func (n *recordingNotifier) ErrorMessage(userID uuid.UUID, text string) {
	n.calls = append(n.calls, notifierCall{kind: "error", userID: userID, text: text})
}

func (n *recordingNotifier) PersonaComplete(userID uuid.UUID, text string) {
	n.calls = append(n.calls, notifierCall{kind: "complete", userID: userID, text: text})
}

func (n *recordingNotifier) Paused(userID uuid.UUID) {
	n.calls = append(n.calls, notifierCall{kind: "paused", userID: userID})
}

func (n *recordingNotifier) Resumed(userID uuid.UUID) {
	n.calls = append(n.calls, notifierCall{kind: "resumed", userID: userID})
}

func newTestGateway(t *testing.T, svc discovery.Service, notify Notifier) *Gateway {
	t.Helper()
	return NewGateway(testLogger(t), NewHub(testLogger(t)), svc, notify, time.Minute)
}

func TestGateway_SendMessageNotifiesReply(t *testing.T) {
	svc := &fakeDiscovery{result: &discovery.TurnResult{Reply: "tell me more", Progress: 42}}
	n := &recordingNotifier{}
	g := newTestGateway(t, svc, n)
	userID := uuid.New()
	client := g.hub.NewClient(userID)

	g.handleFrame(context.Background(), client, userID, inboundFrame{Type: "send_message", Text: "hello"})

	if svc.calls != 1 || svc.lastText != "hello" {
		t.Fatalf("unexpected service use: calls=%d text=%q", svc.calls, svc.lastText)
	}
	if len(n.calls) != 1 {
		t.Fatalf("expected a single notification, got %d", len(n.calls))
	}
	if n.calls[0].kind != "message" || n.calls[0].text != "tell me more" || n.calls[0].progress != 42 {
		t.Fatalf("unexpected notification: %+v", n.calls[0])
	}
}

func TestGateway_TurnFailureBecomesFallbackReply(t *testing.T) {
	svc := &fakeDiscovery{err: fmt.Errorf("upstream unavailable")}
	n := &recordingNotifier{}
	g := newTestGateway(t, svc, n)
	userID := uuid.New()
	client := g.hub.NewClient(userID)

	g.handleFrame(context.Background(), client, userID, inboundFrame{Type: "send_message", Text: "hi"})

	if len(n.calls) != 1 {
		t.Fatalf("expected a single notification, got %d", len(n.calls))
	}
	if n.calls[0].kind != "message" || n.calls[0].text != fallbackReply || n.calls[0].progress != 0 {
		t.Fatalf("failed turn must surface the fallback reply with progress 0, got %+v", n.calls[0])
	}
}

func TestGateway_FullProgressEmitsPersonaComplete(t *testing.T) {
	svc := &fakeDiscovery{result: &discovery.TurnResult{Reply: "all done", Progress: 100}}
	n := &recordingNotifier{}
	g := newTestGateway(t, svc, n)
	userID := uuid.New()
	client := g.hub.NewClient(userID)

	g.handleFrame(context.Background(), client, userID, inboundFrame{Type: "send_message", Text: "last one"})

	if len(n.calls) != 2 {
		t.Fatalf("expected reply + completion, got %d notifications", len(n.calls))
	}
	if n.calls[0].kind != "message" || n.calls[0].progress != 100 {
		t.Fatalf("unexpected reply notification: %+v", n.calls[0])
	}
	if n.calls[1].kind != "complete" || n.calls[1].text != completeReply {
		t.Fatalf("unexpected completion notification: %+v", n.calls[1])
	}
}

func TestGateway_EmptyTextRejectedWithoutTurn(t *testing.T) {
	svc := &fakeDiscovery{result: &discovery.TurnResult{Reply: "unused"}}
	n := &recordingNotifier{}
	g := newTestGateway(t, svc, n)
	userID := uuid.New()
	client := g.hub.NewClient(userID)

	g.handleFrame(context.Background(), client, userID, inboundFrame{Type: "send_message", Text: "   "})

	if svc.calls != 0 {
		t.Fatalf("blank text must not start a turn")
	}
	if len(n.calls) != 1 || n.calls[0].kind != "error" || n.calls[0].text != emptyTextErr {
		t.Fatalf("expected the empty-text error, got %+v", n.calls)
	}
}

func TestGateway_MissingIdentityErrorReachesConnection(t *testing.T) {
	svc := &fakeDiscovery{result: &discovery.TurnResult{Reply: "unused"}}
	n := &recordingNotifier{}
	g := newTestGateway(t, svc, n)
	client := g.hub.NewClient(uuid.Nil)

	g.handleFrame(context.Background(), client, uuid.Nil, inboundFrame{Type: "send_message", Text: "hi"})

	if svc.calls != 0 {
		t.Fatalf("unauthenticated frame must not start a turn")
	}
	if len(n.calls) != 0 {
		t.Fatalf("auth error must not go through user-keyed routing, got %+v", n.calls)
	}
	select {
	case ev := <-client.Outbound:
		if ev.Type != EventReceiveError {
			t.Fatalf("unexpected event type %q", ev.Type)
		}
		if text, _ := ev.Data["text"].(string); text != authErrorText {
			t.Fatalf("unexpected error text %q", text)
		}
	default:
		t.Fatalf("auth error did not reach the connection")
	}
}

func TestGateway_PauseAndResumeAcks(t *testing.T) {
	n := &recordingNotifier{}
	g := newTestGateway(t, &fakeDiscovery{}, n)
	userID := uuid.New()
	client := g.hub.NewClient(userID)

	g.handleFrame(context.Background(), client, userID, inboundFrame{Type: "pause"})
	g.handleFrame(context.Background(), client, userID, inboundFrame{Type: "resume"})

	if len(n.calls) != 2 || n.calls[0].kind != "paused" || n.calls[1].kind != "resumed" {
		t.Fatalf("unexpected acks: %+v", n.calls)
	}
}

func TestGateway_StartDiscoveryReportsActiveProgress(t *testing.T) {
	active := persona.NewConversation(uuid.New())
	active.CompletionPct = 35
	n := &recordingNotifier{}
	g := newTestGateway(t, &fakeDiscovery{active: active}, n)
	userID := uuid.New()
	client := g.hub.NewClient(userID)

	g.handleFrame(context.Background(), client, userID, inboundFrame{Type: "start_discovery"})

	if len(n.calls) != 1 || n.calls[0].kind != "message" {
		t.Fatalf("expected the welcome message, got %+v", n.calls)
	}
	if n.calls[0].text != welcomeReply || n.calls[0].progress != 35 {
		t.Fatalf("welcome must carry the active conversation's progress, got %+v", n.calls[0])
	}
}

func TestGateway_StartDiscoveryWithoutConversation(t *testing.T) {
	n := &recordingNotifier{}
	g := newTestGateway(t, &fakeDiscovery{}, n)
	userID := uuid.New()
	client := g.hub.NewClient(userID)

	g.handleFrame(context.Background(), client, userID, inboundFrame{Type: "start_discovery"})

	if len(n.calls) != 1 || n.calls[0].progress != 0 {
		t.Fatalf("expected welcome with progress 0, got %+v", n.calls)
	}
}

func TestGateway_UnknownFrameIgnored(t *testing.T) {
	svc := &fakeDiscovery{}
	n := &recordingNotifier{}
	g := newTestGateway(t, svc, n)
	userID := uuid.New()
	client := g.hub.NewClient(userID)

	g.handleFrame(context.Background(), client, userID, inboundFrame{Type: "nonsense"})

	if svc.calls != 0 || len(n.calls) != 0 {
		t.Fatalf("unknown frame must be a noop")
	}
}

// hubNotifier delivers straight to the local hub, standing in for the
// emitter-backed notifier in connection-level tests.
type hubNotifier struct{ hub *Hub }

func (n *hubNotifier) MessageReceived(userID uuid.UUID, text string, progress float64) {
	n.hub.SendToUser(userID, Event{UserID: userID, Type: EventReceiveMessage, Data: map[string]any{"text": text, "progress": progress}})
}

func (n *hubNotifier) ErrorMessage(userID uuid.UUID, text string) {
	n.hub.SendToUser(userID, Event{UserID: userID, Type: EventReceiveError, Data: map[string]any{"text": text}})
}

func (n *hubNotifier) PersonaComplete(userID uuid.UUID, text string) {
	n.hub.SendToUser(userID, Event{UserID: userID, Type: EventPersonaComplete, Data: map[string]any{"text": text}})
}

func (n *hubNotifier) Paused(userID uuid.UUID) {
	n.hub.SendToUser(userID, Event{UserID: userID, Type: EventConversationPaused})
}

func (n *hubNotifier) Resumed(userID uuid.UUID) {
	n.hub.SendToUser(userID, Event{UserID: userID, Type: EventConversationResumed})
}

func TestGateway_ConnectionSurvivesTurnLongerThanPongWindow(t *testing.T) {
	hub := NewHub(testLogger(t))
	userID := uuid.New()
	svc := &fakeDiscovery{
		delay:  900 * time.Millisecond,
		result: &discovery.TurnResult{Reply: "noted", Progress: 10},
	}
	g := NewGateway(testLogger(t), hub, svc, &hubNotifier{hub}, time.Minute)
	g.pongWait = 300 * time.Millisecond

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		g.HandleConnection(r.Context(), conn, userID)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// Two round trips: each turn outlives the pong window, so without a
	// fresh read deadline after handling the second one never arrives.
	for i := 0; i < 2; i++ {
		if err := conn.WriteJSON(inboundFrame{Type: "send_message", Text: "hi"}); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read %d failed: %v", i, err)
		}
		if ev.Type != EventReceiveMessage {
			t.Fatalf("unexpected event type %q on round trip %d", ev.Type, i)
		}
	}
}
