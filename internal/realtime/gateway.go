package realtime

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/spinnernet/backend/internal/discovery"
	"github.com/spinnernet/backend/internal/observability"
	"github.com/spinnernet/backend/internal/platform/logger"
)

// Notifier is the gateway's outbound event surface, implemented over the hub
// and the cross-instance bus.
type Notifier interface {
	MessageReceived(userID uuid.UUID, text string, progress float64)
	ErrorMessage(userID uuid.UUID, text string)
	PersonaComplete(userID uuid.UUID, text string)
	Paused(userID uuid.UUID)
	Resumed(userID uuid.UUID)
}

// User-facing copy. Raw errors never reach the client.
const (
	fallbackReply = "I'm having trouble understanding right now. Could you try saying that again?"
	welcomeReply  = "Hi! I'm here to help you discover your persona. Tell me a little about yourself — whatever feels natural."
	completeReply = "Wonderful — I've learned enough to shape your persona. You can review it whenever you like."
	authErrorText = "You need to be signed in to continue."
	emptyTextErr  = "Please type a message first."
)

const (
	defaultWriteWait = 10 * time.Second
	defaultPongWait  = 60 * time.Second
	maxMsgSize       = 16 * 1024
)

type inboundFrame struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Gateway speaks the realtime discovery protocol on top of a WebSocket
// connection: inbound frames become orchestrator calls, outcomes become
// events on the user's group.
type Gateway struct {
	log         *logger.Logger
	hub         *Hub
	discovery   discovery.Service
	notify      Notifier
	turnTimeout time.Duration
	writeWait   time.Duration
	pongWait    time.Duration
}

func NewGateway(log *logger.Logger, hub *Hub, svc discovery.Service, notify Notifier, turnTimeout time.Duration) *Gateway {
	if turnTimeout <= 0 {
		turnTimeout = 2 * time.Minute
	}
	return &Gateway{
		log:         log.With("component", "DiscoveryGateway"),
		hub:         hub,
		discovery:   svc,
		notify:      notify,
		turnTimeout: turnTimeout,
		writeWait:   defaultWriteWait,
		pongWait:    defaultPongWait,
	}
}

// HandleConnection owns the connection until the peer disconnects. The caller
// has already authenticated the user; userID may still be Nil when the
// session expired between upgrade and first frame, in which case every frame
// short-circuits to an auth error event.
func (g *Gateway) HandleConnection(ctx context.Context, conn *websocket.Conn, userID uuid.UUID) {
	client := g.hub.NewClient(userID)
	observability.Current().WSConnInc()
	defer func() {
		g.hub.CloseClient(client)
		observability.Current().WSConnDec()
	}()

	go g.writePump(conn, client)

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(g.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(g.pongWait))
	})

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.Warn("WebSocket read failed", "client_id", client.ID, "error", err)
			}
			return
		}
		g.handleFrame(ctx, client, userID, frame)
		// Frames are handled inline, so a turn longer than the pong window
		// would expire the deadline before the loop reads again.
		_ = conn.SetReadDeadline(time.Now().Add(g.pongWait))
	}
}

func (g *Gateway) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(g.pongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case event, ok := <-client.Outbound:
			_ = conn.SetWriteDeadline(time.Now().Add(g.writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(g.writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) handleFrame(ctx context.Context, client *Client, userID uuid.UUID, frame inboundFrame) {
	if userID == uuid.Nil {
		// The connection is registered under the nil id, which user-keyed
		// routing refuses, so the error goes straight to the handle.
		g.sendDirect(client, Event{
			Type: EventReceiveError,
			Data: map[string]any{"text": authErrorText},
		})
		return
	}

	switch frame.Type {
	case "send_message":
		g.handleSendMessage(ctx, userID, frame.Text)
	case "start_discovery":
		g.handleStartDiscovery(ctx, userID)
	case "pause":
		g.notify.Paused(userID)
	case "resume":
		g.notify.Resumed(userID)
	default:
		g.log.Debug("Ignoring unknown frame type", "type", frame.Type)
	}
}

func (g *Gateway) handleSendMessage(ctx context.Context, userID uuid.UUID, text string) {
	if strings.TrimSpace(text) == "" {
		g.notify.ErrorMessage(userID, emptyTextErr)
		return
	}

	turnCtx, cancel := context.WithTimeout(ctx, g.turnTimeout)
	defer cancel()

	result, err := g.discovery.ProcessMessage(turnCtx, userID, text)
	if err != nil {
		// Persisted state is untouched beyond the recorded user message;
		// the client sees a polite retry prompt, never the raw error.
		g.log.Error("Discovery turn failed", "error", err)
		g.notify.MessageReceived(userID, fallbackReply, 0)
		return
	}

	g.notify.MessageReceived(userID, result.Reply, result.Progress)
	if result.Progress >= 100 {
		observability.Current().IncPersonaCompleted()
		g.notify.PersonaComplete(userID, completeReply)
	}
}

func (g *Gateway) handleStartDiscovery(ctx context.Context, userID uuid.UUID) {
	progress := 0.0
	if conv, err := g.discovery.ActiveConversation(ctx, userID); err == nil && conv != nil {
		progress = conv.CompletionPct
	}
	g.notify.MessageReceived(userID, welcomeReply, progress)
}

// sendDirect writes to one connection handle, bypassing user-keyed routing.
func (g *Gateway) sendDirect(client *Client, event Event) {
	select {
	case client.Outbound <- event:
		observability.Current().IncWSEvent(string(event.Type))
	default:
		g.log.Warn("Dropping realtime event; outbound buffer full", "client_id", client.ID)
	}
}
