package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/spinnernet/backend/internal/observability"
	"github.com/spinnernet/backend/internal/platform/logger"
)

// Client is one live connection. A user may hold several connections; they
// all join the user's broadcast group.
type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Outbound chan Event
	done     chan struct{}
}

// Done is closed when the client has been removed from the hub.
func (c *Client) Done() <-chan struct{} { return c.done }

// Hub groups connections per user and fans events out to them.
type Hub struct {
	mu     sync.RWMutex
	log    *logger.Logger
	groups map[uuid.UUID]map[*Client]bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:    log.With("component", "RealtimeHub"),
		groups: make(map[uuid.UUID]map[*Client]bool),
	}
}

// NewClient creates a connection handle and joins it to the user's group.
func (h *Hub) NewClient(userID uuid.UUID) *Client {
	client := &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Outbound: make(chan Event, 16),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.groups[userID]
	if !ok {
		group = make(map[*Client]bool)
		h.groups[userID] = group
	}
	group[client] = true

	h.log.Debug("Realtime client connected", "client_id", client.ID)
	return client
}

// CloseClient leaves the user's group and releases the outbound channel.
func (h *Hub) CloseClient(client *Client) {
	h.mu.Lock()
	if group, ok := h.groups[client.UserID]; ok {
		if _, present := group[client]; present {
			delete(group, client)
			if len(group) == 0 {
				delete(h.groups, client.UserID)
			}
			close(client.done)
			close(client.Outbound)
		}
	}
	h.mu.Unlock()

	h.log.Debug("Realtime client disconnected", "client_id", client.ID)
}

// SendToUser delivers an event to every connection in the user's group.
// Slow consumers with a full buffer are skipped rather than blocking the hub.
func (h *Hub) SendToUser(userID uuid.UUID, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	group, ok := h.groups[userID]
	if !ok {
		return
	}
	for client := range group {
		select {
		case client.Outbound <- event:
			observability.Current().IncWSEvent(string(event.Type))
		default:
			h.log.Warn("Dropping realtime event; outbound buffer full", "client_id", client.ID)
		}
	}
}

// Deliver routes an event by its embedded user id. Used by the bus forwarder.
func (h *Hub) Deliver(event Event) {
	if event.UserID == uuid.Nil {
		return
	}
	h.SendToUser(event.UserID, event)
}
