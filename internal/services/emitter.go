package services

import (
	"context"

	"github.com/spinnernet/backend/internal/platform/logger"
	"github.com/spinnernet/backend/internal/realtime"
	"github.com/spinnernet/backend/internal/realtime/bus"
)

// EventEmitter pushes a realtime event toward the user. With a bus configured
// the event goes through the shared channel (and comes back via the
// forwarder, reaching every instance); without one it is delivered straight
// to the local hub.
type EventEmitter interface {
	Emit(ctx context.Context, event realtime.Event)
}

type eventEmitter struct {
	log *logger.Logger
	hub *realtime.Hub
	bus bus.Bus
}

func NewEventEmitter(log *logger.Logger, hub *realtime.Hub, b bus.Bus) EventEmitter {
	return &eventEmitter{
		log: log.With("service", "EventEmitter"),
		hub: hub,
		bus: b,
	}
}

func (e *eventEmitter) Emit(ctx context.Context, event realtime.Event) {
	if e.bus != nil {
		if err := e.bus.Publish(ctx, event); err == nil {
			return
		} else {
			e.log.Warn("Bus publish failed; delivering locally", "error", err)
		}
	}
	e.hub.Deliver(event)
}
