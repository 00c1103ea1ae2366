// Package bus fans realtime events out across backend instances. A user's
// WebSocket may be held by a different process than the one handling their
// turn, so events go through a shared channel before reaching the hub.
package bus

import (
	"context"

	"github.com/spinnernet/backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, event realtime.Event) error
	StartForwarder(ctx context.Context, onEvent func(realtime.Event)) error
	Close() error
}
