package wsbroadcast

import (
	"context"

	"visionmesh/internal/bus"
)

// Run consumes websocket_events until ctx is cancelled, dispatching each
// body to hub. It blocks; callers run it in its own goroutine, per spec
// §5's "the WebSocket fan-out listener runs on its own subscriber".
func Run(ctx context.Context, b *bus.Bus, hub *Hub) error {
	return b.ConsumeWsEvents(ctx, hub.Dispatch)
}
