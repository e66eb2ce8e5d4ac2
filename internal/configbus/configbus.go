// Package configbus implements the Config-Update Publisher (C8): a thin
// wrapper the external CRUD layer (stood in for by cmd/configtool) calls on
// pipeline mutations to invalidate every processor's pipeline cache, per
// spec §2/§4.2.
package configbus

import (
	"context"

	"visionmesh/internal/bus"
)

// ConfigUpdatePublisher publishes a camera-name invalidation on the
// config_events topic exchange.
type ConfigUpdatePublisher interface {
	PublishCameraUpdated(ctx context.Context, cameraName string) error
}

type publisher struct {
	bus *bus.Bus
}

func New(b *bus.Bus) ConfigUpdatePublisher {
	return &publisher{bus: b}
}

func (p *publisher) PublishCameraUpdated(ctx context.Context, cameraName string) error {
	return p.bus.PublishConfigEvent(ctx, cameraName)
}
