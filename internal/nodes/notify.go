package nodes

import (
	"context"
	"fmt"
	"strings"

	"visionmesh/internal/model"
)

// notifySinkNode formats config.message with {count, camera} and posts to an
// external service. A failure never propagates as a node error and is not
// logged here; its text is returned in the result under notify_error.
type notifySinkNode struct {
	channel string
	id      string
	message string
	cfg     map[string]interface{}
}

func newNotifySinkNode(channel string) Constructor {
	return func(id string, cfg map[string]interface{}) (Node, error) {
		return &notifySinkNode{
			channel: channel,
			id:      id,
			message: cfgString(cfg, "message", "{count} detections on {camera}"),
			cfg:     cfg,
		}, nil
	}
}

func (n *notifySinkNode) Type() string { return n.channel }

func (n *notifySinkNode) Process(ctx context.Context, frame Frame, in Input, tools *Tools) (model.NodeResult, error) {
	detections := in.Detections()
	if len(detections) == 0 {
		return model.NodeResult{}, nil
	}

	text := strings.NewReplacer(
		"{count}", fmt.Sprintf("%d", len(detections)),
		"{camera}", tools.CameraName,
	).Replace(n.message)

	if tools.Notifier == nil {
		return model.NodeResult{}, nil
	}
	if err := tools.Notifier.Notify(ctx, n.channel, n.cfg, text); err != nil {
		// Notification failures are isolated: the node still returns a
		// successful result, carrying the error text under notify_error.
		return model.NodeResult{"notify_error": err.Error()}, nil
	}
	return model.NodeResult{}, nil
}
