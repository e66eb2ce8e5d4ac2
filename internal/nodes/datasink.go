package nodes

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"visionmesh/internal/model"
)

type dataSinkNode struct {
	id string
}

func newDataSinkNode(id string, cfg map[string]interface{}) (Node, error) {
	return &dataSinkNode{id: id}, nil
}

func (n *dataSinkNode) Type() string { return "dataSink" }

func (n *dataSinkNode) Process(ctx context.Context, frame Frame, in Input, tools *Tools) (model.NodeResult, error) {
	detections := in.Detections()
	if len(detections) == 0 {
		return model.NodeResult{}, nil
	}

	details, err := json.Marshal(map[string]interface{}{"detections": detections})
	if err != nil {
		details = []byte("{}")
	}

	ev := model.Event{
		ID:         uuid.NewString(),
		PipelineID: tools.PipelineID,
		Timestamp:  tools.FrameTime,
		CameraName: tools.CameraName,
		EventType:  "detection",
		Message:    "detections recorded",
		Details:    string(details),
	}

	if tools.EventSink == nil {
		return model.NodeResult{"event_id": ev.ID}, nil
	}
	if err := tools.EventSink.Persist(ctx, ev, frame.JPEG); err != nil {
		return nil, err
	}
	return model.NodeResult{"event_id": ev.ID}, nil
}
