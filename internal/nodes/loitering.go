package nodes

import (
	"context"
	"math"
	"time"

	"visionmesh/internal/model"
)

const bboxMatchToleranceMeanPx = 10

type loiteringNode struct {
	id            string
	timeThreshold time.Duration
}

func newLoiteringNode(id string, cfg map[string]interface{}) (Node, error) {
	return &loiteringNode{
		id:            id,
		timeThreshold: time.Duration(cfgFloat(cfg, "time_threshold", 10)) * time.Second,
	}, nil
}

func (n *loiteringNode) Type() string { return "loiteringDetection" }

func (n *loiteringNode) Process(ctx context.Context, frame Frame, in Input, tools *Tools) (model.NodeResult, error) {
	detections := cloneDetections(in.Detections())

	if tools.Tracker == nil {
		return model.NodeResult{"detections": detections}, nil
	}

	infos := tools.Tracker.Loitering(n.timeThreshold)
	if len(infos) == 0 {
		return model.NodeResult{"detections": detections}, nil
	}

	conf := 0.9
	for _, info := range infos {
		// Both tracker back-ends always report a box+duration for a
		// loitering id, so the detailed branch is the only one ever taken,
		// per spec §4.4. An input detection whose box already coincides
		// with the loitering track is additionally flagged in place so
		// downstream nodes can match on the original detection too.
		matchByBBox(detections, info.Box)

		detections = append(detections, model.Detection{
			Box:        info.Box,
			Confidence: conf,
			ClassName:  "person",
			Extra: map[string]interface{}{
				"loitering":          true,
				"loitering_duration": info.Duration.Seconds(),
				"object_id":          info.ObjectID,
				"detection_type":     "advanced_loitering",
			},
		})
	}

	return model.NodeResult{"detections": detections}, nil
}

// matchByBBox flags an existing detection in place when the mean of its
// box's four absolute per-coordinate differences from box is within
// tolerance.
func matchByBBox(detections []model.Detection, box model.BBox) bool {
	for i := range detections {
		b := detections[i].Box
		diff := (math.Abs(b.X1-box.X1) + math.Abs(b.Y1-box.Y1) + math.Abs(b.X2-box.X2) + math.Abs(b.Y2-box.Y2)) / 4
		if diff <= bboxMatchToleranceMeanPx {
			if detections[i].Extra == nil {
				detections[i].Extra = map[string]interface{}{}
			}
			detections[i].Extra["loitering"] = true
			return true
		}
	}
	return false
}
