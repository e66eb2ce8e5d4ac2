// Package nodes is the pluggable operator set (C5): object detection, zone
// and direction filters, loitering/trajectory analysis, sinks, and face
// detect/embed/match, per spec §4.4.
//
// Grounded on the teacher's internal/pipeline/interfaces.go (Detector /
// ConditionalDetector split) and internal/pipeline/detectors/registry.go for
// the tagged-variant registry shape design note §9 asks for; per-node
// algorithms are grounded on original_source/frame-processing-service/src/
// nodes/*.py.
package nodes

import (
	"context"
	"time"

	"visionmesh/internal/model"
	"visionmesh/internal/tracker"
)

// Frame is the decoded unit of work a node operates on.
type Frame struct {
	CameraName string
	JPEG       []byte
	Timestamp  time.Time
}

// EventSink is the C7 persistence capability the dataSink node calls into.
type EventSink interface {
	Persist(ctx context.Context, ev model.Event, jpeg []byte) error
}

// Notifier is the external-service posting capability telegram/email/
// whatsapp sinks call into; cfg is that node's own config map (bot_token,
// chat_id, smtp settings, ...). The calling sink node does not log or
// propagate a failure; it returns the error text in its result under
// notify_error.
type Notifier interface {
	Notify(ctx context.Context, channel string, cfg map[string]interface{}, message string) error
}

// IdentityMatcher is the C5 RPC to the identity-matching service.
type IdentityMatcher interface {
	MatchIdentity(embedding []float64) (*model.IdentityMatch, error)
}

// ModelClient is the inference call the Model Registry hands back for a
// given filename.
type ModelClient interface {
	Detect(jpeg []byte) ([]model.Detection, float64, error)
}

// ModelProvider resolves a filename (+ optional endpoint override) to a
// ModelClient, backed by the Model Registry (C10).
type ModelProvider interface {
	Get(filename, endpoint string) (ModelClient, error)
}

// Tools is shared_tools from spec §4.3: handles every node in one pipeline
// execution may need, passed by reference per design note §9.
type Tools struct {
	Models       ModelProvider
	Tracker      tracker.Tracker
	CameraName   string
	PipelineID   string
	PipelineName string
	FrameTime    time.Time

	EventSink       EventSink
	Notifier        Notifier
	IdentityMatcher IdentityMatcher

	MediaPath       string
	DefaultEndpoint string

	// ZoneAnalytics publishes polygonFilter's per-node counters, keyed by
	// node id, per spec §4.4.
	ZoneAnalytics map[string]ZoneStats
}

// Input is the merged (last-write-wins) output of every predecessor that has
// produced a result so far, per spec §4.3.
type Input map[string]interface{}

func (in Input) Detections() []model.Detection {
	v, ok := in["detections"]
	if !ok {
		return nil
	}
	d, _ := v.([]model.Detection)
	return d
}

func (in Input) Faces() []model.FaceDetection {
	v, ok := in["faces"]
	if !ok {
		return nil
	}
	f, _ := v.([]model.FaceDetection)
	return f
}

// Node is a typed processing step with a free-form config map, the tagged
// variant design note §9 calls for.
type Node interface {
	Type() string
	Process(ctx context.Context, frame Frame, in Input, tools *Tools) (model.NodeResult, error)
}

// Constructor builds one Node instance, stateful across frames for the
// lifetime of its owning pipeline (so per-node counters like zone lifecycle
// survive between calls).
type Constructor func(id string, config map[string]interface{}) (Node, error)
