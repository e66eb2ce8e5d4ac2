// Package model holds the domain types shared across the pipeline engine:
// cameras, pipeline graphs, frame envelopes, and the events the engine emits.
package model

import "time"

// Camera is a capture source the supervisor reconciles against the API.
type Camera struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RTSPURL  string `json:"rtsp_url"`
	IsActive bool   `json:"is_active"`
}

// Node is one vertex of a pipeline graph. Data is a free-form config map
// interpreted by the node implementation registered under Type.
type Node struct {
	ID   string                 `json:"id"`
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// Edge is a directed graph edge, source producing input consumed by target.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is the DAG a Pipeline executes.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Pipeline binds a processing graph to a camera via its videoInput node.
type Pipeline struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
	Graph  Graph  `json:"graph_data"`
}

// CameraName returns the camera_name bound by this pipeline's videoInput node,
// or "" if none is present.
func (p *Pipeline) CameraName() string {
	for _, n := range p.Graph.Nodes {
		if n.Type == "videoInput" {
			if v, ok := n.Data["camera_name"].(string); ok {
				return v
			}
		}
	}
	return ""
}

// FrameMessage is the Frame Bus envelope: one encoded frame from one camera.
type FrameMessage struct {
	CameraName string  `json:"camera_name"`
	Timestamp  float64 `json:"timestamp"`
	Frame      string  `json:"frame"` // hex-encoded JPEG
}

// ConfigEvent is published on the config_events topic exchange, routing key
// "pipeline.updated"; the body is the camera name as a bare UTF-8 string, not
// JSON, per spec.
type ConfigEvent struct {
	CameraName string
}

// WsEvent is the compact payload forwarded verbatim to WebSocket clients.
type WsEvent struct {
	EventID    string  `json:"event_id"`
	PipelineID string  `json:"pipeline_id"`
	CameraName string  `json:"camera_name"`
	EventType  string  `json:"event_type"`
	Message    string  `json:"message,omitempty"`
	MediaPath  string  `json:"media_path,omitempty"`
	Timestamp  float64 `json:"timestamp"`
}

// Event is a persisted record, one row per dataSink invocation with detections.
type Event struct {
	ID         string    `json:"id"`
	PipelineID string    `json:"pipeline_id"`
	Timestamp  time.Time `json:"ts"`
	CameraName string    `json:"camera_name"`
	EventType  string    `json:"event_type"`
	Message    string    `json:"message"`
	MediaPath  string    `json:"media_path"`
	Details    string    `json:"details"` // JSON-encoded
}

// BBox is an axis-aligned bounding box in pixel space.
type BBox struct {
	X1, Y1, X2, Y2 float64
}

// Width, Height, Center and Area are the standard box geometry helpers used
// throughout the processing nodes and tracker.
func (b BBox) Width() float64  { return b.X2 - b.X1 }
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }
func (b BBox) Center() [2]float64 {
	return [2]float64{(b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2}
}
func (b BBox) BottomCenter() [2]float64 {
	return [2]float64{(b.X1 + b.X2) / 2, b.Y2}
}
func (b BBox) Area() float64 { return b.Width() * b.Height() }

// Detection is one object-detector output, optionally decorated by the
// tracker (TrackID, Speed, Direction, TrajectoryLength) once enable_tracking
// has run.
type Detection struct {
	Box              BBox
	Confidence       float64
	ClassName        string
	ClassID          int
	TrackID          *int
	Speed            float64
	Direction        float64
	TrajectoryLength int
	MovementPattern  string
	Extra            map[string]interface{}
}

// FaceDetection is one face-detector output, later enriched by faceEmbedding
// and faceMatcher.
type FaceDetection struct {
	Box        BBox
	Confidence float64
	Embedding  []float64
	Identity   *IdentityMatch
}

// IdentityMatch is the decoration faceMatcher attaches after the identity RPC.
type IdentityMatch struct {
	Name       string
	Similarity float64
	Error      string
}

// Identity and FaceEmbedding mirror the records consulted via the identity
// matching RPC; the core never writes them.
type Identity struct {
	IdentityID  string
	Name        string
	Description string
}

type FaceEmbedding struct {
	IdentityID string
	Embedding  [512]float64
}

// FrameData is one decoded frame in flight through the DAG executor.
type FrameData struct {
	CameraName string
	JPEG       []byte
	Seq        uint64
	Timestamp  time.Time
}

// NodeResult is one node's output map for one frame execution; node
// implementations populate it and the executor merges predecessor outputs
// into the next node's input by last-write-wins key assignment.
type NodeResult map[string]interface{}
