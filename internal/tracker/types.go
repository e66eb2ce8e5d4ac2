// Package tracker is the hybrid multi-object tracker (C6): an advanced
// Kalman+Re-ID back-end with automatic fallback to a centroid tracker, per
// spec §4.6.
//
// Grounded on original_source/frame-processing-service/src/trackers/
// {advanced_tracker,centroid_tracker,hybrid_tracker}.py for algorithm shape,
// whose literal bugs (uninitialised self.boxes/self.position_history/
// unused_rows/unused_cols in CentroidTracker.update) are resolved the way
// spec.md's own Open Questions section already resolves them. Kalman linear
// algebra uses gonum.org/v1/gonum/mat, grounded on viamrobotics-rdk's use of
// gonum for numeric/filtering work. The two-variant-behind-one-interface
// composition follows the teacher's pipeline/strategies/factory.go idiom.
package tracker

import (
	"math"
	"time"

	"visionmesh/internal/model"
)

// Object is one tracked identity's externally-visible state, decorated onto
// detections by the objectDetection node per spec §4.4.
type Object struct {
	ID               int
	Box              model.BBox
	Speed            float64
	Direction        float64
	TrajectoryLength int
	MovementPattern  string
	IsLoitering      bool
	LoiteringFor     time.Duration
}

// LoiteringInfo is the detailed per-object loitering report the
// loiteringDetection node prefers when available, per spec §4.4.
type LoiteringInfo struct {
	ObjectID int
	Box      model.BBox
	Duration time.Duration
}

// Stats reports current operating mode for test scenario 3/6 and §4.6's
// fallback accounting.
type Stats struct {
	Mode                 string // "advanced" or "fallback"
	FallbackActivations   int
	AdvancedTrackerErrors int
}

// Mode string constants.
const (
	ModeAdvanced = "advanced"
	ModeFallback = "fallback"
)

// Tracker is the common trait both back-ends (and the hybrid wrapper)
// satisfy, per design note §9 ("two-variant sum type behind a common trait").
type Tracker interface {
	Update(detections []model.Detection) ([]Object, error)
	Loitering(threshold time.Duration) []LoiteringInfo
	Stats() Stats
}

func centre(b model.BBox) (float64, float64) {
	c := b.Center()
	return c[0], c[1]
}

func euclidean(ax, ay, bx, by float64) float64 {
	dx, dy := ax-bx, ay-by
	return math.Sqrt(dx*dx + dy*dy)
}

func iou(a, b model.BBox) float64 {
	x1 := math.Max(a.X1, b.X1)
	y1 := math.Max(a.Y1, b.Y1)
	x2 := math.Min(a.X2, b.X2)
	y2 := math.Min(a.Y2, b.Y2)

	interW := math.Max(0, x2-x1)
	interH := math.Max(0, y2-y1)
	inter := interW * interH
	if inter <= 0 {
		return 0
	}
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// cosineSimilarity assumes pre-normalised vectors, clamped to [0,1] per
// design note §9.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	if dot < 0 {
		return 0
	}
	if dot > 1 {
		return 1
	}
	return dot
}
