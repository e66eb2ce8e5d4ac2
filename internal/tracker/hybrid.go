package tracker

import (
	"time"

	"github.com/rs/zerolog"

	"visionmesh/internal/model"
)

// HybridTracker chooses the advanced back-end on construction; any panic
// inside an advanced call falls back to the centroid back-end permanently
// for the remaining lifetime of this tracker instance, per spec §4.6.
type HybridTracker struct {
	log      zerolog.Logger
	extract  FeatureExtractor
	advanced *AdvancedTracker
	centroid *CentroidTracker

	mode                  string
	fallbackActivations   int
	advancedTrackerErrors int
}

func NewHybridTracker(log zerolog.Logger, extract FeatureExtractor) *HybridTracker {
	return &HybridTracker{
		log:      log,
		extract:  extract,
		advanced: NewAdvancedTracker(),
		mode:     ModeAdvanced,
	}
}

// Update satisfies Tracker. The advanced back-end never actually returns a
// Go error, but may panic (for example inside the feature extractor); that
// panic is what triggers fallback, matching the source's "exception inside
// any advanced call" semantics. A singular innovation covariance does not
// panic: kalmanState.update skips that observation.
func (h *HybridTracker) Update(detections []model.Detection) (objs []Object, err error) {
	if h.mode == ModeFallback {
		if h.centroid == nil {
			h.centroid = NewCentroidTracker()
		}
		return h.centroid.Update(detections), nil
	}

	defer func() {
		if r := recover(); r != nil {
			h.log.Warn().Interface("panic", r).Msg("advanced tracker failed, falling back to centroid tracker")
			h.advancedTrackerErrors++
			h.fallbackActivations++
			h.mode = ModeFallback
			h.centroid = NewCentroidTracker()
			objs = h.centroid.Update(detections)
			err = nil
		}
	}()

	return h.advanced.Update(detections, h.extract), nil
}

func (h *HybridTracker) Loitering(threshold time.Duration) (infos []LoiteringInfo) {
	if h.mode == ModeFallback {
		if h.centroid == nil {
			return nil
		}
		return h.centroid.Loitering(threshold)
	}

	defer func() {
		if r := recover(); r != nil {
			h.log.Warn().Interface("panic", r).Msg("advanced tracker failed, falling back to centroid tracker")
			h.advancedTrackerErrors++
			h.fallbackActivations++
			h.mode = ModeFallback
			h.centroid = NewCentroidTracker()
			infos = nil
		}
	}()

	return h.advanced.Loitering(threshold)
}

func (h *HybridTracker) Stats() Stats {
	return Stats{
		Mode:                  h.mode,
		FallbackActivations:   h.fallbackActivations,
		AdvancedTrackerErrors: h.advancedTrackerErrors,
	}
}
