package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionmesh/internal/model"
)

func box(x1, y1, x2, y2 float64) model.Detection {
	return model.Detection{Box: model.BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}, Confidence: 0.9, ClassName: "person"}
}

func TestCentroidTrackerTracksAcrossFrames(t *testing.T) {
	ct := NewCentroidTracker()

	out := ct.Update([]model.Detection{box(0, 0, 10, 10)})
	require.Len(t, out, 1)
	firstID := out[0].ID

	// Small displacement: nearest-neighbour should reassign the same id.
	out = ct.Update([]model.Detection{box(2, 2, 12, 12)})
	require.Len(t, out, 1)
	assert.Equal(t, firstID, out[0].ID)
}

func TestCentroidTrackerDeregistersAfterMaxDisappeared(t *testing.T) {
	ct := NewCentroidTracker()
	ct.maxDisappeared = 2

	ct.Update([]model.Detection{box(0, 0, 10, 10)})
	ct.Update(nil)
	ct.Update(nil)
	out := ct.Update(nil)

	assert.Empty(t, out)
	assert.Empty(t, ct.objects)
}

func TestCentroidTrackerRegistersNewDetections(t *testing.T) {
	ct := NewCentroidTracker()

	out := ct.Update([]model.Detection{box(0, 0, 10, 10)})
	require.Len(t, out, 1)

	// A second, far-away detection should be registered as a new object
	// rather than stolen from the first.
	out = ct.Update([]model.Detection{box(1, 1, 11, 11), box(500, 500, 520, 520)})
	assert.Len(t, out, 2)
}
