package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionmesh/internal/model"
	"visionmesh/internal/tracker"
)

func TestDecorateAttachesNearestTrack(t *testing.T) {
	detections := []model.Detection{
		{Box: model.BBox{X1: 0, Y1: 0, X2: 10, Y2: 10}},
	}
	tracked := []tracker.Object{
		{ID: 7, Box: model.BBox{X1: 1, Y1: 1, X2: 11, Y2: 11}, Speed: 3.5, Direction: 90, TrajectoryLength: 4},
	}

	decorate(detections, tracked)

	require.NotNil(t, detections[0].TrackID)
	assert.Equal(t, 7, *detections[0].TrackID)
	assert.Equal(t, 3.5, detections[0].Speed)
	assert.Equal(t, 90.0, detections[0].Direction)
}

func TestDecorateSkipsFarTracks(t *testing.T) {
	detections := []model.Detection{
		{Box: model.BBox{X1: 0, Y1: 0, X2: 10, Y2: 10}},
	}
	tracked := []tracker.Object{
		{ID: 1, Box: model.BBox{X1: 1000, Y1: 1000, X2: 1010, Y2: 1010}},
	}

	decorate(detections, tracked)

	assert.Nil(t, detections[0].TrackID)
}

func TestShouldRunTriggerModes(t *testing.T) {
	continuous := &objectDetectionNode{triggerMode: "continuous"}
	for i := 0; i < 3; i++ {
		assert.True(t, continuous.shouldRun())
	}

	scheduled := &objectDetectionNode{triggerMode: "scheduled"}
	results := make([]bool, 5)
	for i := range results {
		results[i] = scheduled.shouldRun()
	}
	assert.Equal(t, []bool{false, false, false, false, true}, results)
}
