package nodes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionmesh/internal/model"
	"visionmesh/internal/tracker"
)

type fakeTracker struct {
	loitering []tracker.LoiteringInfo
}

func (f *fakeTracker) Update(detections []model.Detection) ([]tracker.Object, error) { return nil, nil }
func (f *fakeTracker) Loitering(threshold time.Duration) []tracker.LoiteringInfo     { return f.loitering }
func (f *fakeTracker) Stats() tracker.Stats                                         { return tracker.Stats{} }

func TestLoiteringNodePassesThroughWithoutTracker(t *testing.T) {
	n, err := newLoiteringNode("l1", nil)
	require.NoError(t, err)

	tools := &Tools{}
	out, err := n.Process(context.Background(), Frame{}, Input{"detections": []model.Detection{{Box: model.BBox{X1: 1, Y1: 1, X2: 2, Y2: 2}}}}, tools)
	require.NoError(t, err)
	assert.Len(t, out["detections"], 1)
}

func TestLoiteringNodeEmitsSyntheticDetectionForUnmatchedLoiterer(t *testing.T) {
	n, err := newLoiteringNode("l1", map[string]interface{}{"time_threshold": 5.0})
	require.NoError(t, err)

	box := model.BBox{X1: 100, Y1: 100, X2: 200, Y2: 200}
	tools := &Tools{Tracker: &fakeTracker{loitering: []tracker.LoiteringInfo{
		{ObjectID: 9, Box: box, Duration: 12 * time.Second},
	}}}

	out, err := n.Process(context.Background(), Frame{}, Input{"detections": []model.Detection{}}, tools)
	require.NoError(t, err)

	dets := out["detections"].([]model.Detection)
	require.Len(t, dets, 1)
	assert.Equal(t, true, dets[0].Extra["loitering"])
	assert.Equal(t, 9, dets[0].Extra["object_id"])
	assert.Equal(t, 12.0, dets[0].Extra["loitering_duration"])
}

func TestLoiteringNodeAlwaysEmitsSyntheticDetectionAndFlagsMatchingOriginal(t *testing.T) {
	n, err := newLoiteringNode("l1", nil)
	require.NoError(t, err)

	box := model.BBox{X1: 100, Y1: 100, X2: 200, Y2: 200}
	existing := model.Detection{Box: model.BBox{X1: 102, Y1: 101, X2: 199, Y2: 203}}
	tools := &Tools{Tracker: &fakeTracker{loitering: []tracker.LoiteringInfo{
		{ObjectID: 9, Box: box, Duration: 12 * time.Second},
	}}}

	out, err := n.Process(context.Background(), Frame{}, Input{"detections": []model.Detection{existing}}, tools)
	require.NoError(t, err)

	dets := out["detections"].([]model.Detection)
	require.Len(t, dets, 2, "the synthetic detection is always emitted, per spec's detailed-info branch")
	assert.Equal(t, true, dets[0].Extra["loitering"], "matching original detection flagged in place")
	assert.Equal(t, true, dets[1].Extra["loitering"])
	assert.Equal(t, 9, dets[1].Extra["object_id"])
}

func TestMatchByBBoxUsesMeanAbsoluteCoordinateDifference(t *testing.T) {
	detections := []model.Detection{
		{Box: model.BBox{X1: 0, Y1: 0, X2: 20, Y2: 20}},
	}
	// Per-component diffs are {16,16,16,16}; individually over the 10px
	// tolerance but their mean (16) is still over tolerance too, so this
	// must NOT match.
	assert.False(t, matchByBBox(detections, model.BBox{X1: 16, Y1: 16, X2: 36, Y2: 36}))

	// Per-component diffs are {0,0,0,32}; the last component alone is over the
	// 10px tolerance but the mean (8) is within it, so the mean-diff rule must
	// match.
	assert.True(t, matchByBBox(detections, model.BBox{X1: 0, Y1: 0, X2: 20, Y2: 52}))
	assert.Equal(t, true, detections[0].Extra["loitering"])
}
