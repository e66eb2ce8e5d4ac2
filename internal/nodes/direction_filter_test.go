package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionmesh/internal/model"
)

func TestSegmentsIntersect(t *testing.T) {
	assert.True(t, segmentsIntersect([2]float64{0, 0}, [2]float64{10, 10}, [2]float64{0, 10}, [2]float64{10, 0}))
	assert.False(t, segmentsIntersect([2]float64{0, 0}, [2]float64{1, 1}, [2]float64{5, 5}, [2]float64{6, 6}))
}

func trackedDetection(id int, x1, y1, x2, y2 float64) model.Detection {
	return model.Detection{TrackID: &id, Box: model.BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}}
}

func TestDirectionFilterFlagsCorrectWayCrossing(t *testing.T) {
	n, err := newDirectionFilterNode("df1", map[string]interface{}{
		"line":      []interface{}{[]interface{}{0.0, 5.0}, []interface{}{10.0, 5.0}},
		"direction": []interface{}{0.0, 1.0}, // expected travel: downward (+y)
	})
	require.NoError(t, err)

	tools := &Tools{}
	ctx := context.Background()

	id := 1
	// Track moves from above the line to below it (+y), matching "direction".
	_, err = n.Process(ctx, Frame{}, Input{"detections": []model.Detection{trackedDetection(id, 4, 1, 6, 3)}}, tools)
	require.NoError(t, err)
	out, err := n.Process(ctx, Frame{}, Input{"detections": []model.Detection{trackedDetection(id, 4, 9, 6, 11)}}, tools)
	require.NoError(t, err)

	assert.Equal(t, 1, out["traffic_correct"])
	assert.Equal(t, 0, out["traffic_wrong"])
}

func TestDirectionFilterFlagsWrongWayCrossing(t *testing.T) {
	n, err := newDirectionFilterNode("df1", map[string]interface{}{
		"line":      []interface{}{[]interface{}{0.0, 5.0}, []interface{}{10.0, 5.0}},
		"direction": []interface{}{0.0, -1.0}, // expected travel: upward (-y)
	})
	require.NoError(t, err)

	tools := &Tools{}
	ctx := context.Background()

	id := 1
	_, err = n.Process(ctx, Frame{}, Input{"detections": []model.Detection{trackedDetection(id, 4, 1, 6, 3)}}, tools)
	require.NoError(t, err)
	out, err := n.Process(ctx, Frame{}, Input{"detections": []model.Detection{trackedDetection(id, 4, 9, 6, 11)}}, tools)
	require.NoError(t, err)

	assert.Equal(t, 0, out["traffic_correct"])
	assert.Equal(t, 1, out["traffic_wrong"])
}
