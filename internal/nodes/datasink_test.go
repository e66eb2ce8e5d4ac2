package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionmesh/internal/model"
)

type fakeEventSink struct {
	persisted []model.Event
	err       error
}

func (f *fakeEventSink) Persist(ctx context.Context, ev model.Event, jpeg []byte) error {
	if f.err != nil {
		return f.err
	}
	f.persisted = append(f.persisted, ev)
	return nil
}

func TestDataSinkNodeSkipsEmptyDetections(t *testing.T) {
	n, err := newDataSinkNode("d1", nil)
	require.NoError(t, err)

	sink := &fakeEventSink{}
	tools := &Tools{EventSink: sink}

	out, err := n.Process(context.Background(), Frame{}, Input{"detections": []model.Detection{}}, tools)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, sink.persisted)
}

func TestDataSinkNodePersistsDetectionsAndReturnsEventID(t *testing.T) {
	n, err := newDataSinkNode("d1", nil)
	require.NoError(t, err)

	sink := &fakeEventSink{}
	tools := &Tools{EventSink: sink, PipelineID: "p1", CameraName: "front-door"}

	out, err := n.Process(context.Background(), Frame{}, Input{"detections": []model.Detection{
		{Box: model.BBox{X1: 0, Y1: 0, X2: 1, Y2: 1}},
	}}, tools)
	require.NoError(t, err)

	require.Len(t, sink.persisted, 1)
	assert.Equal(t, "p1", sink.persisted[0].PipelineID)
	assert.Equal(t, "front-door", sink.persisted[0].CameraName)
	assert.NotEmpty(t, out["event_id"])
}

func TestDataSinkNodeWithoutEventSinkStillReturnsEventID(t *testing.T) {
	n, err := newDataSinkNode("d1", nil)
	require.NoError(t, err)

	tools := &Tools{}
	out, err := n.Process(context.Background(), Frame{}, Input{"detections": []model.Detection{
		{Box: model.BBox{X1: 0, Y1: 0, X2: 1, Y2: 1}},
	}}, tools)
	require.NoError(t, err)
	assert.NotEmpty(t, out["event_id"])
}
