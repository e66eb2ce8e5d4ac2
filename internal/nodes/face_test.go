package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionmesh/internal/model"
)

type fakeModelClient struct {
	detections []model.Detection
	err        error
}

func (f *fakeModelClient) Detect(jpeg []byte) ([]model.Detection, float64, error) {
	return f.detections, 1.0, f.err
}

type fakeModelProvider struct {
	client ModelClient
	err    error
}

func (f *fakeModelProvider) Get(filename, endpoint string) (ModelClient, error) {
	return f.client, f.err
}

type fakeIdentityMatcher struct {
	match *model.IdentityMatch
	err   error
}

func (f *fakeIdentityMatcher) MatchIdentity(embedding []float64) (*model.IdentityMatch, error) {
	return f.match, f.err
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 0, clampInt(-5, 0, 10))
	assert.Equal(t, 10, clampInt(15, 0, 10))
	assert.Equal(t, 5, clampInt(5, 0, 10))
}

func TestFaceDetectorNodeFiltersByConfidence(t *testing.T) {
	n, err := newFaceDetectorNode("f1", map[string]interface{}{"confidence": 0.5})
	require.NoError(t, err)

	client := &fakeModelClient{detections: []model.Detection{
		{Box: model.BBox{X1: 0, Y1: 0, X2: 10, Y2: 10}, Confidence: 0.9},
		{Box: model.BBox{X1: 0, Y1: 0, X2: 10, Y2: 10}, Confidence: 0.1},
	}}
	tools := &Tools{Models: &fakeModelProvider{client: client}}

	out, err := n.Process(context.Background(), Frame{}, Input{}, tools)
	require.NoError(t, err)
	faces := out["faces"].([]model.FaceDetection)
	assert.Len(t, faces, 1)
}

func TestFaceEmbeddingNodeSkipsWhenNoFaces(t *testing.T) {
	n, err := newFaceEmbeddingNode("e1", nil)
	require.NoError(t, err)

	out, err := n.Process(context.Background(), Frame{}, Input{}, &Tools{})
	require.NoError(t, err)
	assert.Empty(t, out["embeddings"])
}

func TestFaceEmbeddingNodeErrorsWhenModelLacksEmbed(t *testing.T) {
	n, err := newFaceEmbeddingNode("e1", nil)
	require.NoError(t, err)

	client := &fakeModelClient{}
	tools := &Tools{Models: &fakeModelProvider{client: client}}

	_, err = n.Process(context.Background(), Frame{}, Input{"faces": []model.FaceDetection{{Box: model.BBox{X1: 0, Y1: 0, X2: 10, Y2: 10}}}}, tools)
	assert.Error(t, err)
}

func TestFaceMatcherNodePassesThroughWithoutMatcher(t *testing.T) {
	n, err := newFaceMatcherNode("m1", nil)
	require.NoError(t, err)

	faces := []model.FaceDetection{{Box: model.BBox{X1: 0, Y1: 0, X2: 1, Y2: 1}}}
	out, err := n.Process(context.Background(), Frame{}, Input{"embeddings": faces}, &Tools{})
	require.NoError(t, err)
	assert.Len(t, out["faces"], 1)
}

func TestFaceMatcherNodeAttachesIdentityOnMatch(t *testing.T) {
	n, err := newFaceMatcherNode("m1", nil)
	require.NoError(t, err)

	faces := []model.FaceDetection{{Box: model.BBox{X1: 0, Y1: 0, X2: 1, Y2: 1}, Embedding: []float64{1, 2}}}
	tools := &Tools{IdentityMatcher: &fakeIdentityMatcher{match: &model.IdentityMatch{Name: "alice"}}}

	out, err := n.Process(context.Background(), Frame{}, Input{"embeddings": faces}, tools)
	require.NoError(t, err)
	result := out["faces"].([]model.FaceDetection)
	require.NotNil(t, result[0].Identity)
	assert.Equal(t, "alice", result[0].Identity.Name)
}

func TestFaceMatcherNodeRecordsErrorOnMatchFailure(t *testing.T) {
	n, err := newFaceMatcherNode("m1", nil)
	require.NoError(t, err)

	faces := []model.FaceDetection{{Box: model.BBox{X1: 0, Y1: 0, X2: 1, Y2: 1}, Embedding: []float64{1, 2}}}
	tools := &Tools{IdentityMatcher: &fakeIdentityMatcher{err: errors.New("service down")}}

	out, err := n.Process(context.Background(), Frame{}, Input{"embeddings": faces}, tools)
	require.NoError(t, err)
	result := out["faces"].([]model.FaceDetection)
	require.NotNil(t, result[0].Identity)
	assert.Equal(t, "service down", result[0].Identity.Error)
}
