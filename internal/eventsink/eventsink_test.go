package eventsink

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionmesh/internal/model"
)

func newTestSink(t *testing.T) *Sink {
	t.Helper()
	mediaDir := t.TempDir()
	s, err := New(":memory:", mediaDir, nil, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPersistInsertsEventRowAndGeneratesIDWhenMissing(t *testing.T) {
	s := newTestSink(t)

	ev := model.Event{CameraName: "front-door", PipelineID: "p1", EventType: "detection", Message: "hello"}
	require.NoError(t, s.Persist(context.Background(), ev, nil))

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM events WHERE camera_name = ?", "front-door").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestPersistWritesJPEGUnderMediaPathAndRecordsRelativeURL(t *testing.T) {
	s := newTestSink(t)

	ev := model.Event{ID: "fixed-id", CameraName: "front-door", PipelineID: "p1", EventType: "detection"}
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	require.NoError(t, s.Persist(context.Background(), ev, jpeg))

	var mediaPath string
	require.NoError(t, s.db.QueryRow("SELECT media_path FROM events WHERE id = ?", "fixed-id").Scan(&mediaPath))
	require.NotEmpty(t, mediaPath)
	assert.Regexp(t, `^/media/front-door_`, mediaPath)

	written, err := os.ReadFile(filepath.Join(s.mediaPath, filepath.Base(mediaPath)))
	require.NoError(t, err)
	assert.Equal(t, jpeg, written)
}

func TestPersistSucceedsWithoutBusConfigured(t *testing.T) {
	s := newTestSink(t)
	err := s.Persist(context.Background(), model.Event{CameraName: "c", PipelineID: "p", EventType: "t"}, nil)
	assert.NoError(t, err)
}
