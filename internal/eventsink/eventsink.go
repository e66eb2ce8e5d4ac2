// Package eventsink implements the Event Sink (C7): a synchronous SQL
// insert, a JPEG write to disk, and one AMQP publish of the compact WsEvent
// on the ws_exchange fan-out exchange, per spec §4.7.
//
// Grounded on the teacher's internal/database/database.go for the
// WAL-mode sqlite connection setup and the ordered-migrations-with-
// duplicate-column-tolerance idiom, trimmed from its camera/motion-event
// schema down to the single events table spec §3's Event type requires.
package eventsink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"visionmesh/internal/bus"
	"visionmesh/internal/model"
)

// Sink persists events to sqlite, writes their JPEG to MediaPath, and
// publishes a WsEvent for the broadcaster; it satisfies nodes.EventSink.
type Sink struct {
	db        *sql.DB
	bus       *bus.Bus
	log       zerolog.Logger
	mediaPath string
}

func New(dbPath, mediaPath string, b *bus.Bus, log zerolog.Logger) (*Sink, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening event database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := os.MkdirAll(mediaPath, 0o755); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating media path: %w", err)
	}

	s := &Sink{db: db, bus: b, log: log, mediaPath: mediaPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) Close() error { return s.db.Close() }

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		pipeline_id TEXT NOT NULL,
		ts DATETIME NOT NULL,
		camera_name TEXT NOT NULL,
		event_type TEXT NOT NULL,
		message TEXT,
		media_path TEXT,
		details TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_camera_time ON events(camera_name, ts DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_events_pipeline_time ON events(pipeline_id, ts DESC)`,
}

func (s *Sink) migrate() error {
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("event store migration failed: %w", err)
		}
	}
	return nil
}

// Persist writes the JPEG under MediaPath, inserts the Event row, and
// publishes a WsEvent. Notification failures (the AMQP publish) are
// isolated and never abort persistence, per spec §4.7.
func (s *Sink) Persist(ctx context.Context, ev model.Event, jpeg []byte) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	if len(jpeg) > 0 {
		filename := fmt.Sprintf("%s_%s.jpg", ev.CameraName, ev.Timestamp.Format("20060102_150405.000000"))
		fullPath := filepath.Join(s.mediaPath, filename)
		if err := os.WriteFile(fullPath, jpeg, 0o644); err != nil {
			return fmt.Errorf("writing event media: %w", err)
		}
		ev.MediaPath = "/media/" + filename
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, pipeline_id, ts, camera_name, event_type, message, media_path, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.PipelineID, ev.Timestamp, ev.CameraName, ev.EventType, ev.Message, ev.MediaPath, ev.Details,
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	s.publishWsEvent(ctx, ev)
	return nil
}

func (s *Sink) publishWsEvent(ctx context.Context, ev model.Event) {
	if s.bus == nil {
		return
	}
	wsEvent := model.WsEvent{
		EventID:    ev.ID,
		PipelineID: ev.PipelineID,
		CameraName: ev.CameraName,
		EventType:  ev.EventType,
		Message:    ev.Message,
		MediaPath:  ev.MediaPath,
		Timestamp:  float64(ev.Timestamp.UnixNano()) / 1e9,
	}
	body, err := json.Marshal(wsEvent)
	if err != nil {
		s.log.Warn().Err(err).Str("event", ev.ID).Msg("encoding ws event failed")
		return
	}
	if err := s.bus.PublishWsEvent(ctx, body); err != nil {
		s.log.Warn().Err(err).Str("event", ev.ID).Msg("publishing ws event failed")
	}
}
