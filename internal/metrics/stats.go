// Package metrics is the per-worker rolling counters of C11: frames in,
// failed, and average latency, logged periodically. Grounded on
// internal/pipeline/frame_provider.go's CaptureStats (atomic counters behind
// a small RWMutex-guarded struct).
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Stats accumulates one worker's (or one pipeline's) counters.
type Stats struct {
	name string

	mu             sync.RWMutex
	framesIn       uint64
	framesFailed   uint64
	totalLatencyMs float64
	latencySamples uint64
	lastFrameAt    time.Time
}

func New(name string) *Stats {
	return &Stats{name: name}
}

func (s *Stats) IncFramesIn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.framesIn++
	s.lastFrameAt = time.Now()
}

func (s *Stats) IncFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.framesFailed++
}

func (s *Stats) ObserveLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalLatencyMs += float64(d.Milliseconds())
	s.latencySamples++
}

// Snapshot is a point-in-time read of the counters, safe to log or export.
type Snapshot struct {
	Name           string
	FramesIn       uint64
	FramesFailed   uint64
	AverageLatency float64
	LastFrameAt    time.Time
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	avg := 0.0
	if s.latencySamples > 0 {
		avg = s.totalLatencyMs / float64(s.latencySamples)
	}
	return Snapshot{
		Name:           s.name,
		FramesIn:       s.framesIn,
		FramesFailed:   s.framesFailed,
		AverageLatency: avg,
		LastFrameAt:    s.lastFrameAt,
	}
}

// RunPeriodicLogger logs every collect() snapshot every interval until ctx
// is cancelled, per spec §2's C11 "periodic logging".
func RunPeriodicLogger(ctx context.Context, log zerolog.Logger, interval time.Duration, collect func() []Snapshot) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, snap := range collect() {
				log.Info().
					Str("component", "metrics").
					Str("name", snap.Name).
					Uint64("frames_in", snap.FramesIn).
					Uint64("frames_failed", snap.FramesFailed).
					Float64("avg_latency_ms", snap.AverageLatency).
					Msg("rolling stats")
			}
		}
	}
}
