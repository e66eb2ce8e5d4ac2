// Package supervisor implements the Camera Supervisor (C2): a reconciliation
// loop that keeps one capture worker running per active camera, per spec
// §4.1. Grounded on internal/pipeline/frame_provider.go's FFmpegFrameProvider
// (ffmpeg subprocess capture, SOI/EOI JPEG frame extraction) and
// internal/camera/camera.go's activate/deactivate lifecycle, generalized from
// a locally CRUD-backed camera manager into a loop that diffs against
// GET /api/cameras on every tick instead of a local database.
package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"visionmesh/internal/apiclient"
	"visionmesh/internal/bus"
	"visionmesh/internal/metrics"
	"visionmesh/internal/model"
)

// Supervisor reconciles the desired set of active cameras (from the API)
// against a live set of capture workers, every ReconcileInterval.
type Supervisor struct {
	api               *apiclient.Client
	bus               *bus.Bus
	log               zerolog.Logger
	reconcileInterval time.Duration

	mu      sync.Mutex
	running map[string]*worker
}

func New(api *apiclient.Client, b *bus.Bus, log zerolog.Logger, reconcileInterval time.Duration) *Supervisor {
	return &Supervisor{
		api:               api,
		bus:               b,
		log:               log,
		reconcileInterval: reconcileInterval,
		running:           make(map[string]*worker),
	}
}

// Run blocks, reconciling every tick until ctx is cancelled. On cancellation
// every running worker is signalled to stop before returning; Run does not
// wait for the workers to exit.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.reconcileInterval)
	defer ticker.Stop()

	s.reconcile(ctx)
	for {
		select {
		case <-ctx.Done():
			s.stopAll()
			return
		case <-ticker.C:
			s.reconcile(ctx)
		}
	}
}

func (s *Supervisor) reconcile(ctx context.Context) {
	cameras, err := s.api.ListCameras()
	if err != nil {
		s.log.Warn().Err(err).Msg("reconciliation fetch failed, keeping current worker set")
		return
	}

	active := make(map[string]model.Camera, len(cameras))
	for _, c := range cameras {
		if c.IsActive {
			active[c.Name] = c
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for name, w := range s.running {
		if _, ok := active[name]; !ok {
			w.stop()
			delete(s.running, name)
			s.log.Info().Str("camera", name).Msg("stopped worker for deactivated camera")
		}
	}

	for name, cam := range active {
		if _, ok := s.running[name]; !ok {
			w := newWorker(cam, s.bus, s.log)
			s.running[name] = w
			go w.run(ctx)
			s.log.Info().Str("camera", name).Msg("started worker for activated camera")
		}
	}
}

func (s *Supervisor) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, w := range s.running {
		w.stop()
		delete(s.running, name)
	}
}

// Stats returns a snapshot of every currently-running capture worker's
// rolling counters, for C11's periodic logging.
func (s *Supervisor) Stats() []metrics.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snaps := make([]metrics.Snapshot, 0, len(s.running))
	for _, w := range s.running {
		snaps = append(snaps, w.stats.Snapshot())
	}
	return snaps
}

const (
	publishCapHz    = 10
	retryBackoff    = 5 * time.Second
	minPublishDelay = time.Second / publishCapHz
)

// worker captures frames for a single camera and publishes them to the Frame
// Bus, respecting a ≥10Hz publish cadence cap (spec §4.1).
type worker struct {
	camera model.Camera
	bus    *bus.Bus
	log    zerolog.Logger
	stats  *metrics.Stats

	stopCh chan struct{}
	once   sync.Once
}

func newWorker(camera model.Camera, b *bus.Bus, log zerolog.Logger) *worker {
	return &worker{
		camera: camera,
		bus:    b,
		log:    logging(log, camera.Name),
		stats:  metrics.New(camera.Name),
		stopCh: make(chan struct{}),
	}
}

func logging(log zerolog.Logger, camera string) zerolog.Logger {
	return log.With().Str("component", "supervisor-worker").Str("camera", camera).Logger()
}

func (w *worker) stop() {
	w.once.Do(func() { close(w.stopCh) })
}

// run opens the RTSP source via ffmpeg and republishes every extracted JPEG
// frame until stopped; on open or read failure it releases and retries after
// 5s, per spec §4.1.
func (w *worker) run(ctx context.Context) {
	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := w.captureOnce(ctx); err != nil {
			w.log.Warn().Err(err).Msg("capture failed, retrying")
			w.stats.IncFailed()
			select {
			case <-w.stopCh:
				return
			case <-ctx.Done():
				return
			case <-time.After(retryBackoff):
			}
		}
	}
}

func (w *worker) captureOnce(ctx context.Context) error {
	args := ffmpegArgs(w.camera.RTSPURL)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}
	defer func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		cmd.Wait()
	}()

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			// ffmpeg diagnostics are silently discarded, matching the teacher.
		}
	}()

	buffer := make([]byte, 0, 1024*1024)
	chunk := make([]byte, 8192)
	lastPublish := time.Time{}

	for {
		select {
		case <-w.stopCh:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := stdout.Read(chunk)
		if err != nil {
			if err == io.EOF {
				return fmt.Errorf("ffmpeg stream ended")
			}
			return fmt.Errorf("reading ffmpeg stdout: %w", err)
		}
		buffer = append(buffer, chunk[:n]...)

		for {
			frame := extractJPEGFrame(&buffer)
			if frame == nil {
				break
			}
			now := time.Now()
			if since := now.Sub(lastPublish); since < minPublishDelay {
				time.Sleep(minPublishDelay - since)
				now = time.Now()
			}
			if err := w.bus.PublishFrame(ctx, w.camera.Name, frame, now); err != nil {
				w.log.Warn().Err(err).Msg("publish failed")
				w.stats.IncFailed()
				continue
			}
			lastPublish = now
			w.stats.IncFramesIn()
		}
	}
}

func ffmpegArgs(device string) []string {
	if strings.HasPrefix(device, "rtsp://") {
		return []string{
			"-rtsp_transport", "tcp",
			"-i", device,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-q:v", "5",
			"-",
		}
	}
	return []string{
		"-i", device,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "5",
		"-",
	}
}

// extractJPEGFrame scans buffer for one complete SOI..EOI JPEG frame,
// consuming everything up to and including it. Ported verbatim in shape from
// internal/pipeline/frame_provider.go.
func extractJPEGFrame(buffer *[]byte) []byte {
	if len(*buffer) < 4 {
		return nil
	}

	startIdx := -1
	for i := 0; i < len(*buffer)-1; i++ {
		if (*buffer)[i] == 0xFF && (*buffer)[i+1] == 0xD8 {
			startIdx = i
			break
		}
	}
	if startIdx == -1 {
		return nil
	}

	endIdx := -1
	for i := startIdx + 2; i < len(*buffer)-1; i++ {
		if (*buffer)[i] == 0xFF && (*buffer)[i+1] == 0xD9 {
			endIdx = i + 2
			break
		}
	}
	if endIdx == -1 {
		return nil
	}

	frame := make([]byte, endIdx-startIdx)
	copy(frame, (*buffer)[startIdx:endIdx])
	*buffer = (*buffer)[endIdx:]
	return frame
}
