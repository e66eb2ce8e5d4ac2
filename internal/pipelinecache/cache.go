// Package pipelinecache is the Pipeline Cache (C3): a per-camera cached
// pipeline graph, populated lazily from the API and invalidated by
// config_events messages, per spec §4.2.
//
// Grounded on original_source/frame-processing-service/src/pipeline_executor.py's
// _get_pipeline_for_camera (cache-hit/miss/negative-cache shape) and on the
// teacher's internal/pipeline/detection_pipeline.go DetectionPipelineManager
// for the concurrent-map-with-mutex idiom.
package pipelinecache

import (
	"sync"

	"github.com/rs/zerolog"

	"visionmesh/internal/apiclient"
	"visionmesh/internal/model"
)

type entry struct {
	pipeline *model.Pipeline // nil = negative cache
}

type Cache struct {
	api *apiclient.Client
	log zerolog.Logger

	mu      sync.RWMutex
	entries map[string]entry
}

func New(api *apiclient.Client, log zerolog.Logger) *Cache {
	return &Cache{
		api:     api,
		log:     log,
		entries: make(map[string]entry),
	}
}

// Get returns the pipeline bound to cameraName, fetching and caching on miss.
// A cache hit — including a negative one — never calls the API. Per spec
// §3: at most one active pipeline per camera is executed; the first one the
// API returns wins.
func (c *Cache) Get(cameraName string) (*model.Pipeline, error) {
	c.mu.RLock()
	e, ok := c.entries[cameraName]
	c.mu.RUnlock()
	if ok {
		return e.pipeline, nil
	}

	pipelines, err := c.api.GetPipelines(cameraName)
	if err != nil {
		c.store(cameraName, nil)
		return nil, err
	}

	var picked *model.Pipeline
	if len(pipelines) > 0 {
		p := pipelines[0]
		picked = &p
	}
	c.store(cameraName, picked)
	return picked, nil
}

func (c *Cache) store(cameraName string, p *model.Pipeline) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cameraName] = entry{pipeline: p}
}

// Invalidate drops the cached entry for cameraName so the next Get refetches.
// Safe to call concurrently with Get; the cache is monotonic — a stale read
// racing an invalidation is acceptable until the invalidation lands, per
// spec §4.2.
func (c *Cache) Invalidate(cameraName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[cameraName]; ok {
		delete(c.entries, cameraName)
		c.log.Info().Str("camera", cameraName).Msg("invalidated pipeline cache entry")
	}
}
