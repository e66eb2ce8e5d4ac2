// Package models is the Model Registry (C10): a lazy, process-wide cache of
// loaded detection models keyed by filename, per spec §4.5.
//
// Grounded on internal/pipeline/detectors/registry.go's RWMutex-guarded
// map[string]Detector (generalized here from detector-type keys to filename
// keys, as the spec requires) and on internal/detection/gpu_detector.go's
// HTTP-based model client (multipart POST, health-check cache) as the
// concrete Model implementation — spec.md does not mandate an in-process
// model runtime, and an HTTP-backed inference microservice client is exactly
// what the teacher already builds for this role.
package models

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Registry is the process-wide, filename-keyed model cache. Reads after first
// use take only the shared read lock of mu; they are not lock-free.
type Registry struct {
	modelsPath      string
	defaultEndpoint string
	log             zerolog.Logger

	mu     sync.RWMutex
	models map[string]*HTTPModel

	constructMu sync.Mutex
	constructing map[string]*sync.Mutex
}

func NewRegistry(modelsPath, defaultEndpoint string, log zerolog.Logger) *Registry {
	return &Registry{
		modelsPath:      modelsPath,
		defaultEndpoint: defaultEndpoint,
		log:             log,
		models:          make(map[string]*HTTPModel),
		constructing:    make(map[string]*sync.Mutex),
	}
}

// Get returns the model registered under filename, loading it on first
// access under a per-key construction lock so concurrent callers for
// different filenames never block each other, per spec §5 ("written-once per
// filename under a construction lock").
func (r *Registry) Get(filename, endpoint string) (*HTTPModel, error) {
	r.mu.RLock()
	m, ok := r.models[filename]
	r.mu.RUnlock()
	if ok {
		return m, nil
	}

	lock := r.keyLock(filename)
	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	m, ok = r.models[filename]
	r.mu.RUnlock()
	if ok {
		return m, nil
	}

	m, err := r.load(filename, endpoint)
	if err != nil {
		const fallbackModel = "yolov8n.pt"
		r.log.Warn().Err(err).Str("model", filename).Str("fallback", fallbackModel).Msg("model load failed, degrading to default model")
		m = NewHTTPModel(fallbackModel, r.defaultEndpoint)
	}

	r.mu.Lock()
	r.models[filename] = m
	r.mu.Unlock()
	return m, nil
}

func (r *Registry) keyLock(filename string) *sync.Mutex {
	r.constructMu.Lock()
	defer r.constructMu.Unlock()
	l, ok := r.constructing[filename]
	if !ok {
		l = &sync.Mutex{}
		r.constructing[filename] = l
	}
	return l
}

func (r *Registry) load(filename, endpoint string) (*HTTPModel, error) {
	path := filepath.Join(r.modelsPath, filename)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("locating model %q: %w", filename, err)
	}

	m := NewHTTPModel(filename, endpoint)
	if err := m.Optimize(); err != nil {
		r.log.Debug().Err(err).Str("model", filename).Msg("optimised-build export skipped")
	}
	return m, nil
}
