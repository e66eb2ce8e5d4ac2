package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sync"
	"time"

	"visionmesh/internal/model"
)

const healthCacheTTL = 30 * time.Second

// HTTPModel is the Model Registry's concrete model handle: an HTTP-backed
// inference microservice client, ported in shape from
// internal/detection/gpu_detector.go's multipart POST + cached health check.
type HTTPModel struct {
	Filename string
	endpoint string
	client   *http.Client

	mu         sync.RWMutex
	healthy    bool
	lastHealth time.Time
	optimized  bool
}

func NewHTTPModel(filename, endpoint string) *HTTPModel {
	return &HTTPModel{
		Filename: filename,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Optimize is the best-effort "export to optimised build" hook point from
// spec §4.5. No example repo or original source demonstrates a concrete
// optimised-export format, so this is a no-op that always succeeds,
// honouring the contract (attempt once, never block inference on failure).
func (m *HTTPModel) Optimize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.optimized = true
	return nil
}

// IsHealthy caches the health probe for healthCacheTTL to avoid a round trip
// on every frame, matching the teacher's gpu_detector.go idiom.
func (m *HTTPModel) IsHealthy() bool {
	m.mu.RLock()
	fresh := time.Since(m.lastHealth) < healthCacheTTL
	healthy := m.healthy
	m.mu.RUnlock()
	if fresh {
		return healthy
	}

	resp, err := m.client.Get(m.endpoint + "/health")
	ok := err == nil && resp != nil && resp.StatusCode == http.StatusOK
	if resp != nil {
		resp.Body.Close()
	}

	m.mu.Lock()
	m.healthy = ok
	m.lastHealth = time.Now()
	m.mu.Unlock()
	return ok
}

// rawDetection is the inference microservice's wire format.
type rawDetection struct {
	Box        [4]float64 `json:"box"`
	Confidence float64    `json:"confidence"`
	ClassName  string     `json:"class_name"`
	ClassID    int        `json:"class_id"`
}

type rawDetectResponse struct {
	Detections      []rawDetection `json:"detections"`
	InferenceTimeMs float64        `json:"inference_time_ms"`
}

// Detect posts jpeg to the model's /detect endpoint and returns raw
// detections, unfiltered by confidence or class — objectDetection applies
// those filters itself per spec §4.4.
func (m *HTTPModel) Detect(jpeg []byte) ([]model.Detection, float64, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	fw, err := w.CreatePart(h)
	if err != nil {
		return nil, 0, fmt.Errorf("building multipart request: %w", err)
	}
	fw.Write(jpeg)
	w.WriteField("model", m.Filename)
	w.Close()

	req, err := http.NewRequest(http.MethodPost, m.endpoint+"/detect", &b)
	if err != nil {
		return nil, 0, fmt.Errorf("building detect request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("calling model %q: %w", m.Filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, 0, fmt.Errorf("model %q returned %d: %s", m.Filename, resp.StatusCode, string(body))
	}

	var raw rawDetectResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("decoding detect response: %w", err)
	}

	out := make([]model.Detection, 0, len(raw.Detections))
	for _, d := range raw.Detections {
		out = append(out, model.Detection{
			Box: model.BBox{X1: d.Box[0], Y1: d.Box[1], X2: d.Box[2], Y2: d.Box[3]},
			Confidence: d.Confidence,
			ClassName:  d.ClassName,
			ClassID:    d.ClassID,
		})
	}
	return out, raw.InferenceTimeMs, nil
}

type rawEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed posts a face crop to the model's /embed endpoint and returns the
// resulting (assumed pre-normalised) feature vector. Grounded on the same
// multipart pattern as Detect.
func (m *HTTPModel) Embed(crop []byte) ([]float64, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="crop.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	fw, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("building multipart request: %w", err)
	}
	fw.Write(crop)
	w.Close()

	req, err := http.NewRequest(http.MethodPost, m.endpoint+"/embed", &b)
	if err != nil {
		return nil, fmt.Errorf("building embed request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling embedding model %q: %w", m.Filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding model %q returned %d: %s", m.Filename, resp.StatusCode, string(body))
	}

	var raw rawEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	return raw.Embedding, nil
}
