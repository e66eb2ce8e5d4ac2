// Package apiclient wraps the HTTP APIs the core consumes (spec §6): camera
// listing for the supervisor, pipeline lookup for the cache, and identity
// matching for the face pipeline. Grounded on
// BrunoKrugel-snapshot2stream/internal/client/client.go's resty.Client setup
// (bounded timeout, small retry budget, tuned transport pool).
package apiclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"visionmesh/internal/model"
)

type Client struct {
	resty *resty.Client
	base  string
}

func New(baseURL string) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(250 * time.Millisecond).
		SetDisableWarn(true)

	rc.SetTransport(&http.Transport{
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ResponseHeaderTimeout: 3 * time.Second,
	})

	return &Client{resty: rc, base: baseURL}
}

// ListCameras fetches the desired set of active/inactive cameras for the
// supervisor's reconciliation tick.
func (c *Client) ListCameras() ([]model.Camera, error) {
	var cams []model.Camera
	resp, err := c.resty.R().SetResult(&cams).Get("/api/cameras")
	if err != nil {
		return nil, fmt.Errorf("listing cameras: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("listing cameras: status %d", resp.StatusCode())
	}
	return cams, nil
}

// GetPipelines fetches the pipelines bound to a camera name, for the pipeline
// cache's miss path.
func (c *Client) GetPipelines(cameraName string) ([]model.Pipeline, error) {
	var pipelines []model.Pipeline
	resp, err := c.resty.R().
		SetQueryParam("camera_name", cameraName).
		SetResult(&pipelines).
		Get("/api/pipelines")
	if err != nil {
		return nil, fmt.Errorf("getting pipelines for %q: %w", cameraName, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("getting pipelines for %q: status %d", cameraName, resp.StatusCode())
	}
	return pipelines, nil
}

// MatchIdentityResult is the decoded response of POST /api/identities/match.
type MatchIdentityResult struct {
	Match      bool    `json:"match"`
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

// MatchIdentity posts a 512-float face embedding to the identity matcher RPC.
func (c *Client) MatchIdentity(embedding []float64) (*MatchIdentityResult, error) {
	var result MatchIdentityResult
	resp, err := c.resty.R().
		SetBody(map[string]interface{}{"embedding": embedding}).
		SetResult(&result).
		Post("/api/identities/match")
	if err != nil {
		return nil, fmt.Errorf("matching identity: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("matching identity: status %d", resp.StatusCode())
	}
	return &result, nil
}
