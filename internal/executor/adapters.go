package executor

import (
	"visionmesh/internal/apiclient"
	"visionmesh/internal/model"
	"visionmesh/internal/models"
	"visionmesh/internal/nodes"
)

// modelProviderAdapter satisfies nodes.ModelProvider over the concrete
// Model Registry (C10); it exists because Go's structural typing needs the
// return type to be the interface nodes expects, not *models.HTTPModel.
type modelProviderAdapter struct {
	registry *models.Registry
}

func NewModelProvider(registry *models.Registry) nodes.ModelProvider {
	return &modelProviderAdapter{registry: registry}
}

func (a *modelProviderAdapter) Get(filename, endpoint string) (nodes.ModelClient, error) {
	return a.registry.Get(filename, endpoint)
}

// identityMatcherAdapter satisfies nodes.IdentityMatcher over the CRUD API's
// identity-match RPC client.
type identityMatcherAdapter struct {
	client *apiclient.Client
}

func NewIdentityMatcher(client *apiclient.Client) nodes.IdentityMatcher {
	return &identityMatcherAdapter{client: client}
}

func (a *identityMatcherAdapter) MatchIdentity(embedding []float64) (*model.IdentityMatch, error) {
	result, err := a.client.MatchIdentity(embedding)
	if err != nil {
		return nil, err
	}
	if !result.Match {
		return nil, nil
	}
	return &model.IdentityMatch{Name: result.Name, Similarity: result.Similarity}, nil
}
