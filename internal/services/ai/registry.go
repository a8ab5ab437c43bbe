package ai

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"github.com/ai-charchat-go/internal/config"
	"github.com/ai-charchat-go/internal/services/storage"
	"github.com/sirupsen/logrus"
)

// CustomEndpointsKey is the store key of user-added endpoints.
const CustomEndpointsKey = "customEndpoints"

// ModelOption represents a model option with endpoint info
type ModelOption struct {
	ID           string
	Name         string
	EndpointName string
	MaxTokens    int
}

// Registry merges the configured endpoints with endpoints added at runtime.
// A stored endpoint replaces a configured one of the same name.
type Registry struct {
	mu     sync.Mutex
	base   []config.ModelEndpoint
	store  *storage.Manager
	logger *logrus.Logger
}

// NewRegistry creates a registry over the configured endpoints. store may be
// nil, in which case only the configured endpoints are available.
func NewRegistry(cfg *config.ModelsConfig, store *storage.Manager, logger *logrus.Logger) *Registry {
	base := make([]config.ModelEndpoint, len(cfg.Endpoints))
	copy(base, cfg.Endpoints)

	logger.WithField("endpointCount", len(base)).Debug("Loading AI endpoints")
	return &Registry{base: base, store: store, logger: logger}
}

// Endpoints returns the merged endpoint list.
func (r *Registry) Endpoints(ctx context.Context) ([]config.ModelEndpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endpointsLocked(ctx)
}

func (r *Registry) endpointsLocked(ctx context.Context) ([]config.ModelEndpoint, error) {
	custom, err := r.custom(ctx)
	if err != nil {
		return nil, err
	}

	overridden := make(map[string]bool, len(custom))
	for _, ep := range custom {
		overridden[ep.Name] = true
	}

	merged := make([]config.ModelEndpoint, 0, len(r.base)+len(custom))
	for _, ep := range r.base {
		if !overridden[ep.Name] {
			merged = append(merged, ep)
		}
	}
	return append(merged, custom...), nil
}

// Endpoint returns the endpoint called name.
func (r *Registry) Endpoint(ctx context.Context, name string) (*config.ModelEndpoint, error) {
	endpoints, err := r.Endpoints(ctx)
	if err != nil {
		return nil, err
	}
	for i := range endpoints {
		if endpoints[i].Name == name {
			return &endpoints[i], nil
		}
	}
	return nil, fmt.Errorf("endpoint not found: %s", name)
}

// Models lists every model of every endpoint, ordered by id.
func (r *Registry) Models(ctx context.Context) ([]ModelOption, error) {
	endpoints, err := r.Endpoints(ctx)
	if err != nil {
		return nil, err
	}

	var options []ModelOption
	for _, ep := range endpoints {
		for _, m := range ep.Models {
			options = append(options, ModelOption{
				ID:           m.ID,
				Name:         m.Name,
				EndpointName: ep.Name,
				MaxTokens:    m.MaxTokens,
			})
		}
	}
	sort.Slice(options, func(i, j int) bool { return options[i].ID < options[j].ID })
	return options, nil
}

// Resolve finds the endpoint serving modelID.
func (r *Registry) Resolve(ctx context.Context, modelID string) (*config.ModelEndpoint, *ModelOption, error) {
	endpoints, err := r.Endpoints(ctx)
	if err != nil {
		return nil, nil, err
	}
	for i := range endpoints {
		for _, m := range endpoints[i].Models {
			if m.ID == modelID {
				return &endpoints[i], &ModelOption{
					ID:           m.ID,
					Name:         m.Name,
					EndpointName: endpoints[i].Name,
					MaxTokens:    m.MaxTokens,
				}, nil
			}
		}
	}
	return nil, nil, fmt.Errorf("model not found: %s", modelID)
}

// AddEndpoint stores a new endpoint.
func (r *Registry) AddEndpoint(ctx context.Context, endpoint config.ModelEndpoint) error {
	if err := validateEndpoint(&endpoint); err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	endpoints, err := r.endpointsLocked(ctx)
	if err != nil {
		return err
	}
	for _, ep := range endpoints {
		if ep.Name == endpoint.Name {
			return fmt.Errorf("endpoint with name '%s' already exists", endpoint.Name)
		}
	}

	custom, err := r.custom(ctx)
	if err != nil {
		return err
	}
	if err := r.save(ctx, append(custom, endpoint)); err != nil {
		return err
	}

	r.logger.WithField("endpoint", endpoint.Name).Info("Added new endpoint")
	return nil
}

// AddModel adds a model to an endpoint. Configured endpoints are copied into
// the store before being changed.
func (r *Registry) AddModel(ctx context.Context, endpointName string, model config.ModelInfo) error {
	if model.ID == "" {
		return fmt.Errorf("model id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	custom, err := r.custom(ctx)
	if err != nil {
		return err
	}

	target := -1
	for i := range custom {
		if custom[i].Name == endpointName {
			target = i
			break
		}
	}
	if target < 0 {
		for _, ep := range r.base {
			if ep.Name == endpointName {
				ep.Models = append([]config.ModelInfo(nil), ep.Models...)
				custom = append(custom, ep)
				target = len(custom) - 1
				break
			}
		}
	}
	if target < 0 {
		return fmt.Errorf("endpoint '%s' not found", endpointName)
	}

	for _, m := range custom[target].Models {
		if m.ID == model.ID {
			return fmt.Errorf("model '%s' already exists in endpoint", model.ID)
		}
	}
	custom[target].Models = append(custom[target].Models, model)
	return r.save(ctx, custom)
}

// RemoveEndpoint deletes a stored endpoint. Configured endpoints cannot be
// removed; removing a stored override restores the configured version.
func (r *Registry) RemoveEndpoint(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	custom, err := r.custom(ctx)
	if err != nil {
		return err
	}
	kept := custom[:0]
	removed := false
	for _, ep := range custom {
		if ep.Name == name {
			removed = true
			continue
		}
		kept = append(kept, ep)
	}
	if !removed {
		return fmt.Errorf("endpoint '%s' not found", name)
	}
	return r.save(ctx, kept)
}

func (r *Registry) custom(ctx context.Context) ([]config.ModelEndpoint, error) {
	if r.store == nil {
		return nil, nil
	}
	var endpoints []config.ModelEndpoint
	if _, err := r.store.Get(ctx, CustomEndpointsKey, &endpoints); err != nil {
		return nil, fmt.Errorf("failed to load endpoints: %w", err)
	}
	return endpoints, nil
}

func (r *Registry) save(ctx context.Context, endpoints []config.ModelEndpoint) error {
	if r.store == nil {
		return fmt.Errorf("endpoint store not configured")
	}
	if err := r.store.Set(ctx, CustomEndpointsKey, endpoints, 0); err != nil {
		return fmt.Errorf("failed to save endpoints: %w", err)
	}
	return nil
}

func validateEndpoint(endpoint *config.ModelEndpoint) error {
	if endpoint.Name == "" {
		return fmt.Errorf("endpoint name is required")
	}
	if endpoint.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(endpoint.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base URL: %s", endpoint.BaseURL)
	}
	return nil
}
