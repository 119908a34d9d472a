// Provider router.
// Router selects a LLMProvider by key (LLM_PROVIDER) and itself satisfies
// LLMProvider, so callers can hold a Router without knowing the backend.

package llm

import (
	"context"
	"fmt"
	"sort"

	"github.com/matiasleandrokruk/opsagent/internal/infra/config"
)

// Provider keys accepted in LLM_PROVIDER.
const (
	ProviderAzure  = "azure"
	ProviderOllama = "ollama"
)

// Router selects a LLMProvider for each request. Its provider set is fixed at
// construction, so it is safe for concurrent use.
type Router struct {
	providers       map[string]LLMProvider
	defaultProvider string
}

// NewRouter creates a Router with an initial set of providers and a default key.
func NewRouter(providers map[string]LLMProvider, defaultProvider string) *Router {
	// copy so the caller cannot mutate the internal map.
	ps := make(map[string]LLMProvider, len(providers))
	for k, v := range providers {
		ps[k] = v
	}
	return &Router{providers: ps, defaultProvider: defaultProvider}
}

// NewRouterFromConfig registers the Azure and Ollama adapters and defaults to
// cfg.LLMProvider. Credentials are not checked here.
func NewRouterFromConfig(cfg config.Config) *Router {
	return NewRouter(map[string]LLMProvider{
		ProviderAzure: NewAzureProvider(AzureConfig{
			Endpoint:   cfg.AzureEndpoint,
			APIKey:     cfg.AzureAPIKey,
			APIVersion: cfg.AzureAPIVersion,
			Deployment: cfg.AzureDeployment,
			Timeout:    cfg.LLMTimeout,
		}),
		ProviderOllama: NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaChatModel, cfg.LLMTimeout),
	}, cfg.LLMProvider)
}

// Route returns the provider for the current request.
// Returns an error if the default provider is not registered.
func (r *Router) Route(_ context.Context) (LLMProvider, error) {
	p, ok := r.providers[r.defaultProvider]
	if !ok {
		return nil, fmt.Errorf("llm router: provider %q not registered (available: %v)", r.defaultProvider, r.keys())
	}
	return p, nil
}

// ChatCompletion forwards to the routed provider.
func (r *Router) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p, err := r.Route(ctx)
	if err != nil {
		return nil, err
	}
	return p.ChatCompletion(ctx, req)
}

// ModelInfo reports the routed provider's metadata, or only the key when unregistered.
func (r *Router) ModelInfo() ModelMeta {
	p, err := r.Route(context.Background())
	if err != nil {
		return ModelMeta{Provider: r.defaultProvider}
	}
	return p.ModelInfo()
}

// HealthCheck checks the routed provider.
func (r *Router) HealthCheck(ctx context.Context) error {
	p, err := r.Route(ctx)
	if err != nil {
		return err
	}
	return p.HealthCheck(ctx)
}

// keys returns the sorted provider names (for error messages).
func (r *Router) keys() []string {
	out := make([]string, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
