package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ProviderFactory builds a provider for one backend. An empty model
// falls back to the backend's configured default.
type ProviderFactory func(ctx context.Context, model string) (Provider, error)

// Settings carries the connection details for the supported backends.
// They map one-to-one onto the OLLAMA_* and OPENROUTER_* env vars.
type Settings struct {
	OllamaBaseURL string
	OllamaModel   string

	OpenRouterBaseURL string
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterSiteURL string
	OpenRouterAppName string
}

// Registry resolves provider lookups by backend name. An empty name
// resolves to ollama so a bare deployment works without configuration.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewRegistry builds a registry pre-wired with the ollama and
// openrouter backends, each bound to its settings and default model.
func NewRegistry(s Settings) *Registry {
	r := &Registry{factories: make(map[string]ProviderFactory)}
	r.Register("ollama", func(_ context.Context, model string) (Provider, error) {
		if strings.TrimSpace(model) == "" {
			model = s.OllamaModel
		}
		return NewOllamaProvider(s.OllamaBaseURL, model), nil
	})
	r.Register("openrouter", func(_ context.Context, model string) (Provider, error) {
		if strings.TrimSpace(model) == "" {
			model = s.OpenRouterModel
		}
		if s.OpenRouterAPIKey == "" {
			return nil, fmt.Errorf("openrouter selected but OPENROUTER_API_KEY is empty")
		}
		return NewOpenRouterProvider(s.OpenRouterBaseURL, s.OpenRouterAPIKey, model, s.OpenRouterSiteURL, s.OpenRouterAppName), nil
	})
	return r
}

func (r *Registry) Register(name string, f ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalize(name)] = f
}

// Get builds a provider for the named backend. name defaults to
// ollama, model defaults per backend.
func (r *Registry) Get(ctx context.Context, name, model string) (Provider, error) {
	key := normalize(name)
	if key == "" {
		key = "ollama"
	}
	r.mu.RLock()
	f, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider %q (known: %s)", name, strings.Join(r.names(), ", "))
	}
	return f(ctx, model)
}

func (r *Registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
