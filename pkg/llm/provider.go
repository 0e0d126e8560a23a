// Package llm defines the provider abstraction for embedding and chat
// models. Concrete providers register themselves via side effect imports:
//
//	import _ "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/llm/ollama"
//
//	provider, err := llm.NewProvider("ollama", map[string]any{
//	    "base_url": "http://127.0.0.1:11434",
//	    "model":    "llama3.1",
//	})
package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat turn sent to a provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// EmbeddingProvider produces dense vector embeddings.
type EmbeddingProvider interface {
	// Embed generates one embedding per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle generates the embedding of a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

// ChatProvider generates chat completions. An empty model falls back to
// the provider's configured default, so callers can route individual
// requests to specific models.
type ChatProvider interface {
	Chat(ctx context.Context, model string, messages []Message) (string, error)
}

// Provider is a full LLM backend.
type Provider interface {
	EmbeddingProvider
	ChatProvider

	// Name returns the provider's registered name.
	Name() string

	// Ping checks whether the backend is reachable.
	Ping(ctx context.Context) error
}

// Factory builds a Provider from a configuration map.
type Factory func(config map[string]any) (Provider, error)

var (
	providersMu sync.RWMutex
	providers   = make(map[string]Factory)
)

// RegisterProvider registers a provider factory under name. It panics
// when the name is already taken.
func RegisterProvider(name string, factory Factory) {
	providersMu.Lock()
	defer providersMu.Unlock()

	if _, ok := providers[name]; ok {
		panic(fmt.Sprintf("llm: provider %q registered twice", name))
	}
	providers[name] = factory
}

// NewProvider creates a provider by its registered name.
func NewProvider(name string, config map[string]any) (Provider, error) {
	providersMu.RLock()
	factory, ok := providers[name]
	providersMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("llm: unknown provider %q (registered: %v)", name, RegisteredProviders())
	}
	return factory(config)
}

// RegisteredProviders returns the sorted names of all registered providers.
func RegisteredProviders() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
