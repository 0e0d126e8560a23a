// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions configures a single LLM provider, used once for the
// chat model and once for the embedding model.
type ProviderOptions struct {
	// Provider is the provider name (ollama, openai).
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL is the API base address.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey authenticates against hosted providers.
	APIKey string `json:"-" mapstructure:"api-key"`

	// Model is the model to use when a request does not name one.
	Model string `json:"model" mapstructure:"model"`

	// Timeout bounds a single provider request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries is the maximum number of retries for transient failures.
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// role distinguishes the chat and embedding instances in flag names.
	role string
}

// NewChatOptions creates provider options for the chat model.
func NewChatOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:   "ollama",
		BaseURL:    "http://127.0.0.1:11434",
		Model:      "llama3.1",
		Timeout:    60 * time.Second,
		MaxRetries: 3,
		role:       "chat",
	}
}

// NewEmbeddingOptions creates provider options for the embedding model.
func NewEmbeddingOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:   "ollama",
		BaseURL:    "http://127.0.0.1:11434",
		Model:      "nomic-embed-text",
		Timeout:    60 * time.Second,
		MaxRetries: 3,
		role:       "embedding",
	}
}

// ToConfigMap converts the options into the map consumed by provider
// factories.
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":    o.BaseURL,
		"api_key":     o.APIKey,
		"model":       o.Model,
		"timeout":     o.Timeout,
		"max_retries": o.MaxRetries,
	}
}

// AddFlags adds flags for the provider options to the specified FlagSet.
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "llm." + o.role + "."
	fs.StringVar(&o.Provider, prefix+"provider", o.Provider, "LLM provider (ollama, openai).")
	fs.StringVar(&o.BaseURL, prefix+"base-url", o.BaseURL, "LLM API base URL.")
	fs.StringVar(&o.APIKey, prefix+"api-key", o.APIKey, "LLM API key (prefer the LLM_API_KEY env var).")
	fs.StringVar(&o.Model, prefix+"model", o.Model, "Default model name.")
	fs.DurationVar(&o.Timeout, prefix+"timeout", o.Timeout, "LLM request timeout.")
	fs.IntVar(&o.MaxRetries, prefix+"max-retries", o.MaxRetries, "Maximum number of retries.")
}

// Validate validates the LLM provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("llm.%s.provider is required", o.role))
	}
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("llm.%s.base-url is required", o.role))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("llm.%s.model is required", o.role))
	}
	if o.Provider == "openai" && o.APIKey == "" {
		errs = append(errs, fmt.Errorf("llm.%s.api-key is required for the openai provider", o.role))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("llm.%s.timeout must be positive", o.role))
	}
	return errs
}

// Complete fills in values from the environment and defaults.
func (o *ProviderOptions) Complete() error {
	if o.APIKey == "" {
		o.APIKey = os.Getenv("LLM_API_KEY")
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	return nil
}
