// Package options contains flags and options for initializing the API server.
package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver"
	httpopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/http"
	llmopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/llm"
	logopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/logger"
	milvusopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/milvus"
	mongodbopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/mongodb"
	moodleopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/moodle"
	redisopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/redis"
	retrievalopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/retrieval"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// MongoOptions contains the conversation store configuration.
	MongoOptions *mongodbopts.Options `json:"mongodb" mapstructure:"mongodb"`

	// MilvusOptions contains the vector index configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// RedisOptions contains the embedding cache configuration.
	RedisOptions *redisopts.Options `json:"redis" mapstructure:"redis"`

	// RetrievalOptions contains chunking and retrieval tuning.
	RetrievalOptions *retrievalopts.Options `json:"retrieval" mapstructure:"retrieval"`

	// MoodleOptions contains the Moodle file source configuration.
	MoodleOptions *moodleopts.Options `json:"moodle" mapstructure:"moodle"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:      httpopts.NewOptions(),
		LogOptions:       logopts.NewOptions(),
		MongoOptions:     mongodbopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		RedisOptions:     redisopts.NewOptions(),
		RetrievalOptions: retrievalopts.NewOptions(),
		MoodleOptions:    moodleopts.NewOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ShutdownTimeout:  30 * time.Second,
	}
}

// AddFlags adds all server flags to fs.
func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	o.HTTPOptions.AddFlags(fs)
	o.LogOptions.AddFlags(fs)
	o.MongoOptions.AddFlags(fs)
	o.MilvusOptions.AddFlags(fs)
	o.RedisOptions.AddFlags(fs)
	o.RetrievalOptions.AddFlags(fs)
	o.MoodleOptions.AddFlags(fs)
	o.ChatOptions.AddFlags(fs)
	o.EmbeddingOptions.AddFlags(fs)

	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout.")
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.HTTPOptions.Complete(); err != nil {
		return err
	}
	if err := o.MongoOptions.Complete(); err != nil {
		return fmt.Errorf("mongodb: %w", err)
	}
	if err := o.MilvusOptions.Complete(); err != nil {
		return fmt.Errorf("milvus: %w", err)
	}
	if err := o.RedisOptions.Complete(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if err := o.RetrievalOptions.Complete(); err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}
	if err := o.MoodleOptions.Complete(); err != nil {
		return fmt.Errorf("moodle: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate())
	errs = append(errs, o.MongoOptions.Validate()...)
	errs = append(errs, o.MilvusOptions.Validate()...)
	errs = append(errs, o.RedisOptions.Validate()...)
	errs = append(errs, o.RetrievalOptions.Validate()...)
	errs = append(errs, o.MoodleOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Config builds an apiserver.Config from ServerOptions.
func (o *ServerOptions) Config() (*apiserver.Config, error) {
	return &apiserver.Config{
		HTTP:            o.HTTPOptions,
		Log:             o.LogOptions,
		Mongo:           o.MongoOptions,
		Milvus:          o.MilvusOptions,
		Redis:           o.RedisOptions,
		Retrieval:       o.RetrievalOptions,
		Moodle:          o.MoodleOptions,
		ChatLLM:         o.ChatOptions,
		EmbeddingLLM:    o.EmbeddingOptions,
		ShutdownTimeout: o.ShutdownTimeout,
	}, nil
}
