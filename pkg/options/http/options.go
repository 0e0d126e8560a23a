// Package http provides HTTP server configuration options.
package http

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains HTTP server configuration.
type Options struct {
	// Addr is the address to listen on.
	Addr string `json:"addr" mapstructure:"addr"`

	// RootPath is the path prefix all routes are mounted under.
	RootPath string `json:"root-path" mapstructure:"root-path"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `json:"read-timeout" mapstructure:"read-timeout"`

	// WriteTimeout is the maximum duration before timing out writes of
	// the response. Chat completions can take a while, so this defaults
	// well above typical API timeouts.
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request.
	IdleTimeout time.Duration `json:"idle-timeout" mapstructure:"idle-timeout"`

	// EnableLLMPath toggles the message route. Disabled deployments
	// serve conversation CRUD only, no LLM round trips.
	EnableLLMPath bool `json:"enable-llm-path" mapstructure:"enable-llm-path"`
}

// NewOptions creates a new Options with default values.
func NewOptions() *Options {
	return &Options{
		Addr:          ":8000",
		RootPath:      "/api",
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  5 * time.Minute,
		IdleTimeout:   60 * time.Second,
		EnableLLMPath: true,
	}
}

// AddFlags adds flags for HTTP options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Addr, options.Join(prefixes...)+"http.addr", o.Addr, "HTTP server bind address and port.")
	fs.StringVar(&o.RootPath, options.Join(prefixes...)+"http.root-path", o.RootPath, "Path prefix all routes are mounted under.")
	fs.DurationVar(&o.ReadTimeout, options.Join(prefixes...)+"http.read-timeout", o.ReadTimeout, "Timeout for reading the entire request.")
	fs.DurationVar(&o.WriteTimeout, options.Join(prefixes...)+"http.write-timeout", o.WriteTimeout, "Timeout before timing out writes of the response.")
	fs.DurationVar(&o.IdleTimeout, options.Join(prefixes...)+"http.idle-timeout", o.IdleTimeout, "Maximum amount of time to wait for the next request.")
	fs.BoolVar(&o.EnableLLMPath, options.Join(prefixes...)+"http.enable-llm-path", o.EnableLLMPath, "Serve the message route with its LLM pipeline.")
}

// Validate validates the HTTP options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Addr == "" {
		errs = append(errs, fmt.Errorf("http.addr cannot be empty"))
	}
	if o.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http.read-timeout must be positive"))
	}
	if o.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http.write-timeout must be positive"))
	}
	return errs
}

// Complete completes the HTTP options with defaults.
func (o *Options) Complete() error {
	return nil
}
