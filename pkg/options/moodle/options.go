// Package moodle provides options for the Moodle file acquisition client.
package moodle

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options configures access to the Moodle plugin endpoints.
type Options struct {
	// Host is the base URL of the Moodle instance.
	Host string `json:"host" mapstructure:"host"`

	// APIKey authenticates against the mokitul Moodle plugin.
	APIKey string `json:"-" mapstructure:"api-key"`

	// DownloadDir is where fetched course files are stored.
	DownloadDir string `json:"download-dir" mapstructure:"download-dir"`

	// Timeout bounds a single download request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewOptions creates Options with default values.
func NewOptions() *Options {
	return &Options{
		Host:        "http://127.0.0.1:8080",
		DownloadDir: "data/files",
		Timeout:     60 * time.Second,
	}
}

// Complete reads sensitive values from the environment when unset.
func (o *Options) Complete() error {
	if o.APIKey == "" {
		o.APIKey = os.Getenv("MOODLE_API_KEY")
	}
	return nil
}

// Validate validates the Moodle options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Host == "" {
		errs = append(errs, fmt.Errorf("moodle.host cannot be empty"))
	}
	if o.DownloadDir == "" {
		errs = append(errs, fmt.Errorf("moodle.download-dir cannot be empty"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("moodle.timeout must be positive"))
	}
	return errs
}

// AddFlags adds flags for Moodle options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Host, options.Join(prefixes...)+"moodle.host", o.Host, "Base URL of the Moodle instance.")
	fs.StringVar(&o.APIKey, options.Join(prefixes...)+"moodle.api-key", o.APIKey, "API key for the Moodle plugin (prefer the MOODLE_API_KEY env var).")
	fs.StringVar(&o.DownloadDir, options.Join(prefixes...)+"moodle.download-dir", o.DownloadDir, "Directory where fetched course files are stored.")
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"moodle.timeout", o.Timeout, "Timeout for a single download request.")
}
