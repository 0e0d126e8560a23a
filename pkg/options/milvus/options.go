// Package milvusopts provides options for the Milvus vector store client.
package milvusopts

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains Milvus client configuration.
type Options struct {
	// Address is the Milvus server address (host:port).
	Address string `json:"address" mapstructure:"address"`

	// Database is the Milvus database to use.
	Database string `json:"database" mapstructure:"database"`

	// Collection is the chunk collection name.
	Collection string `json:"collection" mapstructure:"collection"`

	Username string `json:"username" mapstructure:"username"`
	Password string `json:"-" mapstructure:"password"`

	// Timeout bounds connection and data operations.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// EmbeddingDim is the dimensionality of the dense vectors. It must
	// match the embedding model in use.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`
}

// NewOptions creates Options with default values.
func NewOptions() *Options {
	return &Options{
		Address:      "127.0.0.1:19530",
		Collection:   "course_documents",
		Timeout:      30 * time.Second,
		EmbeddingDim: 768,
	}
}

// Complete reads sensitive values from the environment when unset.
func (o *Options) Complete() error {
	if o.Password == "" {
		o.Password = os.Getenv("MILVUS_PASSWORD")
	}
	return nil
}

// Validate validates the Milvus options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Address == "" {
		errs = append(errs, fmt.Errorf("milvus.address cannot be empty"))
	}
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("milvus.collection cannot be empty"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("milvus.embedding-dim must be positive"))
	}
	return errs
}

// AddFlags adds flags for Milvus options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Address, options.Join(prefixes...)+"milvus.address", o.Address, "Milvus server address (host:port).")
	fs.StringVar(&o.Database, options.Join(prefixes...)+"milvus.database", o.Database, "Milvus database name.")
	fs.StringVar(&o.Collection, options.Join(prefixes...)+"milvus.collection", o.Collection, "Collection holding the document chunks.")
	fs.StringVar(&o.Username, options.Join(prefixes...)+"milvus.username", o.Username, "Username for Milvus access.")
	fs.StringVar(&o.Password, options.Join(prefixes...)+"milvus.password", o.Password, "Password for Milvus access (prefer the MILVUS_PASSWORD env var).")
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"milvus.timeout", o.Timeout, "Timeout for Milvus operations.")
	fs.IntVar(&o.EmbeddingDim, options.Join(prefixes...)+"milvus.embedding-dim", o.EmbeddingDim, "Dimensionality of the dense embedding vectors.")
}
