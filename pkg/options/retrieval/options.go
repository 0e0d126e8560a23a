// Package retrieval provides options for document splitting and
// similarity search.
package retrieval

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options controls chunking and retrieval behaviour.
type Options struct {
	// ChunkSize is the chunk length in runes.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the overlap between consecutive chunks in runes.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// TopNDense is how many candidates the dense vector search returns.
	TopNDense int `json:"top-n-dense" mapstructure:"top-n-dense"`

	// TopNSparse is how many candidates the sparse keyword search returns.
	TopNSparse int `json:"top-n-sparse" mapstructure:"top-n-sparse"`

	// TopNRerank is how many chunks survive fusion of both result sets.
	TopNRerank int `json:"top-n-rerank" mapstructure:"top-n-rerank"`
}

// NewOptions creates Options with default values.
func NewOptions() *Options {
	return &Options{
		ChunkSize:    128,
		ChunkOverlap: 20,
		TopNDense:    10,
		TopNSparse:   10,
		TopNRerank:   10,
	}
}

// AddFlags adds flags for retrieval options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.ChunkSize, options.Join(prefixes...)+"retrieval.chunk-size", o.ChunkSize, "Chunk length in runes for document splitting.")
	fs.IntVar(&o.ChunkOverlap, options.Join(prefixes...)+"retrieval.chunk-overlap", o.ChunkOverlap, "Overlap between consecutive chunks in runes.")
	fs.IntVar(&o.TopNDense, options.Join(prefixes...)+"retrieval.top-n-dense", o.TopNDense, "Number of candidates from the dense vector search.")
	fs.IntVar(&o.TopNSparse, options.Join(prefixes...)+"retrieval.top-n-sparse", o.TopNSparse, "Number of candidates from the sparse keyword search.")
	fs.IntVar(&o.TopNRerank, options.Join(prefixes...)+"retrieval.top-n-rerank", o.TopNRerank, "Number of chunks kept after result fusion.")
}

// Validate validates the retrieval options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 {
		errs = append(errs, fmt.Errorf("retrieval.chunk-overlap cannot be negative"))
	}
	if o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("retrieval.chunk-overlap must be smaller than retrieval.chunk-size"))
	}
	if o.TopNDense <= 0 || o.TopNSparse <= 0 || o.TopNRerank <= 0 {
		errs = append(errs, fmt.Errorf("retrieval top-n values must be positive"))
	}
	// Rank fusion only narrows down, it cannot surface more chunks than
	// either candidate list holds.
	if o.TopNRerank > o.TopNDense || o.TopNRerank > o.TopNSparse {
		errs = append(errs, fmt.Errorf("retrieval.top-n-rerank cannot exceed retrieval.top-n-dense or retrieval.top-n-sparse"))
	}
	return errs
}

// Complete completes the retrieval options with defaults.
func (o *Options) Complete() error {
	return nil
}
