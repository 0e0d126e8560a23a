// Package redis provides Redis client options for the embedding cache.
package redis

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains Redis client configuration.
type Options struct {
	// Enabled toggles the embedding cache. When off, embeddings are
	// computed on every request.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	Addr     string `json:"addr" mapstructure:"addr"`
	Password string `json:"-" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`

	// TTL is how long cached embeddings live. Zero means no expiry.
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	DialTimeout time.Duration `json:"dial-timeout" mapstructure:"dial-timeout"`
	PoolSize    int           `json:"pool-size" mapstructure:"pool-size"`
}

// NewOptions creates Options with default values.
func NewOptions() *Options {
	return &Options{
		Enabled:     false,
		Addr:        "127.0.0.1:6379",
		DB:          0,
		TTL:         7 * 24 * time.Hour,
		DialTimeout: 5 * time.Second,
		PoolSize:    10,
	}
}

// Complete reads sensitive values from the environment when unset.
func (o *Options) Complete() error {
	if o.Password == "" {
		o.Password = os.Getenv("REDIS_PASSWORD")
	}
	return nil
}

// Validate validates the Redis options.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.Addr == "" {
		errs = append(errs, fmt.Errorf("redis.addr cannot be empty when the cache is enabled"))
	}
	if o.DB < 0 {
		errs = append(errs, fmt.Errorf("redis.db cannot be negative"))
	}
	return errs
}

// AddFlags adds flags for Redis options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, options.Join(prefixes...)+"redis.enabled", o.Enabled, "Enable the Redis backed embedding cache.")
	fs.StringVar(&o.Addr, options.Join(prefixes...)+"redis.addr", o.Addr, "Redis server address (host:port).")
	fs.StringVar(&o.Password, options.Join(prefixes...)+"redis.password", o.Password, "Password for Redis access (prefer the REDIS_PASSWORD env var).")
	fs.IntVar(&o.DB, options.Join(prefixes...)+"redis.db", o.DB, "Redis database index.")
	fs.DurationVar(&o.TTL, options.Join(prefixes...)+"redis.ttl", o.TTL, "Time cached embeddings are kept.")
	fs.DurationVar(&o.DialTimeout, options.Join(prefixes...)+"redis.dial-timeout", o.DialTimeout, "Timeout for establishing connections.")
	fs.IntVar(&o.PoolSize, options.Join(prefixes...)+"redis.pool-size", o.PoolSize, "Connection pool size.")
}
