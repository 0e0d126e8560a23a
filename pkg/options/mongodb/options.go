// Package mongodb provides MongoDB client options.
package mongodb

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// redactedPassword is the placeholder used when serializing passwords.
const redactedPassword = "[REDACTED]"

// Options defines configuration options for MongoDB.
type Options struct {
	// URI is a full connection string. When set it wins over the
	// host/port fields.
	URI      string `json:"uri" mapstructure:"uri"`
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"-" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`

	// Collection holds the conversation collection name.
	Collection string `json:"collection" mapstructure:"collection"`

	MaxPoolSize uint64        `json:"max-pool-size" mapstructure:"max-pool-size"`
	MinPoolSize uint64        `json:"min-pool-size" mapstructure:"min-pool-size"`
	MaxIdleTime time.Duration `json:"max-idle-time" mapstructure:"max-idle-time"`

	ConnectTimeout         time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`
	ServerSelectionTimeout time.Duration `json:"server-selection-timeout" mapstructure:"server-selection-timeout"`

	ReplicaSet string `json:"replica-set" mapstructure:"replica-set"`
	AuthSource string `json:"auth-source" mapstructure:"auth-source"`
	Direct     bool   `json:"direct" mapstructure:"direct"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Host:                   "127.0.0.1",
		Port:                   27017,
		Database:               "mokitul",
		Collection:             "conversations",
		MaxPoolSize:            100,
		MinPoolSize:            10,
		MaxIdleTime:            10 * time.Minute,
		ConnectTimeout:         10 * time.Second,
		ServerSelectionTimeout: 30 * time.Second,
		AuthSource:             "admin",
	}
}

// MarshalJSON implements json.Marshaler with password redaction so the
// options can be dumped at startup without leaking credentials.
func (o *Options) MarshalJSON() ([]byte, error) {
	type alias Options
	clone := alias(*o)
	out := struct {
		alias
		Password string `json:"password"`
	}{alias: clone}
	if o.Password != "" {
		out.Password = redactedPassword
	}
	return json.Marshal(out)
}

// String returns a representation safe for logging.
func (o *Options) String() string {
	password := ""
	if o.Password != "" {
		password = redactedPassword
	}
	return fmt.Sprintf("MongoDB{host=%s, port=%d, user=%s, password=%s, database=%s, collection=%s}",
		o.Host, o.Port, o.Username, password, o.Database, o.Collection)
}

// Complete reads sensitive values from the environment when unset.
func (o *Options) Complete() error {
	if o.Password == "" {
		o.Password = os.Getenv("MONGODB_PASSWORD")
	}
	return nil
}

// Validate checks if the options are valid.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.URI == "" && o.Host == "" {
		errs = append(errs, fmt.Errorf("mongodb.host or mongodb.uri must be set"))
	}
	if o.Database == "" {
		errs = append(errs, fmt.Errorf("mongodb.database cannot be empty"))
	}
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("mongodb.collection cannot be empty"))
	}
	return errs
}

// AddFlags adds flags for MongoDB options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.URI, options.Join(prefixes...)+"mongodb.uri", o.URI, "MongoDB connection URI (mongodb://...).")
	fs.StringVar(&o.Host, options.Join(prefixes...)+"mongodb.host", o.Host, "MongoDB host address.")
	fs.IntVar(&o.Port, options.Join(prefixes...)+"mongodb.port", o.Port, "MongoDB port.")
	fs.StringVar(&o.Username, options.Join(prefixes...)+"mongodb.username", o.Username, "Username for MongoDB access.")
	fs.StringVar(&o.Password, options.Join(prefixes...)+"mongodb.password", o.Password, "Password for MongoDB access (prefer the MONGODB_PASSWORD env var).")
	fs.StringVar(&o.Database, options.Join(prefixes...)+"mongodb.database", o.Database, "Database holding the conversation data.")
	fs.StringVar(&o.Collection, options.Join(prefixes...)+"mongodb.collection", o.Collection, "Collection holding the conversations.")
	fs.Uint64Var(&o.MaxPoolSize, options.Join(prefixes...)+"mongodb.max-pool-size", o.MaxPoolSize, "Maximum number of connections in the pool.")
	fs.Uint64Var(&o.MinPoolSize, options.Join(prefixes...)+"mongodb.min-pool-size", o.MinPoolSize, "Minimum number of connections in the pool.")
	fs.DurationVar(&o.MaxIdleTime, options.Join(prefixes...)+"mongodb.max-idle-time", o.MaxIdleTime, "Maximum idle time for a pooled connection.")
	fs.DurationVar(&o.ConnectTimeout, options.Join(prefixes...)+"mongodb.connect-timeout", o.ConnectTimeout, "Timeout for establishing connections.")
	fs.DurationVar(&o.ServerSelectionTimeout, options.Join(prefixes...)+"mongodb.server-selection-timeout", o.ServerSelectionTimeout, "Timeout for server selection.")
	fs.StringVar(&o.ReplicaSet, options.Join(prefixes...)+"mongodb.replica-set", o.ReplicaSet, "MongoDB replica set name.")
	fs.StringVar(&o.AuthSource, options.Join(prefixes...)+"mongodb.auth-source", o.AuthSource, "MongoDB authentication source.")
	fs.BoolVar(&o.Direct, options.Join(prefixes...)+"mongodb.direct", o.Direct, "Use a direct connection.")
}

// BuildURI builds a MongoDB URI from the options. A URI set explicitly
// wins over the individual fields.
func (o *Options) BuildURI() string {
	if o.URI != "" {
		return o.URI
	}

	var uri strings.Builder
	uri.WriteString("mongodb://")

	if o.Username != "" {
		uri.WriteString(url.QueryEscape(o.Username))
		if o.Password != "" {
			uri.WriteString(":")
			uri.WriteString(url.QueryEscape(o.Password))
		}
		uri.WriteString("@")
	}

	uri.WriteString(o.Host)
	if o.Port != 0 {
		fmt.Fprintf(&uri, ":%d", o.Port)
	}
	uri.WriteString("/")
	if o.Database != "" {
		uri.WriteString(o.Database)
	}

	params := url.Values{}
	if o.AuthSource != "" && o.AuthSource != "admin" {
		params.Add("authSource", o.AuthSource)
	}
	if o.ReplicaSet != "" {
		params.Add("replicaSet", o.ReplicaSet)
	}
	if o.Direct {
		params.Add("directConnection", "true")
	}
	if len(params) > 0 {
		uri.WriteString("?")
		uri.WriteString(params.Encode())
	}

	return uri.String()
}
