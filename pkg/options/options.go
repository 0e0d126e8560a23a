// Package options defines the generic options interface shared by all
// configurable components of the mokitul API.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// Join concatenates prefixes with "." and appends a trailing "." when the
// result is non-empty. It is used to build flag names like "mongodb.host"
// or "prefix.mongodb.host".
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined != "" {
		joined += "."
	}
	return joined
}

// IOptions defines methods to implement a generic options struct.
type IOptions interface {
	// Validate validates all the required options.
	Validate() []error

	// AddFlags adds flags related to the given flagset.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}
