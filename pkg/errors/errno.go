// Package errors provides the structured error system used across the
// mokitul API service.
//
// Every error carries a globally unique numeric code and the HTTP status
// the API layer should answer with. Handlers never pick status codes
// themselves, they return an *Errno and let the response writer map it.
//
// Error Code Format: AABBCCC (7 digits)
//
//	AA  (00-99): Module code - identifies the source module
//	BB  (00-99): Category code - identifies the error category
//	CCC (000-999): Sequence number within the category
//
// Module Codes (AA):
//
//	00: Common/Base errors
//	10: Conversation store
//	11: Vector store / retrieval
//	12: LLM providers
//	13: Moodle integration
//	14: Document ingestion
//
// Category Codes (BB):
//
//	01: Request/Validation errors (400)
//	03: Authorization errors (403)
//	04: Resource not found errors (404)
//	07: Internal errors (500)
//	08: Database errors (500)
//	10: Upstream/network errors (502)
//	11: Timeout errors (504)
package errors

import (
	"errors"
	"fmt"
	"sync"
)

// Errno represents a structured error with a stable code, an HTTP status
// and a human readable detail message.
type Errno struct {
	// Code is the unique error code.
	Code int `json:"code"`

	// HTTP is the HTTP status code to answer with.
	HTTP int `json:"-"`

	// Message is the detail message returned to clients.
	Message string `json:"detail"`

	// cause is the wrapped underlying error.
	cause error
}

// Error implements the error interface.
func (e *Errno) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("errno %d: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("errno %d: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Errno) Unwrap() error {
	return e.cause
}

// WithCause returns a copy of the Errno wrapping the given cause.
func (e *Errno) WithCause(cause error) *Errno {
	clone := *e
	clone.cause = cause
	return &clone
}

// WithMessage returns a copy of the Errno with a custom detail message.
// The code and HTTP status are preserved.
func (e *Errno) WithMessage(format string, args ...any) *Errno {
	clone := *e
	clone.Message = fmt.Sprintf(format, args...)
	return &clone
}

// Is reports whether target is an *Errno with the same code. This makes
// errors.Is work across WithMessage/WithCause copies.
func (e *Errno) Is(target error) bool {
	var t *Errno
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// MakeCode builds an error code from module, category and sequence parts.
func MakeCode(module, category, seq int) int {
	return module*100000 + category*1000 + seq
}

var (
	registry   = make(map[int]*Errno)
	registryMu sync.RWMutex
)

// Register registers an Errno in the global registry and returns it.
// It panics on duplicate codes, which points at a programming error.
func Register(e *Errno) *Errno {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, ok := registry[e.Code]; ok {
		panic(fmt.Sprintf("errors: duplicate error code %d", e.Code))
	}
	registry[e.Code] = e
	return e
}

// FromError extracts the *Errno from err's chain. Unknown errors map to
// ErrInternal so that no raw error detail leaks to clients.
func FromError(err error) *Errno {
	if err == nil {
		return nil
	}
	var e *Errno
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.WithCause(err)
}
