package errors

import "net/http"

// Common errors (module 00).
var (
	// ErrInvalidParam covers malformed or missing request input.
	ErrInvalidParam = Register(&Errno{
		Code:    MakeCode(0, 1, 1),
		HTTP:    http.StatusBadRequest,
		Message: "Invalid request parameter",
	})

	// ErrForbidden covers requests the caller is not allowed to make.
	ErrForbidden = Register(&Errno{
		Code:    MakeCode(0, 3, 1),
		HTTP:    http.StatusForbidden,
		Message: "Operation not permitted",
	})

	// ErrNotFound covers missing resources.
	ErrNotFound = Register(&Errno{
		Code:    MakeCode(0, 4, 1),
		HTTP:    http.StatusNotFound,
		Message: "Resource not found",
	})

	// ErrInternal is the fallback for unexpected failures.
	ErrInternal = Register(&Errno{
		Code:    MakeCode(0, 7, 1),
		HTTP:    http.StatusInternalServerError,
		Message: "Internal server error",
	})
)

// Conversation store errors (module 10).
var (
	ErrConversationNotFound = Register(&Errno{
		Code:    MakeCode(10, 4, 1),
		HTTP:    http.StatusNotFound,
		Message: "Conversation not found",
	})

	ErrInvalidConversationID = Register(&Errno{
		Code:    MakeCode(10, 1, 1),
		HTTP:    http.StatusBadRequest,
		Message: "Invalid conversation id",
	})

	ErrInvalidScope = Register(&Errno{
		Code:    MakeCode(10, 1, 2),
		HTTP:    http.StatusBadRequest,
		Message: "File scoped conversations must reference exactly one file",
	})

	ErrDatabase = Register(&Errno{
		Code:    MakeCode(10, 8, 1),
		HTTP:    http.StatusInternalServerError,
		Message: "Database operation failed",
	})
)

// Vector store and retrieval errors (module 11).
var (
	ErrVectorStore = Register(&Errno{
		Code:    MakeCode(11, 8, 1),
		HTTP:    http.StatusInternalServerError,
		Message: "Vector store operation failed",
	})

	ErrEmbedding = Register(&Errno{
		Code:    MakeCode(11, 10, 1),
		HTTP:    http.StatusBadGateway,
		Message: "Embedding generation failed",
	})
)

// LLM provider errors (module 12).
var (
	ErrLLMUnavailable = Register(&Errno{
		Code:    MakeCode(12, 10, 1),
		HTTP:    http.StatusBadGateway,
		Message: "Language model backend unavailable",
	})

	ErrLLMTimeout = Register(&Errno{
		Code:    MakeCode(12, 11, 1),
		HTTP:    http.StatusGatewayTimeout,
		Message: "Language model request timed out",
	})
)

// Moodle integration errors (module 13).
var (
	ErrMoodleUnavailable = Register(&Errno{
		Code:    MakeCode(13, 10, 1),
		HTTP:    http.StatusBadGateway,
		Message: "Moodle instance unreachable",
	})

	ErrMoodleFileNotFound = Register(&Errno{
		Code:    MakeCode(13, 4, 1),
		HTTP:    http.StatusNotFound,
		Message: "Requested file not known to Moodle",
	})
)

// Document ingestion errors (module 14).
var (
	ErrDocumentParse = Register(&Errno{
		Code:    MakeCode(14, 1, 1),
		HTTP:    http.StatusBadRequest,
		Message: "Document could not be parsed",
	})

	ErrIngestFailed = Register(&Errno{
		Code:    MakeCode(14, 7, 1),
		HTTP:    http.StatusInternalServerError,
		Message: "Document ingestion failed",
	})
)
