// Package store provides the persistence interfaces of the apiserver:
// the conversation store backed by MongoDB and the vector store backed
// by Milvus.
package store

import (
	"context"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/model"
)

// ConversationQuery narrows conversation listings. UserID is mandatory,
// the remaining fields are optional.
type ConversationQuery struct {
	UserID   string
	CourseID string
	FileID   string
	Scope    string
}

// ConversationStore persists conversation records.
type ConversationStore interface {
	// Create persists a new conversation and returns its generated id.
	Create(ctx context.Context, conv *model.Conversation) (string, error)

	// Get loads one conversation by id.
	Get(ctx context.Context, id string) (*model.Conversation, error)

	// Find lists conversations matching the query.
	Find(ctx context.Context, query ConversationQuery) ([]model.Conversation, error)

	// FindByUser lists all conversations of a user.
	FindByUser(ctx context.Context, userID string) ([]model.Conversation, error)

	// Update overwrites the mutable fields of an existing conversation.
	Update(ctx context.Context, id string, conv *model.Conversation) error

	// Delete removes a conversation.
	Delete(ctx context.Context, id string) error

	// AppendMessages pushes messages onto the conversation's message
	// array in one atomic update.
	AppendMessages(ctx context.Context, id string, messages []model.Message) error

	// SetCourseContext atomically sets the conversation's course id.
	SetCourseContext(ctx context.Context, id, courseID string) error
}

// VectorStore owns the hybrid chunk index.
type VectorStore interface {
	// CreateDocument splits the document and indexes the resulting
	// chunks. Re-inserting the same document id duplicates chunks,
	// callers probe with ExistsWithMetadata first.
	CreateDocument(ctx context.Context, doc model.Document) error

	// FindSimilarNodes retrieves the best matching chunks for the query,
	// restricted to chunks matching the filters. Values of the same
	// filter key are OR combined.
	FindSimilarNodes(ctx context.Context, query string, filters map[string][]string) ([]model.Chunk, error)

	// ExistsWithMetadata reports whether any chunk matches all given
	// metadata values exactly.
	ExistsWithMetadata(ctx context.Context, metadata map[string]string) (bool, error)
}
