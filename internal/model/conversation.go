// Package model defines the data models of the mokitul API.
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/errors"
)

// Scope describes what a conversation is grounded against.
type Scope string

const (
	// ScopeFile grounds a conversation against a single course file.
	ScopeFile Scope = "file"

	// ScopeCourse grounds a conversation against all files of a course.
	ScopeCourse Scope = "course"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Context carries the retrieval scope of a conversation.
type Context struct {
	FileIDs  []string `json:"fileIds" bson:"fileIds"`
	CourseID string   `json:"courseId,omitempty" bson:"courseId,omitempty"`
	Scope    Scope    `json:"scope" bson:"scope"`
}

// Message is a single turn in a conversation. Messages are append-only,
// user and assistant turns are pushed together after each LLM round trip.
// Timestamps are POSIX seconds, the wire format the Moodle plugin
// consumes.
type Message struct {
	ID        string  `json:"id,omitempty" bson:"id,omitempty"`
	Role      Role    `json:"role" bson:"role"`
	Content   string  `json:"content" bson:"content"`
	Nodes     []Chunk `json:"nodes,omitempty" bson:"nodes,omitempty"`
	Timestamp float64 `json:"timestamp" bson:"timestamp"`
}

// Conversation is the persisted chat record.
type Conversation struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	User      string             `json:"user" bson:"user"`
	Messages  []Message          `json:"messages" bson:"messages"`
	Context   Context            `json:"context" bson:"context"`
	Timestamp float64            `json:"timestamp" bson:"timestamp"`
	Summary   string             `json:"summary,omitempty" bson:"summary,omitempty"`
}

// PosixNow returns the current time as POSIX seconds with sub-second
// precision.
func PosixNow() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// Validate checks the creation invariants of a conversation.
// A file scoped conversation must reference exactly one file.
func (c *Conversation) Validate() error {
	if c.User == "" {
		return errors.ErrInvalidParam.WithMessage("user is required")
	}

	switch c.Context.Scope {
	case ScopeFile:
		if len(c.Context.FileIDs) != 1 {
			return errors.ErrInvalidScope
		}
	case ScopeCourse:
		if c.Context.CourseID == "" {
			return errors.ErrInvalidParam.WithMessage("course scoped conversations require a courseId")
		}
	default:
		return errors.ErrInvalidParam.WithMessage("scope must be %q or %q", ScopeFile, ScopeCourse)
	}

	return nil
}
