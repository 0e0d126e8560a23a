// Package biz implements the business logic of the apiserver: the
// conversation usecases, document ingestion and the retrieval augmented
// chat pipeline.
package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver/metrics"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver/store"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/model"
)

// ConversationUsecases wraps the conversation store with invariant
// checks and instrumentation.
type ConversationUsecases struct {
	store   store.ConversationStore
	metrics *metrics.Metrics
}

// NewConversationUsecases creates the usecase layer over the store.
func NewConversationUsecases(s store.ConversationStore) *ConversationUsecases {
	return &ConversationUsecases{
		store:   s,
		metrics: metrics.Get(),
	}
}

// timed records duration and outcome of one usecase call. It takes a
// pointer so deferred calls observe the final named return value.
func (u *ConversationUsecases) timed(op string, start time.Time, err *error) {
	duration := time.Since(start)
	u.metrics.RecordUsecase(duration, *err)
	logger.Debugw("conversation usecase finished",
		"op", op,
		"duration", duration.String(),
		"failed", *err != nil,
	)
}

// Create validates and persists a new conversation, returning its id.
func (u *ConversationUsecases) Create(ctx context.Context, conv *model.Conversation) (id string, err error) {
	defer u.timed("create", time.Now(), &err)

	if err = conv.Validate(); err != nil {
		return "", err
	}
	return u.store.Create(ctx, conv)
}

// Get loads a single conversation.
func (u *ConversationUsecases) Get(ctx context.Context, id string) (conv *model.Conversation, err error) {
	defer u.timed("get", time.Now(), &err)
	return u.store.Get(ctx, id)
}

// Find lists conversations matching the query.
func (u *ConversationUsecases) Find(ctx context.Context, query store.ConversationQuery) (convs []model.Conversation, err error) {
	defer u.timed("find", time.Now(), &err)
	return u.store.Find(ctx, query)
}

// FindByUser lists all conversations of a user.
func (u *ConversationUsecases) FindByUser(ctx context.Context, userID string) (convs []model.Conversation, err error) {
	defer u.timed("find_by_user", time.Now(), &err)
	return u.store.FindByUser(ctx, userID)
}

// Update overwrites an existing conversation after re-validating it.
func (u *ConversationUsecases) Update(ctx context.Context, id string, conv *model.Conversation) (err error) {
	defer u.timed("update", time.Now(), &err)

	if err = conv.Validate(); err != nil {
		return err
	}
	return u.store.Update(ctx, id, conv)
}

// Delete removes a conversation.
func (u *ConversationUsecases) Delete(ctx context.Context, id string) (err error) {
	defer u.timed("delete", time.Now(), &err)
	return u.store.Delete(ctx, id)
}

// SetCourseContext sets the course id of an existing conversation.
func (u *ConversationUsecases) SetCourseContext(ctx context.Context, id, courseID string) (err error) {
	defer u.timed("set_course_context", time.Now(), &err)
	return u.store.SetCourseContext(ctx, id, courseID)
}

// AppendMessages pushes messages onto a conversation atomically.
func (u *ConversationUsecases) AppendMessages(ctx context.Context, id string, messages []model.Message) (err error) {
	defer u.timed("append_messages", time.Now(), &err)
	return u.store.AppendMessages(ctx, id, messages)
}
