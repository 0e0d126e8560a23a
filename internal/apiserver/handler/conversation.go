// Package handler exposes the conversation API over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver/biz"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver/store"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/model"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/errors"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/response"
)

// ConversationHandler handles conversation CRUD and message requests.
type ConversationHandler struct {
	conversations *biz.ConversationUsecases
	chat          *biz.ChatService
}

// NewConversationHandler creates a ConversationHandler.
func NewConversationHandler(conversations *biz.ConversationUsecases, chat *biz.ChatService) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		chat:          chat,
	}
}

// idResponse is the body returned by create, update and context routes.
type idResponse struct {
	ID string `json:"id"`
}

// MessageRequest is the body for sending a message into a conversation.
type MessageRequest struct {
	Message string `json:"message"`
	Model   string `json:"model"`
}

// List returns conversations matching the query context.
func (h *ConversationHandler) List(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		response.WriteError(c, errors.ErrInvalidParam.WithMessage("user_id is required"))
		return
	}

	convs, err := h.conversations.Find(c.Request.Context(), store.ConversationQuery{
		UserID:   userID,
		CourseID: c.Query("course_id"),
		FileID:   c.Query("file_id"),
		Scope:    c.Query("scope"),
	})
	if err != nil {
		response.WriteError(c, err)
		return
	}
	if convs == nil {
		convs = []model.Conversation{}
	}
	response.WriteSuccess(c, http.StatusOK, convs)
}

// Create stores a new conversation and returns its id.
func (h *ConversationHandler) Create(c *gin.Context) {
	var conv model.Conversation
	if err := c.ShouldBindJSON(&conv); err != nil {
		response.WriteError(c, errors.ErrInvalidParam.WithMessage("invalid conversation body: %v", err))
		return
	}
	logger.Debugw("creating conversation", "user", conv.User, "scope", conv.Context.Scope)

	id, err := h.conversations.Create(c.Request.Context(), &conv)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteSuccess(c, http.StatusOK, idResponse{ID: id})
}

// ListByUser returns every conversation owned by the user.
func (h *ConversationHandler) ListByUser(c *gin.Context) {
	convs, err := h.conversations.FindByUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		response.WriteError(c, err)
		return
	}
	if convs == nil {
		convs = []model.Conversation{}
	}
	response.WriteSuccess(c, http.StatusOK, convs)
}

// Update replaces the mutable fields of an existing conversation.
func (h *ConversationHandler) Update(c *gin.Context) {
	id := c.Param("conversation_id")

	// The conversation must exist before the update is attempted so that
	// an unknown id answers 404 instead of a validation error.
	if _, err := h.conversations.Get(c.Request.Context(), id); err != nil {
		response.WriteError(c, err)
		return
	}

	var conv model.Conversation
	if err := c.ShouldBindJSON(&conv); err != nil {
		response.WriteError(c, errors.ErrInvalidParam.WithMessage("invalid conversation body: %v", err))
		return
	}

	if err := h.conversations.Update(c.Request.Context(), id, &conv); err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteSuccess(c, http.StatusOK, idResponse{ID: id})
}

// Delete removes a conversation.
func (h *ConversationHandler) Delete(c *gin.Context) {
	if err := h.conversations.Delete(c.Request.Context(), c.Param("conversation_id")); err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteSuccess(c, http.StatusOK, nil)
}

// SetCourseContext attaches a course id to an existing conversation.
func (h *ConversationHandler) SetCourseContext(c *gin.Context) {
	id := c.Param("conversation_id")
	courseID := c.Query("courseId")
	if courseID == "" {
		response.WriteError(c, errors.ErrInvalidParam.WithMessage("courseId is required"))
		return
	}

	if err := h.conversations.SetCourseContext(c.Request.Context(), id, courseID); err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteSuccess(c, http.StatusOK, idResponse{ID: id})
}

// SendMessage runs the retrieval pipeline for one user message and
// returns the generated answer with its source nodes.
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, errors.ErrInvalidParam.WithMessage("invalid message body: %v", err))
		return
	}
	if req.Message == "" {
		response.WriteError(c, errors.ErrInvalidParam.WithMessage("message must not be empty"))
		return
	}

	result, err := h.chat.SendMessage(c.Request.Context(), c.Param("conversation_id"), req.Message, req.Model)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteSuccess(c, http.StatusOK, result)
}
