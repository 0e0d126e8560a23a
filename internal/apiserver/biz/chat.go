package biz

import (
	"context"

	"github.com/kart-io/logger"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/model"
)

// ChatResult is returned after one message round trip.
type ChatResult struct {
	ConversationID string        `json:"conversationId"`
	Response       string        `json:"response"`
	Timestamp      float64       `json:"timestamp"`
	Nodes          []model.Chunk `json:"nodes"`
}

// ChatService runs the full message pipeline: load the conversation,
// make sure its files are indexed, generate a grounded answer and
// append the user/assistant pair atomically.
type ChatService struct {
	conversations *ConversationUsecases
	ingestor      *Ingestor
	engine        *RAGEngine

	// locks serializes pipelines per conversation id. Concurrent sends
	// to the same conversation would otherwise interleave their history
	// reads and message pushes.
	locks *keyedMutex
}

// NewChatService creates a ChatService.
func NewChatService(conversations *ConversationUsecases, ingestor *Ingestor, engine *RAGEngine) *ChatService {
	return &ChatService{
		conversations: conversations,
		ingestor:      ingestor,
		engine:        engine,
		locks:         newKeyedMutex(),
	}
}

// SendMessage appends a user message to the conversation, produces the
// assistant answer and returns it together with the cited chunks. The
// stored conversation always gains exactly two messages per call, readers
// never observe the user message without its answer.
func (s *ChatService) SendMessage(ctx context.Context, conversationID, message, chatModel string) (*ChatResult, error) {
	unlock := s.locks.Lock(conversationID)
	defer unlock()

	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	fileIDs, err := s.ingestor.EnsureIndexed(ctx, conv)
	if err != nil {
		return nil, err
	}

	// Retrieval is restricted to the resolved file set for both scopes.
	// Filtering course scope on the course id would miss files indexed
	// earlier through a file scoped conversation, those chunks carry no
	// course metadata.
	filters := make(map[string][]string)
	if len(fileIDs) > 0 {
		filters[model.MetaFileID] = fileIDs
	}

	userMessage := model.Message{
		Role:      model.RoleUser,
		Content:   message,
		Timestamp: model.PosixNow(),
	}
	history := append(append([]model.Message{}, conv.Messages...), userMessage)

	answer, err := s.engine.Ask(ctx, history, filters, chatModel)
	if err != nil {
		return nil, err
	}

	assistantMessage := model.Message{
		Role:      model.RoleAssistant,
		Content:   answer.Response,
		Nodes:     answer.Nodes,
		Timestamp: model.PosixNow(),
	}

	if err := s.conversations.AppendMessages(ctx, conversationID, []model.Message{userMessage, assistantMessage}); err != nil {
		// The answer was generated but not persisted. Surface the
		// storage failure, the caller must not assume the conversation
		// advanced.
		return nil, err
	}

	logger.Infow("message round trip completed",
		"conversation_id", conversationID,
		"nodes", len(answer.Nodes),
		"model", chatModel,
	)

	return &ChatResult{
		ConversationID: conversationID,
		Response:       answer.Response,
		Timestamp:      assistantMessage.Timestamp,
		Nodes:          answer.Nodes,
	}, nil
}
