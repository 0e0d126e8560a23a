package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver/biz"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver/handler"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver/router"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver/store"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/model"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/pkg/moodle"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/errors"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/llm"
)

type memoryStore struct {
	conversations map[string]*model.Conversation
}

func newMemoryStore() *memoryStore {
	return &memoryStore{conversations: make(map[string]*model.Conversation)}
}

func (m *memoryStore) Create(_ context.Context, conv *model.Conversation) (string, error) {
	conv.ID = primitive.NewObjectID()
	id := conv.ID.Hex()
	clone := *conv
	m.conversations[id] = &clone
	return id, nil
}

func (m *memoryStore) Get(_ context.Context, id string) (*model.Conversation, error) {
	conv, ok := m.conversations[id]
	if !ok {
		return nil, errors.ErrConversationNotFound
	}
	clone := *conv
	return &clone, nil
}

func (m *memoryStore) Find(_ context.Context, query store.ConversationQuery) ([]model.Conversation, error) {
	var out []model.Conversation
	for _, conv := range m.conversations {
		if conv.User == query.UserID {
			out = append(out, *conv)
		}
	}
	return out, nil
}

func (m *memoryStore) FindByUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	return m.Find(ctx, store.ConversationQuery{UserID: userID})
}

func (m *memoryStore) Update(_ context.Context, id string, conv *model.Conversation) error {
	if _, ok := m.conversations[id]; !ok {
		return errors.ErrConversationNotFound
	}
	clone := *conv
	m.conversations[id] = &clone
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	if _, ok := m.conversations[id]; !ok {
		return errors.ErrConversationNotFound
	}
	delete(m.conversations, id)
	return nil
}

func (m *memoryStore) AppendMessages(_ context.Context, id string, messages []model.Message) error {
	conv, ok := m.conversations[id]
	if !ok {
		return errors.ErrConversationNotFound
	}
	conv.Messages = append(conv.Messages, messages...)
	return nil
}

func (m *memoryStore) SetCourseContext(_ context.Context, id, courseID string) error {
	conv, ok := m.conversations[id]
	if !ok {
		return errors.ErrConversationNotFound
	}
	conv.Context.CourseID = courseID
	return nil
}

type memoryVectorStore struct{}

func (memoryVectorStore) CreateDocument(context.Context, model.Document) error { return nil }

func (memoryVectorStore) FindSimilarNodes(context.Context, string, map[string][]string) ([]model.Chunk, error) {
	return []model.Chunk{{ID: "c1", Text: "Kontext", Metadata: map[string]string{model.MetaFileName: "skript.pdf"}}}, nil
}

func (memoryVectorStore) ExistsWithMetadata(context.Context, map[string]string) (bool, error) {
	return true, nil
}

type memoryMoodle struct{}

func (memoryMoodle) Download(_ context.Context, fileID string) (*moodle.File, error) {
	return &moodle.File{ID: fileID, LocalPath: "/tmp/" + fileID + ".pdf"}, nil
}

func (memoryMoodle) FileIDsForCourse(context.Context, string) ([]string, error) {
	return nil, nil
}

type memoryConverter struct{}

func (memoryConverter) ExtractPages(string) ([]string, error) { return []string{"Seite"}, nil }

type memoryChat struct{}

func (memoryChat) Chat(context.Context, string, []llm.Message) (string, error) {
	return "Antwort aus dem Skript.", nil
}

func newTestServer(t *testing.T) (*gin.Engine, *memoryStore) {
	t.Helper()

	convStore := newMemoryStore()
	usecases := biz.NewConversationUsecases(convStore)
	chat := biz.NewChatService(
		usecases,
		biz.NewIngestor(memoryMoodle{}, memoryConverter{}, memoryVectorStore{}),
		biz.NewRAGEngine(memoryVectorStore{}, memoryChat{}),
	)

	conversations := handler.NewConversationHandler(usecases, chat)
	health := handler.NewHealthHandler(func() bool { return true })
	cfg := router.Config{RootPath: "/api", EnableLLMPath: true}
	return router.New(cfg, conversations, health, func() bool { return true }), convStore
}

func doRequest(engine *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestCreateConversation(t *testing.T) {
	engine, _ := newTestServer(t)

	rec := doRequest(engine, http.MethodPost, "/api/v1/conversations/", `{
		"user": "student-1",
		"context": {"scope": "file", "fileIds": ["F1"]}
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["id"])
}

func TestCreateConversationInvalidScope(t *testing.T) {
	engine, _ := newTestServer(t)

	rec := doRequest(engine, http.MethodPost, "/api/v1/conversations/", `{
		"user": "student-1",
		"context": {"scope": "file", "fileIds": ["F1", "F2"]}
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["detail"], "exactly one file")
}

func TestListRequiresUserID(t *testing.T) {
	engine, _ := newTestServer(t)

	rec := doRequest(engine, http.MethodGet, "/api/v1/conversations/?course_id=C1", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "user_id")
}

func TestListReturnsEmptyArray(t *testing.T) {
	engine, _ := newTestServer(t)

	rec := doRequest(engine, http.MethodGet, "/api/v1/conversations/?user_id=nobody", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestUpdateUnknownConversation(t *testing.T) {
	engine, _ := newTestServer(t)

	rec := doRequest(engine, http.MethodPut, "/api/v1/conversations/65f000000000000000000000", `{
		"user": "student-1",
		"context": {"scope": "file", "fileIds": ["F1"]}
	}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteConversation(t *testing.T) {
	engine, convStore := newTestServer(t)

	id, err := convStore.Create(context.Background(), &model.Conversation{
		User:    "student-1",
		Context: model.Context{Scope: model.ScopeFile, FileIDs: []string{"F1"}},
	})
	require.NoError(t, err)

	rec := doRequest(engine, http.MethodDelete, "/api/v1/conversations/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, convStore.conversations)

	rec = doRequest(engine, http.MethodDelete, "/api/v1/conversations/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetCourseContext(t *testing.T) {
	engine, convStore := newTestServer(t)

	id, err := convStore.Create(context.Background(), &model.Conversation{
		User:    "student-1",
		Context: model.Context{Scope: model.ScopeCourse, CourseID: "C0"},
	})
	require.NoError(t, err)

	rec := doRequest(engine, http.MethodPut, "/api/v1/conversations/"+id+"/context/course?courseId=C1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "C1", convStore.conversations[id].Context.CourseID)

	rec = doRequest(engine, http.MethodPut, "/api/v1/conversations/"+id+"/context/course", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessage(t *testing.T) {
	engine, convStore := newTestServer(t)

	id, err := convStore.Create(context.Background(), &model.Conversation{
		User:    "student-1",
		Context: model.Context{Scope: model.ScopeFile, FileIDs: []string{"F1"}},
	})
	require.NoError(t, err)

	rec := doRequest(engine, http.MethodPut, "/api/v1/conversations/"+id+"/message", `{
		"message": "Was steht im Skript?",
		"model": "llama3.1"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		ConversationID string        `json:"conversationId"`
		Response       string        `json:"response"`
		Nodes          []model.Chunk `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, id, body.ConversationID)
	assert.Equal(t, "Antwort aus dem Skript.", body.Response)
	require.Len(t, body.Nodes, 1)

	require.Len(t, convStore.conversations[id].Messages, 2)
}

func TestSendMessageEmptyBody(t *testing.T) {
	engine, convStore := newTestServer(t)

	id, err := convStore.Create(context.Background(), &model.Conversation{
		User:    "student-1",
		Context: model.Context{Scope: model.ScopeFile, FileIDs: []string{"F1"}},
	})
	require.NoError(t, err)

	rec := doRequest(engine, http.MethodPut, "/api/v1/conversations/"+id+"/message", `{"model": "llama3.1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDisabledLLMPathHidesMessageRoute(t *testing.T) {
	convStore := newMemoryStore()
	usecases := biz.NewConversationUsecases(convStore)
	chat := biz.NewChatService(
		usecases,
		biz.NewIngestor(memoryMoodle{}, memoryConverter{}, memoryVectorStore{}),
		biz.NewRAGEngine(memoryVectorStore{}, memoryChat{}),
	)

	conversations := handler.NewConversationHandler(usecases, chat)
	health := handler.NewHealthHandler(func() bool { return true })
	cfg := router.Config{RootPath: "/api", EnableLLMPath: false}
	engine := router.New(cfg, conversations, health, func() bool { return true })

	id, err := convStore.Create(context.Background(), &model.Conversation{
		User:    "student-1",
		Context: model.Context{Scope: model.ScopeFile, FileIDs: []string{"F1"}},
	})
	require.NoError(t, err)

	rec := doRequest(engine, http.MethodPut, "/api/v1/conversations/"+id+"/message", `{"message": "Frage"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// CRUD stays available.
	rec = doRequest(engine, http.MethodGet, "/api/v1/conversations/?user_id=student-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessGateBlocksAPI(t *testing.T) {
	conversations := handler.NewConversationHandler(
		biz.NewConversationUsecases(newMemoryStore()),
		biz.NewChatService(
			biz.NewConversationUsecases(newMemoryStore()),
			biz.NewIngestor(memoryMoodle{}, memoryConverter{}, memoryVectorStore{}),
			biz.NewRAGEngine(memoryVectorStore{}, memoryChat{}),
		),
	)
	health := handler.NewHealthHandler(func() bool { return false })
	cfg := router.Config{RootPath: "/api", EnableLLMPath: true}
	engine := router.New(cfg, conversations, health, func() bool { return false })

	rec := doRequest(engine, http.MethodGet, "/api/v1/conversations/?user_id=u", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// Liveness stays up while the gate is closed.
	rec = doRequest(engine, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(engine, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
