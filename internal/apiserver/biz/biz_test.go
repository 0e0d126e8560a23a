package biz

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver/store"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/model"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/pkg/moodle"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/errors"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/llm"
)

// fakeConversationStore is an in-memory ConversationStore.
type fakeConversationStore struct {
	mu            sync.Mutex
	conversations map[string]*model.Conversation
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{conversations: make(map[string]*model.Conversation)}
}

func (f *fakeConversationStore) Create(_ context.Context, conv *model.Conversation) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv.ID = primitive.NewObjectID()
	id := conv.ID.Hex()
	clone := *conv
	f.conversations[id] = &clone
	return id, nil
}

func (f *fakeConversationStore) Get(_ context.Context, id string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[id]
	if !ok {
		return nil, errors.ErrConversationNotFound.WithMessage("conversation %s not found", id)
	}
	clone := *conv
	clone.Messages = append([]model.Message{}, conv.Messages...)
	return &clone, nil
}

func (f *fakeConversationStore) Find(_ context.Context, query store.ConversationQuery) ([]model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Conversation
	for _, conv := range f.conversations {
		if conv.User != query.UserID {
			continue
		}
		if query.CourseID != "" && conv.Context.CourseID != query.CourseID {
			continue
		}
		if query.Scope != "" && string(conv.Context.Scope) != query.Scope {
			continue
		}
		if query.FileID != "" {
			found := false
			for _, id := range conv.Context.FileIDs {
				if id == query.FileID {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, *conv)
	}
	return out, nil
}

func (f *fakeConversationStore) FindByUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	return f.Find(ctx, store.ConversationQuery{UserID: userID})
}

func (f *fakeConversationStore) Update(_ context.Context, id string, conv *model.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.conversations[id]
	if !ok {
		return errors.ErrConversationNotFound
	}
	existing.User = conv.User
	existing.Messages = conv.Messages
	existing.Context = conv.Context
	existing.Summary = conv.Summary
	return nil
}

func (f *fakeConversationStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.conversations[id]; !ok {
		return errors.ErrConversationNotFound
	}
	delete(f.conversations, id)
	return nil
}

func (f *fakeConversationStore) AppendMessages(_ context.Context, id string, messages []model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[id]
	if !ok {
		return errors.ErrConversationNotFound
	}
	conv.Messages = append(conv.Messages, messages...)
	return nil
}

func (f *fakeConversationStore) SetCourseContext(_ context.Context, id, courseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[id]
	if !ok {
		return errors.ErrConversationNotFound
	}
	conv.Context.CourseID = courseID
	return nil
}

// fakeVectorStore records calls and serves canned chunks.
type fakeVectorStore struct {
	mu        sync.Mutex
	indexed   []model.Document
	existing  map[string]bool // file id -> indexed
	chunks    []model.Chunk
	lastQuery string
	filters   map[string][]string
	findErr   error
	createErr error
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{existing: make(map[string]bool)}
}

func (f *fakeVectorStore) CreateDocument(_ context.Context, doc model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.indexed = append(f.indexed, doc)
	f.existing[doc.Metadata[model.MetaFileID]] = true
	return nil
}

func (f *fakeVectorStore) FindSimilarNodes(_ context.Context, query string, filters map[string][]string) ([]model.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.lastQuery = query
	f.filters = filters
	return f.chunks, nil
}

func (f *fakeVectorStore) ExistsWithMetadata(_ context.Context, metadata map[string]string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing[metadata[model.MetaFileID]], nil
}

// fakeMoodleClient serves file listings and downloads from memory.
type fakeMoodleClient struct {
	mu          sync.Mutex
	courseFiles map[string][]string
	downloads   []string
	downloadErr error
}

func newFakeMoodleClient() *fakeMoodleClient {
	return &fakeMoodleClient{courseFiles: make(map[string][]string)}
}

func (f *fakeMoodleClient) Download(_ context.Context, fileID string) (*moodle.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	f.downloads = append(f.downloads, fileID)
	return &moodle.File{
		ID:                fileID,
		OriginalName:      fileID + "_original.pdf",
		LocalPath:         "/tmp/" + fileID + ".pdf",
		FreshlyDownloaded: true,
	}, nil
}

func (f *fakeMoodleClient) FileIDsForCourse(_ context.Context, courseID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids, ok := f.courseFiles[courseID]
	if !ok {
		return nil, errors.ErrMoodleUnavailable.WithMessage("unknown course %s", courseID)
	}
	return ids, nil
}

// fakeConverter returns fixed pages per path.
type fakeConverter struct {
	pages map[string][]string
	err   error
}

func (f *fakeConverter) ExtractPages(path string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if pages, ok := f.pages[path]; ok {
		return pages, nil
	}
	return []string{"Inhalt von " + path}, nil
}

// fakeChatProvider scripts chat responses in call order.
type fakeChatProvider struct {
	mu        sync.Mutex
	responses []string
	calls     [][]llm.Message
	models    []string
	err       error
}

func (f *fakeChatProvider) Chat(_ context.Context, chatModel string, messages []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, messages)
	f.models = append(f.models, chatModel)
	if len(f.responses) == 0 {
		return "", fmt.Errorf("no scripted response left")
	}
	response := f.responses[0]
	f.responses = f.responses[1:]
	return response, nil
}
