package biz

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/model"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/errors"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/llm"
)

func floatPtr(v float32) *float32 { return &v }

func TestAskSingleMessageSkipsCondensation(t *testing.T) {
	vectorStore := newFakeVectorStore()
	vectorStore.chunks = []model.Chunk{
		{
			ID:    "c1",
			Text:  "Die Klausur findet am 12. Februar statt.",
			Score: floatPtr(0.92),
			Metadata: map[string]string{
				model.MetaFileName: "organisatorisches.pdf",
				model.MetaFileID:   "F1",
			},
			StartPage: 2,
			UpToPage:  3,
		},
	}
	chat := &fakeChatProvider{responses: []string{"Laut organisatorisches.pdf am 12. Februar."}}
	engine := NewRAGEngine(vectorStore, chat)

	history := []model.Message{{Role: model.RoleUser, Content: "Wann ist die Klausur?"}}
	answer, err := engine.Ask(context.Background(), history, map[string][]string{"file_id": {"F1"}}, "llama3.1")
	require.NoError(t, err)

	// Without prior history the message itself is the retrieval query.
	assert.Equal(t, "Wann ist die Klausur?", vectorStore.lastQuery)
	assert.Equal(t, map[string][]string{"file_id": {"F1"}}, vectorStore.filters)
	assert.Equal(t, "Laut organisatorisches.pdf am 12. Februar.", answer.Response)
	require.Len(t, answer.Nodes, 1)
	assert.Equal(t, "c1", answer.Nodes[0].ID)

	// One chat call: the answer generation, no condensation round.
	require.Len(t, chat.calls, 1)
	assert.Equal(t, "llama3.1", chat.models[0])

	system := chat.calls[0][0]
	assert.Equal(t, llm.RoleSystem, system.Role)
	assert.Contains(t, system.Content, "organisatorisches.pdf")
	assert.Contains(t, system.Content, "Seite 2-3")
	assert.Contains(t, system.Content, "Die Klausur findet am 12. Februar statt.")
	// The relevance score must never reach the prompt.
	assert.NotContains(t, system.Content, "0.92")
}

func TestAskCondensesFollowUpQuestions(t *testing.T) {
	vectorStore := newFakeVectorStore()
	chat := &fakeChatProvider{responses: []string{
		"Wann findet die Klausur im Modul Datenbanken statt?",
		"weiß nicht",
	}}
	engine := NewRAGEngine(vectorStore, chat)

	history := []model.Message{
		{Role: model.RoleUser, Content: "Worum geht es im Modul Datenbanken?"},
		{Role: model.RoleAssistant, Content: "Um relationale Datenbanken."},
		{Role: model.RoleUser, Content: "Und wann ist die Klausur?"},
	}

	answer, err := engine.Ask(context.Background(), history, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "weiß nicht", answer.Response)

	require.Len(t, chat.calls, 2)

	// First call is the condensation prompt over the prior history.
	condense := chat.calls[0][0].Content
	assert.Contains(t, condense, "Worum geht es im Modul Datenbanken?")
	assert.Contains(t, condense, "Und wann ist die Klausur?")
	assert.Contains(t, condense, "Eigenständige Frage:")

	// The condensed question becomes the retrieval query.
	assert.Equal(t, "Wann findet die Klausur im Modul Datenbanken statt?", vectorStore.lastQuery)

	// The generation call carries prior history plus the last message.
	generation := chat.calls[1]
	require.Len(t, generation, 4)
	assert.Equal(t, llm.RoleSystem, generation[0].Role)
	assert.Equal(t, llm.RoleUser, generation[1].Role)
	assert.Equal(t, llm.RoleAssistant, generation[2].Role)
	assert.Equal(t, "Und wann ist die Klausur?", generation[3].Content)
}

func TestAskEmptyRetrievalStillAnswers(t *testing.T) {
	vectorStore := newFakeVectorStore()
	chat := &fakeChatProvider{responses: []string{"weiß nicht"}}
	engine := NewRAGEngine(vectorStore, chat)

	history := []model.Message{{Role: model.RoleUser, Content: "Was steht im Skript?"}}
	answer, err := engine.Ask(context.Background(), history, nil, "")
	require.NoError(t, err)

	assert.Equal(t, "weiß nicht", answer.Response)
	assert.Empty(t, answer.Nodes)
	assert.Contains(t, chat.calls[0][0].Content, "Keine Dokumente gefunden.")
}

func TestAskEmptyHistoryFails(t *testing.T) {
	engine := NewRAGEngine(newFakeVectorStore(), &fakeChatProvider{})

	_, err := engine.Ask(context.Background(), nil, nil, "")
	assert.ErrorIs(t, err, errors.ErrInvalidParam)
}

func TestAskRetrievalFailurePropagates(t *testing.T) {
	vectorStore := newFakeVectorStore()
	vectorStore.findErr = errors.ErrVectorStore.WithMessage("index unreachable")
	engine := NewRAGEngine(vectorStore, &fakeChatProvider{responses: []string{"unused"}})

	history := []model.Message{{Role: model.RoleUser, Content: "Frage"}}
	_, err := engine.Ask(context.Background(), history, nil, "")
	assert.ErrorIs(t, err, errors.ErrVectorStore)
}

func TestAskGenerationFailureWrapped(t *testing.T) {
	vectorStore := newFakeVectorStore()
	chat := &fakeChatProvider{err: context.DeadlineExceeded}
	engine := NewRAGEngine(vectorStore, chat)

	history := []model.Message{{Role: model.RoleUser, Content: "Frage"}}
	_, err := engine.Ask(context.Background(), history, nil, "")
	assert.ErrorIs(t, err, errors.ErrLLMTimeout)
}

func TestRenderContextScoresNeverLeak(t *testing.T) {
	out := renderContext([]model.Chunk{
		{Text: "Inhalt", Score: floatPtr(0.1234), Metadata: map[string]string{model.MetaFileName: "a.pdf"}},
	})
	assert.Contains(t, out, "a.pdf")
	assert.NotContains(t, strings.ToLower(out), "score")
	assert.NotContains(t, out, "0.1234")
}

func TestRenderContextUnnamedSource(t *testing.T) {
	out := renderContext([]model.Chunk{{Text: "Inhalt"}})
	assert.Contains(t, out, "Unbekanntes Dokument")
}
