package biz

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver/metrics"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver/store"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/model"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/errors"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/llm"
)

// The prompt templates are part of the deployment's user facing
// behaviour: answers cite document names only and fall back to
// "weiß nicht" when the context is insufficient.
const contextPromptTemplate = `
Im Folgenden siehst du ein freundliches Gespräch zwischen einem Benutzer und dir dem KI-Assistenten.
Du bist gesprächig und lieferst viele spezifische Details aus seinem Kontext.
Wenn du die Antwort auf eine Frage nicht weiß, sagst du wahrheitsgemäß, dass du es nicht weißt.

Hier sind die relevanten Dokumente für den Kontext:

%s

Anweisung: Gebe auf Grundlage der oben genannten Dokumente eine ausführliche Antwort auf die nachstehende Benutzerfrage.
Referenziere immer auf welches Dokument du dich beziehst ohne den retrieval_score. Nenne ausschließlich den Dokumentnamen!
Beantworten die Frage mit „weiß nicht“, wenn du nichts in dem Dokument enthalten ist.
`

const condensePromptTemplate = `
Geben die folgende Konversation zwischen einem Benutzer und einem KI-Assistenten und eine Folgefrage des Benutzers an,
formuliere die Folgefrage so um, dass sie eine eigenständige Frage ist. Es wird in eine Vektordatenbank eingespeist um relevante Dokumente zu finden.

Chat-Verlauf:
%s
Folge-Eingabe: %s
Eigenständige Frage:`

// Answer is the result of one retrieval augmented round trip.
type Answer struct {
	Response string
	Nodes    []model.Chunk
}

// RAGEngine condenses a conversation into a retrieval query, fetches the
// matching chunks and generates a grounded answer.
type RAGEngine struct {
	vectorStore store.VectorStore
	chat        llm.ChatProvider
	metrics     *metrics.Metrics
}

// NewRAGEngine creates a RAGEngine.
func NewRAGEngine(vectorStore store.VectorStore, chat llm.ChatProvider) *RAGEngine {
	return &RAGEngine{
		vectorStore: vectorStore,
		chat:        chat,
		metrics:     metrics.Get(),
	}
}

// Ask answers the latest message of history using chunks matching the
// filters. An empty chatModel uses the provider default. Retrieval or
// generation failures surface as errors, never as empty answers.
func (e *RAGEngine) Ask(ctx context.Context, history []model.Message, filters map[string][]string, chatModel string) (*Answer, error) {
	if len(history) == 0 {
		return nil, errors.ErrInvalidParam.WithMessage("message history is empty")
	}

	last := history[len(history)-1]
	prior := history[:len(history)-1]

	query, err := e.condenseQuery(ctx, prior, last, chatModel)
	if err != nil {
		return nil, err
	}

	retrievalStart := time.Now()
	nodes, err := e.vectorStore.FindSimilarNodes(ctx, query, filters)
	e.metrics.RecordRetrieval(time.Since(retrievalStart), len(nodes), err)
	if err != nil {
		return nil, err
	}

	logger.Debugw("retrieved context",
		"query", query,
		"nodes", len(nodes),
		"filters", filters,
	)

	messages := make([]llm.Message, 0, len(prior)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: fmt.Sprintf(contextPromptTemplate, renderContext(nodes)),
	})
	for _, m := range prior {
		messages = append(messages, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: last.Content})

	llmStart := time.Now()
	response, err := e.chat.Chat(ctx, chatModel, messages)
	e.metrics.RecordLLMCall(time.Since(llmStart), err)
	if err != nil {
		return nil, wrapLLMError(err)
	}

	return &Answer{Response: response, Nodes: nodes}, nil
}

// condenseQuery rewrites the follow-up message into a standalone
// retrieval question. Without prior history the message is already
// standalone.
func (e *RAGEngine) condenseQuery(ctx context.Context, prior []model.Message, last model.Message, chatModel string) (string, error) {
	if len(prior) == 0 {
		return last.Content, nil
	}

	prompt := fmt.Sprintf(condensePromptTemplate, renderHistory(prior), last.Content)

	llmStart := time.Now()
	condensed, err := e.chat.Chat(ctx, chatModel, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	})
	e.metrics.RecordLLMCall(time.Since(llmStart), err)
	if err != nil {
		return "", wrapLLMError(err)
	}

	condensed = strings.TrimSpace(condensed)
	if condensed == "" {
		return last.Content, nil
	}
	return condensed, nil
}

// renderContext formats the retrieved chunks for the context prompt.
// Only LLM visible metadata appears, the relevance score never does.
func renderContext(nodes []model.Chunk) string {
	if len(nodes) == 0 {
		return "Keine Dokumente gefunden."
	}

	parts := make([]string, len(nodes))
	for i, node := range nodes {
		var b strings.Builder
		fmt.Fprintf(&b, "Dokument: %s", node.SourceName())
		if node.StartPage > 0 {
			if node.UpToPage > node.StartPage {
				fmt.Fprintf(&b, " (Seite %d-%d)", node.StartPage, node.UpToPage)
			} else {
				fmt.Fprintf(&b, " (Seite %d)", node.StartPage)
			}
		}
		b.WriteString("\n")
		b.WriteString(node.Text)
		parts[i] = b.String()
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// renderHistory formats prior messages for the condense prompt.
func renderHistory(messages []model.Message) string {
	lines := make([]string, len(messages))
	for i, m := range messages {
		lines[i] = fmt.Sprintf("%s: %s", m.Role, m.Content)
	}
	return strings.Join(lines, "\n")
}

// wrapLLMError maps transport errors to the structured LLM errors.
func wrapLLMError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.ErrLLMTimeout.WithCause(err)
	}
	return errors.ErrLLMUnavailable.WithCause(err)
}
