package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kart-io/logger"
	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/model"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/pkg/splitter"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/component/milvus"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/errors"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/llm"
	milvusopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/milvus"
	retrievalopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/retrieval"
)

// Scalar fields of the chunk collection next to the id, text and the two
// vector fields.
const (
	fieldCourseID  = model.MetaCourseID
	fieldFileID    = model.MetaFileID
	fieldFileName  = model.MetaFileName
	fieldStartPage = "start_page"
	fieldUpToPage  = "up_to_page"
	fieldPrevious  = "previous"
	fieldNext      = "next"
)

var outputFields = []string{
	milvus.FieldText, fieldCourseID, fieldFileID, fieldFileName,
	fieldStartPage, fieldUpToPage, fieldPrevious, fieldNext,
}

// milvusVectorStore implements VectorStore on one hybrid Milvus
// collection. Dense vectors come from the embedding provider, sparse
// vectors are derived server side from the chunk text via BM25.
type milvusVectorStore struct {
	client     *milvus.Client
	embedder   llm.EmbeddingProvider
	splitter   *splitter.Splitter
	collection string

	topKDense  int
	topKSparse int
	topNRerank int
}

// NewVectorStore creates the Milvus backed VectorStore and ensures the
// chunk collection exists.
func NewVectorStore(
	ctx context.Context,
	client *milvus.Client,
	embedder llm.EmbeddingProvider,
	milvusOpts *milvusopts.Options,
	retrievalOpts *retrievalopts.Options,
) (VectorStore, error) {
	schema := &milvus.CollectionSchema{
		Name:        milvusOpts.Collection,
		Description: "course document chunks with hybrid dense and sparse retrieval",
		Dimension:   milvusOpts.EmbeddingDim,
		MetaFields: []milvus.MetaField{
			{Name: fieldCourseID, DataType: entity.FieldTypeVarChar, MaxLen: 128},
			{Name: fieldFileID, DataType: entity.FieldTypeVarChar, MaxLen: 128},
			{Name: fieldFileName, DataType: entity.FieldTypeVarChar, MaxLen: 512},
			{Name: fieldStartPage, DataType: entity.FieldTypeInt64},
			{Name: fieldUpToPage, DataType: entity.FieldTypeInt64},
			{Name: fieldPrevious, DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: fieldNext, DataType: entity.FieldTypeVarChar, MaxLen: 64},
		},
	}

	if err := client.EnsureCollection(ctx, schema); err != nil {
		return nil, errors.ErrVectorStore.WithMessage("preparing collection %s failed", milvusOpts.Collection).WithCause(err)
	}

	return &milvusVectorStore{
		client:     client,
		embedder:   embedder,
		splitter:   splitter.New(retrievalOpts.ChunkSize, retrievalOpts.ChunkOverlap),
		collection: milvusOpts.Collection,
		topKDense:  retrievalOpts.TopNDense,
		topKSparse: retrievalOpts.TopNSparse,
		topNRerank: retrievalOpts.TopNRerank,
	}, nil
}

func (s *milvusVectorStore) CreateDocument(ctx context.Context, doc model.Document) error {
	chunks := s.splitter.Split(doc)
	if len(chunks) == 0 {
		logger.Warnw("document produced no chunks", "document_id", doc.ID)
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return errors.ErrEmbedding.WithCause(err)
	}
	if len(embeddings) != len(chunks) {
		return errors.ErrEmbedding.WithMessage("expected %d embeddings, got %d", len(chunks), len(embeddings))
	}

	data := &milvus.InsertData{
		IDs:        make([]string, len(chunks)),
		Texts:      texts,
		Embeddings: embeddings,
		Metadata: map[string][]any{
			fieldCourseID:  make([]any, len(chunks)),
			fieldFileID:    make([]any, len(chunks)),
			fieldFileName:  make([]any, len(chunks)),
			fieldStartPage: make([]any, len(chunks)),
			fieldUpToPage:  make([]any, len(chunks)),
			fieldPrevious:  make([]any, len(chunks)),
			fieldNext:      make([]any, len(chunks)),
		},
	}

	for i, c := range chunks {
		data.IDs[i] = c.ID
		data.Metadata[fieldCourseID][i] = c.Metadata[model.MetaCourseID]
		data.Metadata[fieldFileID][i] = c.Metadata[model.MetaFileID]
		data.Metadata[fieldFileName][i] = c.Metadata[model.MetaFileName]
		data.Metadata[fieldStartPage][i] = int64(c.StartPage)
		data.Metadata[fieldUpToPage][i] = int64(c.UpToPage)
		data.Metadata[fieldPrevious][i] = c.Previous
		data.Metadata[fieldNext][i] = c.Next
	}

	if err := s.client.Insert(ctx, s.collection, data); err != nil {
		return errors.ErrVectorStore.WithMessage("indexing document %s failed", doc.ID).WithCause(err)
	}

	logger.Infow("document indexed",
		"document_id", doc.ID,
		"chunks", len(chunks),
		"file_name", doc.Metadata[model.MetaFileName],
	)
	return nil
}

func (s *milvusVectorStore) FindSimilarNodes(ctx context.Context, query string, filters map[string][]string) ([]model.Chunk, error) {
	vector, err := s.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, errors.ErrEmbedding.WithCause(err)
	}

	hits, err := s.client.HybridSearch(ctx, s.collection, &milvus.HybridQuery{
		QueryText:    query,
		QueryVector:  vector,
		TopKDense:    s.topKDense,
		TopKSparse:   s.topKSparse,
		Limit:        s.topNRerank,
		Filter:       buildFilterExpr(filters),
		OutputFields: outputFields,
	})
	if err != nil {
		return nil, errors.ErrVectorStore.WithCause(err)
	}

	chunks := make([]model.Chunk, 0, len(hits))
	for _, hit := range hits {
		score := hit.Score
		chunk := model.Chunk{
			ID:       hit.ID,
			Score:    &score,
			Metadata: map[string]string{},
		}
		if v, ok := hit.Fields[milvus.FieldText].(string); ok {
			chunk.Text = v
		}
		if v, ok := hit.Fields[fieldCourseID].(string); ok && v != "" {
			chunk.Metadata[model.MetaCourseID] = v
		}
		if v, ok := hit.Fields[fieldFileID].(string); ok && v != "" {
			chunk.Metadata[model.MetaFileID] = v
		}
		if v, ok := hit.Fields[fieldFileName].(string); ok && v != "" {
			chunk.Metadata[model.MetaFileName] = v
		}
		if v, ok := hit.Fields[fieldStartPage].(int64); ok {
			chunk.StartPage = int(v)
		}
		if v, ok := hit.Fields[fieldUpToPage].(int64); ok {
			chunk.UpToPage = int(v)
		}
		if v, ok := hit.Fields[fieldPrevious].(string); ok {
			chunk.Previous = v
		}
		if v, ok := hit.Fields[fieldNext].(string); ok {
			chunk.Next = v
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

func (s *milvusVectorStore) ExistsWithMetadata(ctx context.Context, metadata map[string]string) (bool, error) {
	expr := buildEqualityExpr(metadata)
	if expr == "" {
		return false, errors.ErrInvalidParam.WithMessage("existence probe requires at least one metadata key")
	}

	exists, err := s.client.Exists(ctx, s.collection, expr)
	if err != nil {
		return false, errors.ErrVectorStore.WithCause(err)
	}
	return exists, nil
}

// buildFilterExpr turns the filter set into a Milvus boolean expression.
// Values of one key become an IN clause, clauses are OR combined.
func buildFilterExpr(filters map[string][]string) string {
	if len(filters) == 0 {
		return ""
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []string
	for _, key := range keys {
		values := filters[key]
		if len(values) == 0 {
			continue
		}
		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = quoteValue(v)
		}
		clauses = append(clauses, fmt.Sprintf("%s in [%s]", key, strings.Join(quoted, ", ")))
	}

	return strings.Join(clauses, " or ")
}

// buildEqualityExpr AND combines exact matches over all metadata keys.
func buildEqualityExpr(metadata map[string]string) string {
	if len(metadata) == 0 {
		return ""
	}

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	for _, key := range keys {
		clauses = append(clauses, fmt.Sprintf("%s == %s", key, quoteValue(metadata[key])))
	}
	return strings.Join(clauses, " and ")
}

// quoteValue renders a filter value as a Milvus string literal.
func quoteValue(v string) string {
	return strconv.Quote(v)
}
