// Package milvus wraps the Milvus SDK client for hybrid dense and sparse
// retrieval over one chunk collection.
package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/milvus"
)

// Field names of the chunk collection. The text field feeds the BM25
// function that materializes the sparse vectors at insert time.
const (
	FieldID        = "id"
	FieldText      = "text"
	FieldEmbedding = "embedding"
	FieldSparse    = "sparse"
)

// Client wraps the Milvus SDK client.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

// New creates a new Milvus client.
func New(ctx context.Context, opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{
		client: c,
		opts:   opts,
	}, nil
}

// Close closes the Milvus client connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// RawClient returns the underlying Milvus client.
func (c *Client) RawClient() *milvusclient.Client {
	return c.client
}

// MetaField defines a scalar metadata field in the collection.
type MetaField struct {
	Name     string
	DataType entity.FieldType
	MaxLen   int // for VARCHAR fields
}

// CollectionSchema describes a hybrid chunk collection: a string primary
// key, the chunk text, one dense vector and one BM25 derived sparse
// vector, plus scalar metadata.
type CollectionSchema struct {
	Name        string
	Description string
	Dimension   int
	MaxTextLen  int
	MetaFields  []MetaField
}

// EnsureCollection creates the collection, its indexes and the BM25
// function when they do not exist yet, then loads the collection.
func (c *Client) EnsureCollection(ctx context.Context, schema *CollectionSchema) error {
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(schema.Name))
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		maxTextLen := schema.MaxTextLen
		if maxTextLen <= 0 {
			maxTextLen = 65535
		}

		collSchema := entity.NewSchema().
			WithName(schema.Name).
			WithDescription(schema.Description)

		collSchema.WithField(
			entity.NewField().
				WithName(FieldID).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(64).
				WithIsPrimaryKey(true),
		)
		collSchema.WithField(
			entity.NewField().
				WithName(FieldText).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(int64(maxTextLen)).
				WithEnableAnalyzer(true),
		)
		collSchema.WithField(
			entity.NewField().
				WithName(FieldEmbedding).
				WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(schema.Dimension)),
		)
		collSchema.WithField(
			entity.NewField().
				WithName(FieldSparse).
				WithDataType(entity.FieldTypeSparseVector),
		)

		for _, f := range schema.MetaFields {
			field := entity.NewField().
				WithName(f.Name).
				WithDataType(f.DataType)
			if f.DataType == entity.FieldTypeVarChar {
				maxLen := f.MaxLen
				if maxLen <= 0 {
					maxLen = 512
				}
				field.WithMaxLength(int64(maxLen))
			}
			collSchema.WithField(field)
		}

		// Milvus computes the sparse vectors from the text field.
		collSchema.WithFunction(
			entity.NewFunction().
				WithName("text_bm25").
				WithType(entity.FunctionTypeBM25).
				WithInputFields(FieldText).
				WithOutputFields(FieldSparse),
		)

		if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(schema.Name, collSchema)); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		denseIdx := index.NewHNSWIndex(entity.COSINE, 16, 200)
		denseTask, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(schema.Name, FieldEmbedding, denseIdx))
		if err != nil {
			return fmt.Errorf("failed to create dense index: %w", err)
		}
		if err := denseTask.Await(ctx); err != nil {
			return fmt.Errorf("failed to wait for dense index creation: %w", err)
		}

		sparseIdx := index.NewSparseInvertedIndex(entity.BM25, 0.2)
		sparseTask, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(schema.Name, FieldSparse, sparseIdx))
		if err != nil {
			return fmt.Errorf("failed to create sparse index: %w", err)
		}
		if err := sparseTask.Await(ctx); err != nil {
			return fmt.Errorf("failed to wait for sparse index creation: %w", err)
		}
	}

	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(schema.Name))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}

	return nil
}

// InsertData holds one batch of chunks for insertion. All slices must
// have the same length; Metadata maps field names to per-row values.
type InsertData struct {
	IDs        []string
	Texts      []string
	Embeddings [][]float32
	Metadata   map[string][]any
}

// Insert writes a batch of chunks and flushes so they become searchable
// immediately. Frequent flushing costs throughput but ingestion happens
// per course file, not per request.
func (c *Client) Insert(ctx context.Context, collectionName string, data *InsertData) error {
	if len(data.IDs) == 0 {
		return nil
	}
	if len(data.Texts) != len(data.IDs) || len(data.Embeddings) != len(data.IDs) {
		return fmt.Errorf("insert batch misaligned: %d ids, %d texts, %d embeddings",
			len(data.IDs), len(data.Texts), len(data.Embeddings))
	}

	columns := make([]column.Column, 0, len(data.Metadata)+3)
	columns = append(columns, column.NewColumnVarChar(FieldID, data.IDs))
	columns = append(columns, column.NewColumnVarChar(FieldText, data.Texts))
	columns = append(columns, column.NewColumnFloatVector(FieldEmbedding, len(data.Embeddings[0]), data.Embeddings))

	for name, values := range data.Metadata {
		if len(values) != len(data.IDs) {
			return fmt.Errorf("insert batch misaligned: field %s has %d values for %d rows", name, len(values), len(data.IDs))
		}
		switch values[0].(type) {
		case string:
			strVals := make([]string, len(values))
			for i, val := range values {
				strVals[i] = val.(string)
			}
			columns = append(columns, column.NewColumnVarChar(name, strVals))
		case int64:
			intVals := make([]int64, len(values))
			for i, val := range values {
				intVals[i] = val.(int64)
			}
			columns = append(columns, column.NewColumnInt64(name, intVals))
		default:
			return fmt.Errorf("unsupported metadata type %T for field %s", values[0], name)
		}
	}

	if _, err := c.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(collectionName, columns...)); err != nil {
		return fmt.Errorf("failed to insert data: %w", err)
	}

	flushTask, err := c.client.Flush(ctx, milvusclient.NewFlushOption(collectionName))
	if err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for flush: %w", err)
	}

	return nil
}

// SearchResult is a single hybrid search hit.
type SearchResult struct {
	ID     string
	Score  float32
	Fields map[string]any
}

// HybridQuery describes one hybrid retrieval call.
type HybridQuery struct {
	// QueryText feeds the sparse BM25 search.
	QueryText string

	// QueryVector feeds the dense similarity search.
	QueryVector []float32

	// TopKDense and TopKSparse bound the candidates per search arm.
	TopKDense  int
	TopKSparse int

	// Limit is the final result count after rank fusion.
	Limit int

	// Filter restricts both arms to matching rows. Empty means no filter.
	Filter string

	// OutputFields lists the scalar fields to return per hit.
	OutputFields []string
}

// HybridSearch runs dense and sparse retrieval in one call and fuses the
// two candidate lists with reciprocal rank fusion.
func (c *Client) HybridSearch(ctx context.Context, collectionName string, q *HybridQuery) ([]SearchResult, error) {
	denseReq := milvusclient.NewAnnRequest(FieldEmbedding, q.TopKDense, entity.FloatVector(q.QueryVector))
	sparseReq := milvusclient.NewAnnRequest(FieldSparse, q.TopKSparse, entity.Text(q.QueryText))
	if q.Filter != "" {
		denseReq = denseReq.WithFilter(q.Filter)
		sparseReq = sparseReq.WithFilter(q.Filter)
	}

	opt := milvusclient.NewHybridSearchOption(collectionName, q.Limit, denseReq, sparseReq).
		WithReranker(milvusclient.NewRRFReranker()).
		WithOutputFields(q.OutputFields...)

	results, err := c.client.HybridSearch(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("hybrid search failed: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	rs := results[0]
	out := make([]SearchResult, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		hit := SearchResult{
			Score:  rs.Scores[i],
			Fields: make(map[string]any),
		}
		if idCol, ok := rs.IDs.(*column.ColumnVarChar); ok {
			hit.ID = idCol.Data()[i]
		}
		for _, field := range rs.Fields {
			switch col := field.(type) {
			case *column.ColumnVarChar:
				hit.Fields[col.Name()] = col.Data()[i]
			case *column.ColumnInt64:
				hit.Fields[col.Name()] = col.Data()[i]
			}
		}
		out = append(out, hit)
	}

	return out, nil
}

// Exists reports whether at least one row matches the filter expression.
func (c *Client) Exists(ctx context.Context, collectionName, filter string) (bool, error) {
	rs, err := c.client.Query(ctx, milvusclient.NewQueryOption(collectionName).
		WithFilter(filter).
		WithOutputFields(FieldID).
		WithLimit(1))
	if err != nil {
		return false, fmt.Errorf("existence query failed: %w", err)
	}

	idCol := rs.GetColumn(FieldID)
	return idCol != nil && idCol.Len() > 0, nil
}
