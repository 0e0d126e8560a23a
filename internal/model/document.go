package model

// Metadata keys attached to every chunk. MetaCourseID and MetaFileID are
// filterable only and are stripped from the text shown to the language
// model. MetaFileName is the citation source shown in answers.
const (
	MetaCourseID = "course_id"
	MetaFileID   = "file_id"
	MetaFileName = "file_name"
)

// FilterOnlyMetadataKeys are attached for retrieval filtering but never
// exposed to the language model context.
var FilterOnlyMetadataKeys = []string{MetaCourseID, MetaFileID}

// Document is an ingestion unit, usually one course file. Pages holds the
// extracted text in physical page order; Content is used instead when the
// text arrives pre-merged.
type Document struct {
	ID       string
	Content  string
	Pages    []string
	Metadata map[string]string
}

// Chunk is a slice of a document carried through indexing and retrieval.
// StartPage and UpToPage bound the page range the chunk text came from.
// Previous and Next link sibling chunks in emission order.
type Chunk struct {
	ID        string            `json:"id" bson:"id"`
	Text      string            `json:"text" bson:"text"`
	Metadata  map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
	StartPage int               `json:"start_page" bson:"start_page"`
	UpToPage  int               `json:"up_to_page" bson:"up_to_page"`
	Previous  string            `json:"previous,omitempty" bson:"previous,omitempty"`
	Next      string            `json:"next,omitempty" bson:"next,omitempty"`

	// Score is the post-rerank relevance, set only on retrieval results.
	// It is kept for observability and must never appear in answers.
	Score *float32 `json:"similarity_score,omitempty" bson:"similarity_score,omitempty"`
}

// LLMMetadata returns the chunk metadata visible to the language model,
// with the filter-only keys removed.
func (c *Chunk) LLMMetadata() map[string]string {
	if len(c.Metadata) == 0 {
		return nil
	}
	visible := make(map[string]string, len(c.Metadata))
	for k, v := range c.Metadata {
		visible[k] = v
	}
	for _, k := range FilterOnlyMetadataKeys {
		delete(visible, k)
	}
	return visible
}

// SourceName returns the citation name of the chunk's source document.
func (c *Chunk) SourceName() string {
	if name, ok := c.Metadata[MetaFileName]; ok && name != "" {
		return name
	}
	return "Unbekanntes Dokument"
}
