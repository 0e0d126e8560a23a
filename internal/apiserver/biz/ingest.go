package biz

import (
	"context"

	"github.com/kart-io/logger"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver/metrics"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver/store"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/model"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/pkg/moodle"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/pkg/pdfconv"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/errors"
)

// Ingestor brings course files into the vector index on demand: resolve
// the file set, download what is missing, extract page texts and index
// the chunks.
type Ingestor struct {
	moodle      moodle.Client
	converter   pdfconv.Converter
	vectorStore store.VectorStore
	metrics     *metrics.Metrics
}

// NewIngestor creates an Ingestor.
func NewIngestor(moodleClient moodle.Client, converter pdfconv.Converter, vectorStore store.VectorStore) *Ingestor {
	return &Ingestor{
		moodle:      moodleClient,
		converter:   converter,
		vectorStore: vectorStore,
		metrics:     metrics.Get(),
	}
}

// EnsureIndexed makes sure every file in the conversation's scope is
// present in the vector index and returns the resolved file set. Course
// scoped conversations resolve their file set through Moodle on every
// call, so files added to the course after conversation creation are
// picked up. Retrieval filters on the returned ids, which also covers
// files indexed earlier without course metadata.
func (i *Ingestor) EnsureIndexed(ctx context.Context, conv *model.Conversation) ([]string, error) {
	fileIDs := conv.Context.FileIDs
	if conv.Context.Scope == model.ScopeCourse {
		ids, err := i.moodle.FileIDsForCourse(ctx, conv.Context.CourseID)
		if err != nil {
			return nil, err
		}
		fileIDs = ids
	}

	resolved := make([]string, 0, len(fileIDs))
	for _, fileID := range fileIDs {
		if fileID == "" {
			continue
		}
		if err := i.ensureFileIndexed(ctx, fileID, conv.Context.CourseID); err != nil {
			return nil, err
		}
		resolved = append(resolved, fileID)
	}
	return resolved, nil
}

// ensureFileIndexed indexes one file unless its chunks already exist.
// The index probe, not the local file cache, decides whether ingestion
// runs: a file can be on disk without ever having been indexed.
func (i *Ingestor) ensureFileIndexed(ctx context.Context, fileID, courseID string) error {
	exists, err := i.vectorStore.ExistsWithMetadata(ctx, map[string]string{
		model.MetaFileID: fileID,
	})
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	file, err := i.moodle.Download(ctx, fileID)
	if err != nil {
		return err
	}
	if file.FreshlyDownloaded {
		i.metrics.RecordDownload()
	}

	pages, err := i.converter.ExtractPages(file.LocalPath)
	if err != nil {
		i.metrics.RecordIngest(0, err)
		return err
	}

	fileName := file.OriginalName
	if fileName == "" {
		fileName = fileID + ".pdf"
	}

	doc := model.Document{
		ID:    fileID,
		Pages: pages,
		Metadata: map[string]string{
			model.MetaFileID:   fileID,
			model.MetaFileName: fileName,
		},
	}
	if courseID != "" {
		doc.Metadata[model.MetaCourseID] = courseID
	}

	if err := i.vectorStore.CreateDocument(ctx, doc); err != nil {
		i.metrics.RecordIngest(0, err)
		return errors.ErrIngestFailed.WithMessage("indexing file %s failed", fileID).WithCause(err)
	}

	i.metrics.RecordIngest(len(pages), nil)
	logger.Infow("file ingested into vector index",
		"file_id", fileID,
		"file_name", fileName,
		"pages", len(pages),
	)
	return nil
}
