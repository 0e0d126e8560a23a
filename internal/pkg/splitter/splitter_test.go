package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/model"
)

func TestMergePages(t *testing.T) {
	merged := MergePages([]string{"erste Seite", "zweite Seite"})

	assert.Contains(t, merged, "erste Seite")
	assert.Contains(t, merged, "---- Ende Seite 1 ----")
	assert.Contains(t, merged, "zweite Seite")
	assert.Contains(t, merged, "---- Ende Seite 2 ----")
	assert.Less(t,
		strings.Index(merged, "---- Ende Seite 1 ----"),
		strings.Index(merged, "zweite Seite"),
	)
}

func TestSplitEmptyDocument(t *testing.T) {
	s := New(128, 20)

	assert.Empty(t, s.Split(model.Document{ID: "d1"}))
	assert.Empty(t, s.Split(model.Document{ID: "d1", Content: "   \n\t "}))
}

func TestSplitShortContentSingleChunk(t *testing.T) {
	s := New(128, 20)
	chunks := s.Split(model.Document{ID: "d1", Content: "kurzer Text"})

	require.Len(t, chunks, 1)
	assert.Equal(t, "kurzer Text", chunks[0].Text)
	assert.Equal(t, 1, chunks[0].StartPage)
	assert.Equal(t, 1, chunks[0].UpToPage)
	assert.Empty(t, chunks[0].Previous)
	assert.Empty(t, chunks[0].Next)
}

func TestSplitOverlap(t *testing.T) {
	s := New(10, 4)
	content := "abcdefghijklmnopqrstuvwxyz"
	chunks := s.Split(model.Document{ID: "d1", Content: content})

	require.True(t, len(chunks) > 1)
	// Consecutive chunks share the configured overlap.
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Text)
		curr := []rune(chunks[i].Text)
		tail := string(prev[len(prev)-4:])
		assert.True(t, strings.HasPrefix(string(curr), tail),
			"chunk %d should start with the last 4 runes of chunk %d", i, i-1)
	}
	// No content lost at the end.
	last := chunks[len(chunks)-1].Text
	assert.True(t, strings.HasSuffix(content, last[len(last)-1:]))
}

func TestSplitRuneSafety(t *testing.T) {
	s := New(4, 1)
	content := "äöüß€µñ漢字かな"
	chunks := s.Split(model.Document{ID: "d1", Content: content})

	for _, c := range chunks {
		assert.True(t, strings.ToValidUTF8(c.Text, "") == c.Text,
			"chunk text must remain valid UTF-8: %q", c.Text)
	}
}

func TestSplitDeterministic(t *testing.T) {
	s := New(32, 8)
	doc := model.Document{ID: "d1", Pages: []string{"Seite eins Inhalt", "Seite zwei Inhalt"}}

	first := s.Split(doc)
	second := s.Split(doc)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Text, second[i].Text)
	}
}

func TestSplitPageTracking(t *testing.T) {
	// Chunks large enough that each page marker lands in one chunk.
	s := New(200, 0)
	pageOne := strings.Repeat("a", 120)
	pageTwo := strings.Repeat("b", 120)
	pageThree := strings.Repeat("c", 120)

	chunks := s.Split(model.Document{
		ID:    "d1",
		Pages: []string{pageOne, pageTwo, pageThree},
	})
	require.True(t, len(chunks) > 1)

	// Page ranges never move backwards and start at page 1.
	assert.Equal(t, 1, chunks[0].StartPage)
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].UpToPage, chunks[i].StartPage,
			"chunk %d must start where chunk %d ended", i, i-1)
		assert.GreaterOrEqual(t, chunks[i].UpToPage, chunks[i].StartPage)
	}

	// The final chunk saw the last page marker.
	last := chunks[len(chunks)-1]
	assert.Equal(t, 4, last.UpToPage)
}

func TestSplitChunkWithoutMarkerKeepsPage(t *testing.T) {
	s := New(50, 0)
	// One long page: early chunks contain no marker and must stay on page 1.
	chunks := s.Split(model.Document{ID: "d1", Pages: []string{strings.Repeat("x", 300)}})
	require.True(t, len(chunks) > 2)

	assert.Equal(t, 1, chunks[0].StartPage)
	assert.Equal(t, 1, chunks[0].UpToPage)
	assert.Equal(t, 1, chunks[1].StartPage)
	assert.Equal(t, 1, chunks[1].UpToPage)
}

func TestSplitSiblingLinks(t *testing.T) {
	s := New(10, 2)
	chunks := s.Split(model.Document{ID: "d1", Content: strings.Repeat("z", 40)})
	require.True(t, len(chunks) >= 3)

	assert.Empty(t, chunks[0].Previous)
	assert.Equal(t, chunks[1].ID, chunks[0].Next)
	for i := 1; i < len(chunks)-1; i++ {
		assert.Equal(t, chunks[i-1].ID, chunks[i].Previous)
		assert.Equal(t, chunks[i+1].ID, chunks[i].Next)
	}
	assert.Empty(t, chunks[len(chunks)-1].Next)
}

func TestSplitMetadataPropagation(t *testing.T) {
	s := New(10, 2)
	doc := model.Document{
		ID:      "d1",
		Content: strings.Repeat("m", 30),
		Metadata: map[string]string{
			model.MetaCourseID: "C1",
			model.MetaFileID:   "F1",
			model.MetaFileName: "skript.pdf",
		},
	}

	chunks := s.Split(doc)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, "C1", c.Metadata[model.MetaCourseID])
		assert.Equal(t, "F1", c.Metadata[model.MetaFileID])
	}

	// Mutating one chunk's metadata must not affect its siblings.
	chunks[0].Metadata[model.MetaFileName] = "other.pdf"
	assert.Equal(t, "skript.pdf", chunks[1].Metadata[model.MetaFileName])
}
