// Package splitter turns documents into overlapping, page-annotated chunks.
//
// Page boundaries are carried inside the text as literal markers of the
// form "---- Ende Seite N ----". The marker is produced by the PDF
// conversion step and parsed back here, so its exact wording is part of
// the data contract and must not change.
package splitter

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/model"
)

// PageMarkerPattern matches the page boundary markers embedded in merged
// document text. Group 1 captures the 1-indexed page number.
var PageMarkerPattern = regexp.MustCompile(`---- Ende Seite (\d+) ----`)

// Splitter produces chunks with a sliding window over runes.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

// New creates a Splitter. chunkSize and chunkOverlap are rune counts;
// the overlap is clamped below the chunk size.
func New(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 128
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize - 1
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// MergePages concatenates per-page texts in physical order, appending the
// page boundary marker after each page.
func MergePages(pages []string) string {
	var b strings.Builder
	for i, page := range pages {
		fmt.Fprintf(&b, "\n\n%s\n\n---- Ende Seite %d ----\n\n", page, i+1)
	}
	return b.String()
}

// Split chunks the document and annotates every chunk with its page range
// and sibling links. Output is deterministic for identical input and
// parameters. Empty content yields no chunks.
func (s *Splitter) Split(doc model.Document) []model.Chunk {
	content := doc.Content
	if len(doc.Pages) > 0 {
		content = MergePages(doc.Pages)
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}

	texts := s.window(content)
	chunks := make([]model.Chunk, len(texts))

	currentPage := 1
	for i, text := range texts {
		chunk := model.Chunk{
			ID:        chunkID(doc.ID, i, text),
			Text:      text,
			Metadata:  cloneMetadata(doc.Metadata),
			StartPage: currentPage,
		}

		// A chunk may span several pages. The counter advances to one
		// past the last marker seen, the next chunk starts there.
		if matches := PageMarkerPattern.FindAllStringSubmatch(text, -1); len(matches) > 0 {
			last, err := strconv.Atoi(matches[len(matches)-1][1])
			if err == nil {
				currentPage = last + 1
			}
		}
		chunk.UpToPage = currentPage

		chunks[i] = chunk
	}

	for i := range chunks {
		if i > 0 {
			chunks[i].Previous = chunks[i-1].ID
			chunks[i-1].Next = chunks[i].ID
		}
	}

	return chunks
}

// window slides over the runes of text with the configured size and
// overlap. Rune based indexing keeps multi-byte characters intact.
func (s *Splitter) window(text string) []string {
	runes := []rune(text)
	if len(runes) <= s.chunkSize {
		return []string{text}
	}

	var out []string
	step := s.chunkSize - s.chunkOverlap
	for i := 0; i < len(runes); i += step {
		end := i + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

// chunkID derives a stable id from the document id, the chunk position
// and its text. Re-splitting the same document yields the same ids.
func chunkID(docID string, index int, text string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%d:%s", docID, index, text)))
	return hex.EncodeToString(sum[:])
}

func cloneMetadata(meta map[string]string) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	clone := make(map[string]string, len(meta))
	for k, v := range meta {
		clone[k] = v
	}
	return clone
}
