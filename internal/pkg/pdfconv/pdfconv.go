// Package pdfconv extracts per-page plain text from PDF files.
package pdfconv

import (
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/errors"
)

// Converter extracts the text of a document as one entry per physical
// page, in page order. Implementations must preserve the page count so
// page numbers stay aligned with the source document.
type Converter interface {
	// ExtractPages returns one text entry per page of the file at path.
	ExtractPages(path string) ([]string, error)
}

// PDFConverter implements Converter for PDF files.
type PDFConverter struct{}

// New creates a PDFConverter.
func New() *PDFConverter {
	return &PDFConverter{}
}

var _ Converter = (*PDFConverter)(nil)

// ExtractPages reads the PDF at path and returns the plain text of every
// page. A page that fails to extract fails the whole file, a silently
// skipped page would shift all following page numbers.
func (c *PDFConverter) ExtractPages(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, errors.ErrDocumentParse.WithMessage("cannot open %s", path).WithCause(err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make([]string, 0, total)

	for n := 1; n <= total; n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			return nil, errors.ErrDocumentParse.WithMessage("page %d of %s is unreadable", n, path)
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, errors.ErrDocumentParse.WithMessage("text extraction failed on page %d of %s", n, path).WithCause(err)
		}
		pages = append(pages, strings.TrimSpace(text))
	}

	return pages, nil
}
