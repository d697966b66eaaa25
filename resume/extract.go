package resume

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/vinayprograms/resumematch/errors"
	"github.com/vinayprograms/resumematch/logging"
)

// Document is the text content of a résumé PDF.
type Document struct {
	Path      string   `json:"path"`
	PageCount int      `json:"page_count"`
	Pages     []string `json:"pages"` // per-page text, "" for pages without text
	Text      string   `json:"text"`
}

// Extract reads the PDF at path and returns its text.
func Extract(ctx context.Context, path string, logger *logging.Logger) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeExtraction,
			fmt.Sprintf("failed to open %s", path), errors.WithMetadata("path", path))
	}
	return ExtractBytes(ctx, path, data, logger)
}

// ExtractBytes extracts text from an in-memory PDF. path is only used for
// reporting.
func ExtractBytes(ctx context.Context, path string, data []byte, logger *logging.Logger) (doc *Document, err error) {
	if logger == nil {
		logger = logging.New()
	}
	logger = logger.WithComponent("extract")

	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = errors.WrapWithCode(errors.RecoverPanic(r), errors.ErrCodeExtraction,
				fmt.Sprintf("failed to parse %s", path), errors.WithMetadata("path", path))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeExtraction,
			fmt.Sprintf("failed to parse %s", path), errors.WithMetadata("path", path))
	}

	doc = &Document{Path: path, PageCount: reader.NumPage()}
	var text strings.Builder
	for i := 1; i <= doc.PageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "extraction interrupted")
		}

		pageText := pageText(reader, i)
		doc.Pages = append(doc.Pages, pageText)
		if strings.TrimSpace(pageText) == "" {
			logger.Warn("no text found on page", map[string]interface{}{"page": i, "path": path})
			continue
		}
		text.WriteString(pageText)
		text.WriteByte('\n')
	}

	if text.Len() == 0 {
		return nil, errors.ExtractionFailed(
			"no extractable text found in résumé; the PDF may be scanned",
			errors.WithMetadata("path", path),
			errors.WithMetadata("pages", fmt.Sprint(doc.PageCount)),
		)
	}
	doc.Text = text.String()

	logger.Info("extracted résumé text", map[string]interface{}{
		"path":  path,
		"pages": doc.PageCount,
		"chars": utf8.RuneCountInString(doc.Text),
	})
	return doc, nil
}

// pageText returns the text of page i (1-based) as the parser produced it,
// or "" when the page is missing or unreadable.
func pageText(r *pdf.Reader, i int) string {
	p := r.Page(i)
	if p.V.IsNull() {
		return ""
	}
	s, err := p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return s
}
