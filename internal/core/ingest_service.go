package core

import (
	"errors"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

const (
	allowedContentType = "application/pdf"
	maxFileSize        = 15 << 20 // 15 MiB
)

var (
	ErrInvalidFileType = errors.New("invalid file type")
	ErrFileTooLarge    = errors.New("file size exceeded 15MB")
)

// Ingestor turns raw uploaded bytes into a sequence of page-anchored text
// chunks ready for embedding.
type Ingestor struct {
	tempDir string // empty means the system temp dir
}

func NewIngestor() *Ingestor {
	return &Ingestor{}
}

// Ingest validates the upload, extracts page text and splits it into
// overlapping spans. Validation happens before any parsing: parsing oversized
// or non-PDF input is the expensive, failure-prone step, so it is never
// reached for bad input. The transient file is removed on every path.
func (i *Ingestor) Ingest(fileBytes []byte, contentType string, sizeBytes int64) ([]RawChunk, error) {
	if contentType != allowedContentType {
		return nil, ErrInvalidFileType
	}
	if sizeBytes > maxFileSize {
		return nil, ErrFileTooLarge
	}

	tf, err := os.CreateTemp(i.tempDir, "chatpdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create transient file: %w", err)
	}
	tfPath := tf.Name()
	defer os.Remove(tfPath)

	if _, err := tf.Write(fileBytes); err != nil {
		tf.Close()
		return nil, fmt.Errorf("failed to spool upload: %w", err)
	}
	if err := tf.Close(); err != nil {
		return nil, fmt.Errorf("failed to spool upload: %w", err)
	}

	pages, err := extractPages(tfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}

	var chunks []RawChunk
	for pageNum, text := range pages {
		chunks = append(chunks, SplitText(text, pageNum+1)...)
	}
	return chunks, nil
}

func extractPages(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
