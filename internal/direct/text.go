package direct

import (
	"bytes"
	"context"
	"unicode/utf8"

	"github.com/spherical/cv-extractor/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextExtractor decodes plain UTF-8 text.
type TextExtractor struct{}

// NewTextExtractor creates a plain text extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract returns data as a string with any leading byte order mark
// removed. Invalid UTF-8 is a CorruptDocument error.
func (e *TextExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", domain.CorruptDocumentError("text is not valid UTF-8", nil)
	}
	return string(data), nil
}
