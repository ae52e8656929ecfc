package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMediaType(t *testing.T) {
	tests := []struct {
		in   string
		want MediaType
	}{
		{"application/pdf", MediaTypePDF},
		{"Application/PDF", MediaTypePDF},
		{"text/plain; charset=utf-8", MediaTypeText},
		{"image/jpg", MediaTypeJPEG},
		{" image/svg+xml ", MediaTypeSVG},
		{"application/zip", MediaType("application/zip")},
		{"", MediaType("")},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMediaType(tt.in))
		})
	}
}

func TestMediaTypeFromFilename(t *testing.T) {
	mt, ok := MediaTypeFromFilename("resume.DOCX")
	assert.True(t, ok)
	assert.Equal(t, MediaTypeDOCX, mt)

	_, ok = MediaTypeFromFilename("archive.zip")
	assert.False(t, ok)
}

func TestSourceDocumentIsImmutable(t *testing.T) {
	data := []byte("hello")
	doc := NewSourceDocument("a.txt", MediaTypeText, data)

	data[0] = 'j'
	assert.Equal(t, []byte("hello"), doc.Bytes())

	out := doc.Bytes()
	out[0] = 'y'
	assert.Equal(t, []byte("hello"), doc.Bytes())
	assert.Equal(t, 5, doc.Size())
	assert.Len(t, doc.Digest(), 64)
}

func TestStrategy(t *testing.T) {
	assert.Equal(t, "DIRECT_PDF", StrategyDirectPDF.String())
	assert.Equal(t, "OCR_ONLY", StrategyOCROnly.String())
	assert.True(t, StrategyDirectDOCX.IsDirect())
	assert.False(t, StrategyOCROnly.IsDirect())
	assert.True(t, StrategyDirectPDF.HasOCRFallback())
	assert.False(t, StrategyDirectText.HasOCRFallback())
}

func TestDomainErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("page 2: %w", NoTextLayerError("empty content stream", nil))

	assert.True(t, errors.Is(err, ErrNoTextLayer))
	assert.False(t, errors.Is(err, ErrCorruptDocument))
	assert.Equal(t, ErrorTypeNoTextLayer, KindOf(err))
	assert.Equal(t, ErrorType(""), KindOf(errors.New("plain")))
}

func TestDomainErrorMessage(t *testing.T) {
	err := CorruptDocumentError("open archive", errors.New("zip: not a valid zip file"))
	assert.Equal(t, "[corrupt_document] open archive: zip: not a valid zip file", err.Error())
	assert.Equal(t, "[ocr_timeout] budget exceeded", OCRTimeoutError("budget exceeded", nil).Error())
}
