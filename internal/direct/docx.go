package direct

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"strings"

	"code.sajari.com/docconv"

	"github.com/spherical/cv-extractor/internal/domain"
)

const docxBodyPart = "word/document.xml"

// DOCXExtractor returns the visible text of a Word document.
type DOCXExtractor struct {
	tempDir string
}

// NewDOCXExtractor creates a DOCX extractor.
func NewDOCXExtractor(opts Options) *DOCXExtractor {
	return &DOCXExtractor{tempDir: opts.TempDir}
}

// Extract parses the document XML and discards formatting. A buffer that is
// not a zip archive, or an archive without a document body, fails with
// CorruptDocument.
func (e *DOCXExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	var text string
	err := withTempFile(ctx, e.tempDir, "cvx-*.docx", data, func(path string) error {
		if err := checkDocxArchive(path); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return domain.IOError("open staged docx", err)
		}
		defer f.Close()

		body, _, err := docconv.ConvertDocx(f)
		if err != nil {
			return domain.CorruptDocumentError("parse docx", err)
		}
		text = strings.TrimSpace(body)
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// checkDocxArchive verifies the archive opens and carries a document body.
func checkDocxArchive(path string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return domain.CorruptDocumentError("open docx archive", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name == docxBodyPart {
			return nil
		}
	}
	return domain.CorruptDocumentError(fmt.Sprintf("%s not found in archive", docxBodyPart), nil)
}
