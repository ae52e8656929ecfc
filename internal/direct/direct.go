// Package direct pulls embedded text out of documents without rasterizing
// them: the PDF text layer, DOCX document XML and plain UTF-8 text.
package direct

import (
	"fmt"

	"github.com/spherical/cv-extractor/internal/domain"
)

// Options configures the direct extractors.
type Options struct {
	// TempDir is where source buffers are staged while parsing. Empty means
	// the OS default.
	TempDir string
}

// ForStrategy returns the extractor bound to a direct strategy.
func ForStrategy(s domain.Strategy, opts Options) (domain.TextExtractor, error) {
	switch s {
	case domain.StrategyDirectPDF:
		return NewPDFExtractor(opts), nil
	case domain.StrategyDirectDOCX:
		return NewDOCXExtractor(opts), nil
	case domain.StrategyDirectText:
		return NewTextExtractor(), nil
	default:
		return nil, fmt.Errorf("strategy %s has no direct extractor", s)
	}
}
