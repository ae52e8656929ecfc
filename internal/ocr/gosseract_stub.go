//go:build !gosseract

package ocr

import (
	"github.com/spherical/cv-extractor/internal/domain"
	"github.com/spherical/cv-extractor/internal/observability"
)

func newGosseractEngine(*observability.Logger) (Engine, error) {
	return nil, domain.ConfigError("gosseract engine requires building with -tags gosseract", nil)
}
