//go:build !gosseract

package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/cv-extractor/internal/domain"
)

func TestNewEngineGosseractNeedsBuildTag(t *testing.T) {
	_, err := NewEngine(EngineOptions{Name: "gosseract"}, nil)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeConfig, domain.KindOf(err))
	assert.Contains(t, err.Error(), "-tags gosseract")
}
