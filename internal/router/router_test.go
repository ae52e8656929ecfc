package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/cv-extractor/internal/domain"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		mt   domain.MediaType
		want domain.Strategy
	}{
		{domain.MediaTypePDF, domain.StrategyDirectPDF},
		{domain.MediaTypeDOCX, domain.StrategyDirectDOCX},
		{domain.MediaTypeText, domain.StrategyDirectText},
		{domain.MediaTypeJPEG, domain.StrategyOCROnly},
		{domain.MediaTypePNG, domain.StrategyOCROnly},
		{domain.MediaTypeSVG, domain.StrategyOCROnly},
	}

	for _, tt := range tests {
		t.Run(string(tt.mt), func(t *testing.T) {
			got, err := Route(tt.mt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouteUnsupported(t *testing.T) {
	for _, mt := range []domain.MediaType{"application/zip", "application/msword", ""} {
		_, err := Route(mt)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrUnsupportedFormat), "media type %q", mt)
	}
}

func TestSupportedCoversEveryRoute(t *testing.T) {
	types := Supported()
	assert.Len(t, types, 6)
	for _, mt := range types {
		_, err := Route(mt)
		assert.NoError(t, err)
	}
}
