// Package router maps declared media types to extraction strategies.
package router

import (
	"fmt"

	"github.com/spherical/cv-extractor/internal/domain"
)

var supported = []domain.MediaType{
	domain.MediaTypePDF,
	domain.MediaTypeDOCX,
	domain.MediaTypeText,
	domain.MediaTypeJPEG,
	domain.MediaTypePNG,
	domain.MediaTypeSVG,
}

// Route returns the extraction strategy for a media type, or an
// UnsupportedFormat error.
func Route(mt domain.MediaType) (domain.Strategy, error) {
	switch mt {
	case domain.MediaTypePDF:
		return domain.StrategyDirectPDF, nil
	case domain.MediaTypeDOCX:
		return domain.StrategyDirectDOCX, nil
	case domain.MediaTypeText:
		return domain.StrategyDirectText, nil
	case domain.MediaTypeJPEG, domain.MediaTypePNG, domain.MediaTypeSVG:
		return domain.StrategyOCROnly, nil
	default:
		return 0, domain.UnsupportedFormatError(fmt.Sprintf("media type %q is not supported", string(mt)), nil)
	}
}

// Supported lists the media types Route accepts.
func Supported() []domain.MediaType {
	out := make([]domain.MediaType, len(supported))
	copy(out, supported)
	return out
}
