package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spherical/cv-extractor/internal/domain"
)

// statusFor maps an extraction error to an HTTP status and a short code.
func statusFor(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "document too large"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	}

	switch domain.KindOf(err) {
	case domain.ErrorTypeUnsupportedFormat:
		return http.StatusUnsupportedMediaType, "unsupported format"
	case domain.ErrorTypeCorruptDocument:
		return http.StatusUnprocessableEntity, "corrupt document"
	case domain.ErrorTypeRasterization:
		return http.StatusUnprocessableEntity, "rasterization failed"
	case domain.ErrorTypeOCRTimeout:
		return http.StatusGatewayTimeout, "ocr timed out"
	case domain.ErrorTypeOCRJobFailure:
		return http.StatusBadGateway, "ocr failed"
	case domain.ErrorTypeValidation:
		return http.StatusBadRequest, "invalid request"
	default:
		return http.StatusInternalServerError, "extraction failed"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{
		"error":   message,
		"message": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, status, resp)
}
