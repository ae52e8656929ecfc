package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/spherical/cv-extractor/internal/domain"
	"github.com/spherical/cv-extractor/internal/observability"
)

// multipartMemory is how much of an upload ParseMultipartForm keeps in
// memory before spilling to disk.
const multipartMemory = 8 << 20

// ExtractHandler handles document uploads.
type ExtractHandler struct {
	logger   *observability.Logger
	pipeline domain.Pipeline
	maxBytes int64
	slots    chan struct{}
}

// NewExtractHandler creates a handler that runs at most maxConcurrent
// extractions at a time.
func NewExtractHandler(logger *observability.Logger, pipeline domain.Pipeline, maxBytes int64, maxConcurrent int) *ExtractHandler {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &ExtractHandler{
		logger:   logger.WithComponent("api"),
		pipeline: pipeline,
		maxBytes: maxBytes,
		slots:    make(chan struct{}, maxConcurrent),
	}
}

// ExtractResponseDTO is the body of a successful extraction.
type ExtractResponseDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MediaType  string `json:"media_type"`
	Strategy   string `json:"strategy"`
	UsedOCR    bool   `json:"used_ocr"`
	Pages      int    `json:"pages"`
	DurationMS int64  `json:"duration_ms"`
	Cached     bool   `json:"cached,omitempty"`
	Text       string `json:"text"`
}

// Extract handles POST /api/v1/extract.
func (h *ExtractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.WithContext(ctx)

	doc, err := h.readDocument(w, r)
	if err != nil {
		status, message := statusFor(err)
		writeError(w, status, message, err.Error())
		return
	}

	if err := h.acquire(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "server busy", err.Error())
		return
	}
	defer h.release()

	id := uuid.New()
	log.Info().
		Str("extraction_id", id.String()).
		Str("name", doc.Name).
		Str("media_type", string(doc.MediaType)).
		Int("size", doc.Size()).
		Msg("Starting extraction")

	res, err := h.pipeline.Extract(ctx, doc)
	if err != nil {
		status, message := statusFor(err)
		log.Warn().Str("extraction_id", id.String()).Int("status", status).Err(err).Msg("Extraction failed")
		writeError(w, status, message, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ExtractResponseDTO{
		ID:         id.String(),
		Name:       doc.Name,
		MediaType:  string(doc.MediaType),
		Strategy:   res.Strategy,
		UsedOCR:    res.UsedOCR,
		Pages:      res.Pages,
		DurationMS: res.Duration.Milliseconds(),
		Cached:     res.FromCache,
		Text:       res.Text,
	})
}

// readDocument reads the "file" part. The media type comes from the
// media_type form field, then the part header, then the file extension.
func (h *ExtractHandler) readDocument(w http.ResponseWriter, r *http.Request) (domain.SourceDocument, error) {
	if r.ContentLength > h.maxBytes {
		return domain.SourceDocument{}, &http.MaxBytesError{Limit: h.maxBytes}
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.SourceDocument{}, err
		}
		return domain.SourceDocument{}, domain.ValidationError("expected a multipart/form-data upload", err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return domain.SourceDocument{}, domain.ValidationError("missing file field", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return domain.SourceDocument{}, domain.IOError("read upload", err)
	}

	mediaType := domain.ParseMediaType(r.FormValue("media_type"))
	if mediaType == "" {
		mediaType = domain.ParseMediaType(header.Header.Get("Content-Type"))
	}
	if mediaType == "" || mediaType == "application/octet-stream" {
		if mt, ok := domain.MediaTypeFromFilename(header.Filename); ok {
			mediaType = mt
		}
	}
	if mediaType == "" {
		return domain.SourceDocument{}, domain.ValidationError(fmt.Sprintf("cannot determine media type of %q", header.Filename), nil)
	}

	return domain.NewSourceDocument(header.Filename, mediaType, data), nil
}

func (h *ExtractHandler) acquire(ctx context.Context) error {
	select {
	case h.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *ExtractHandler) release() {
	<-h.slots
}
