// Package ocr manages a bounded pool of OCR workers that recognize page
// images concurrently under a global timeout.
package ocr

import (
	"context"
	"fmt"

	"github.com/spherical/cv-extractor/internal/domain"
	"github.com/spherical/cv-extractor/internal/observability"
)

// Worker is one OCR engine instance. It runs at most one recognition at a
// time.
type Worker interface {
	Recognize(ctx context.Context, page domain.PageImage) (string, error)
	// Terminate releases the worker. Any recognition still running is
	// stopped hard.
	Terminate() error
}

// Engine creates workers.
type Engine interface {
	NewWorker(ctx context.Context, cfg WorkerConfig) (Worker, error)
}

// WorkerConfig configures a single worker.
type WorkerConfig struct {
	ID          int
	Languages   []string
	PageSegMode int
	EngineMode  int
}

// EngineOptions selects and configures an engine implementation.
type EngineOptions struct {
	Name          string // tesseract or gosseract
	TesseractPath string
}

// NewEngine builds the engine named in opts.
func NewEngine(opts EngineOptions, logger *observability.Logger) (Engine, error) {
	switch opts.Name {
	case "", "tesseract":
		return NewTesseractEngine(opts.TesseractPath, nil, logger), nil
	case "gosseract":
		return newGosseractEngine(logger)
	default:
		return nil, domain.ConfigError(fmt.Sprintf("unknown ocr engine %q", opts.Name), nil)
	}
}
