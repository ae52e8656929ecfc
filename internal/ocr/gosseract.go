//go:build gosseract

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/spherical/cv-extractor/internal/domain"
	"github.com/spherical/cv-extractor/internal/observability"
)

// GosseractEngine runs libtesseract in process, one client per worker.
type GosseractEngine struct {
	logger *observability.Logger
}

func newGosseractEngine(logger *observability.Logger) (Engine, error) {
	if logger == nil {
		logger = observability.Nop()
	}
	return &GosseractEngine{logger: logger.WithComponent("gosseract")}, nil
}

func (e *GosseractEngine) NewWorker(ctx context.Context, cfg WorkerConfig) (Worker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// gosseract always initializes libtesseract with the default engine
	if cfg.EngineMode != 0 && cfg.EngineMode != DefaultEngineMode {
		return nil, domain.ConfigError(fmt.Sprintf("engine mode %d is only supported by the tesseract engine", cfg.EngineMode), nil)
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(cfg.Languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(cfg.PageSegMode)); err != nil {
		client.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}

	e.logger.Debug().Int("worker", cfg.ID).Str("version", gosseract.Version()).Msg("Gosseract worker started")
	return &gosseractWorker{client: client}, nil
}

type gosseractWorker struct {
	mu     sync.Mutex // held for the whole recognition
	client *gosseract.Client
	closed bool
}

// Recognize cannot be interrupted once libtesseract is running; ctx is only
// checked before starting.
func (w *gosseractWorker) Recognize(ctx context.Context, page domain.PageImage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var img bytes.Buffer
	if err := png.Encode(&img, page.Image); err != nil {
		return "", fmt.Errorf("encode page %d: %w", page.Index+1, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return "", errWorkerTerminated
	}

	if err := w.client.SetImageFromBytes(img.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	return w.client.Text()
}

// Terminate closes the client as soon as any running recognition returns.
// It does not block on that recognition.
func (w *gosseractWorker) Terminate() error {
	go func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.closed {
			return
		}
		w.closed = true
		w.client.Close()
	}()
	return nil
}
