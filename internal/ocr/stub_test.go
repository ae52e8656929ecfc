package ocr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/spherical/cv-extractor/internal/domain"
	"github.com/spherical/cv-extractor/internal/testutil"
)

type recognizeFunc func(ctx context.Context, page domain.PageImage) (string, error)

// stubEngine hands out stubWorkers and records every worker it created.
type stubEngine struct {
	recognize    recognizeFunc
	failOnWorker int // 1-based; 0 never fails
	terminateErr error

	mu      sync.Mutex
	configs []WorkerConfig
	workers []*stubWorker

	active    atomic.Int32
	maxActive atomic.Int32
}

func newStubEngine(fn recognizeFunc) *stubEngine {
	return &stubEngine{recognize: fn}
}

func (e *stubEngine) NewWorker(ctx context.Context, cfg WorkerConfig) (Worker, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.configs = append(e.configs, cfg)
	if e.failOnWorker == len(e.configs) {
		return nil, errors.New("engine unavailable")
	}
	w := &stubWorker{engine: e, id: cfg.ID}
	e.workers = append(e.workers, w)
	return w, nil
}

func (e *stubEngine) created() []*stubWorker {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*stubWorker(nil), e.workers...)
}

func (e *stubEngine) terminateCount() int {
	n := 0
	for _, w := range e.created() {
		n += int(w.terminated.Load())
	}
	return n
}

func (e *stubEngine) recognizeCount() int {
	n := 0
	for _, w := range e.created() {
		n += int(w.calls.Load())
	}
	return n
}

type stubWorker struct {
	engine     *stubEngine
	id         int
	calls      atomic.Int32
	terminated atomic.Int32
}

func (w *stubWorker) Recognize(ctx context.Context, page domain.PageImage) (string, error) {
	w.calls.Add(1)
	n := w.engine.active.Add(1)
	defer w.engine.active.Add(-1)
	for {
		peak := w.engine.maxActive.Load()
		if n <= peak || w.engine.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}

	if w.engine.recognize != nil {
		return w.engine.recognize(ctx, page)
	}
	return pageText(page.Index), nil
}

func (w *stubWorker) Terminate() error {
	w.terminated.Add(1)
	return w.engine.terminateErr
}

func pageText(i int) string {
	return fmt.Sprintf("text of page %d", i)
}

func makePages(n int) []domain.PageImage {
	pages := make([]domain.PageImage, n)
	for i := range pages {
		pages[i] = domain.NewPageImage(i, testutil.Image(8, 8))
	}
	return pages
}
