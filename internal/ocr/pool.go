package ocr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spherical/cv-extractor/internal/domain"
	"github.com/spherical/cv-extractor/internal/observability"
)

const (
	DefaultWorkers     = 2
	DefaultPageSegMode = 1 // automatic page segmentation with orientation and script detection
	DefaultEngineMode  = 3
	DefaultTimeout     = 60 * time.Second
)

// DefaultLanguages pairs a general model with orientation detection.
var DefaultLanguages = []string{"eng", "osd"}

// WorkerState is the lifecycle state of one pooled worker.
type WorkerState int32

const (
	StateUninitialized WorkerState = iota
	StateReady
	StateBusy
	StateTerminated
)

func (s WorkerState) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateReady:
		return "READY"
	case StateBusy:
		return "BUSY"
	case StateTerminated:
		return "TERMINATED"
	default:
		return fmt.Sprintf("WorkerState(%d)", int32(s))
	}
}

// PoolConfig configures a Pool. Zero values take the package defaults.
type PoolConfig struct {
	Workers     int
	Languages   []string
	PageSegMode int
	EngineMode  int
	Timeout     time.Duration
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if len(c.Languages) == 0 {
		c.Languages = append([]string(nil), DefaultLanguages...)
	}
	if c.PageSegMode == 0 {
		c.PageSegMode = DefaultPageSegMode
	}
	if c.EngineMode == 0 {
		c.EngineMode = DefaultEngineMode
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// handle tracks one worker and its state.
type handle struct {
	id     int
	state  atomic.Int32
	worker Worker
}

func (h *handle) State() WorkerState {
	return WorkerState(h.state.Load())
}

// claim moves READY to BUSY. It fails once the worker is terminated.
func (h *handle) claim() bool {
	return h.state.CompareAndSwap(int32(StateReady), int32(StateBusy))
}

// release moves BUSY back to READY, leaving TERMINATED untouched.
func (h *handle) release() {
	h.state.CompareAndSwap(int32(StateBusy), int32(StateReady))
}

type job struct {
	pos int
	domain.ExtractionJob
}

// PageFunc observes a page as soon as its text is recognized. It is called
// from worker goroutines, in completion order.
type PageFunc func(page domain.PageImage, text string)

// Pool owns a fixed set of OCR workers for a single extraction. It is built
// per call, used once and torn down; it is not shared between requests.
type Pool struct {
	engine Engine
	cfg    PoolConfig
	logger *observability.Logger

	mu          sync.Mutex
	handles     []*handle
	initialized bool
	onPage      PageFunc

	terminateOnce sync.Once
}

// NewPool creates an uninitialized pool.
func NewPool(engine Engine, cfg PoolConfig, logger *observability.Logger) *Pool {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Pool{
		engine: engine,
		cfg:    cfg.withDefaults(),
		logger: logger.WithComponent("ocr_pool"),
	}
}

// Config returns the effective configuration.
func (p *Pool) Config() PoolConfig {
	return p.cfg
}

// OnPage registers fn to be called for every recognized page. It must be set
// before Recognize.
func (p *Pool) OnPage(fn PageFunc) {
	p.mu.Lock()
	p.onPage = fn
	p.mu.Unlock()
}

// Initialize starts every worker. If any worker fails to start, the ones
// already started are terminated and an OcrInit error is returned.
func (p *Pool) Initialize(ctx context.Context) error {
	p.mu.Lock()
	if p.initialized || len(p.handles) > 0 {
		p.mu.Unlock()
		return domain.OCRInitError("pool already initialized", nil)
	}
	handles := make([]*handle, p.cfg.Workers)
	for i := range handles {
		handles[i] = &handle{id: i}
	}
	p.handles = handles
	p.mu.Unlock()

	start := time.Now()
	for _, h := range handles {
		w, err := p.engine.NewWorker(ctx, WorkerConfig{
			ID:          h.id,
			Languages:   append([]string(nil), p.cfg.Languages...),
			PageSegMode: p.cfg.PageSegMode,
			EngineMode:  p.cfg.EngineMode,
		})
		if err != nil {
			p.Terminate()
			return domain.OCRInitError(fmt.Sprintf("start worker %d", h.id), err)
		}
		p.mu.Lock()
		h.worker = w
		p.mu.Unlock()
		h.state.Store(int32(StateReady))
	}

	p.mu.Lock()
	p.initialized = true
	p.mu.Unlock()

	p.logger.Info().
		Int("workers", len(handles)).
		Strs("languages", p.cfg.Languages).
		Int("psm", p.cfg.PageSegMode).
		Dur("startup", time.Since(start)).
		Msg("OCR pool ready")
	return nil
}

// Recognize runs one job per page and returns the texts in page order. The
// whole call is bounded by the pool timeout; on timeout or a failed job no
// partial result is returned. The pool is always terminated before
// Recognize returns.
func (p *Pool) Recognize(ctx context.Context, pages []domain.PageImage) ([]string, error) {
	defer p.Terminate()

	p.mu.Lock()
	ready := p.initialized
	handles := p.handles
	onPage := p.onPage
	p.mu.Unlock()
	if !ready {
		return nil, domain.OCRInitError("pool is not initialized", nil)
	}
	if len(pages) == 0 {
		return []string{}, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	jobs := make(chan job, len(pages))
	for i, page := range pages {
		jobs <- job{
			pos: i,
			ExtractionJob: domain.ExtractionJob{
				Page:      page,
				Languages: p.cfg.Languages,
			},
		}
	}
	close(jobs)

	results := make([]string, len(pages))
	g, gctx := errgroup.WithContext(runCtx)
	for _, h := range handles {
		g.Go(func() error {
			return p.work(gctx, h, jobs, results, onPage)
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	start := time.Now()
	select {
	case err := <-done:
		switch {
		case err == nil:
			p.logger.Info().
				Int("pages", len(pages)).
				Dur("elapsed", time.Since(start)).
				Msg("OCR complete")
			return results, nil
		case domain.KindOf(err) != "":
			return nil, err
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			return nil, p.timeoutError(len(pages))
		default:
			return nil, err
		}
	case <-runCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, p.timeoutError(len(pages))
	}
}

func (p *Pool) timeoutError(pages int) error {
	p.logger.Warn().
		Int("pages", pages).
		Dur("timeout", p.cfg.Timeout).
		Msg("OCR timed out, discarding partial results")
	return domain.OCRTimeoutError(fmt.Sprintf("ocr of %d pages exceeded %s", pages, p.cfg.Timeout), nil)
}

// work is one worker's claim loop. Any idle worker may take any queued job.
func (p *Pool) work(ctx context.Context, h *handle, jobs <-chan job, results []string, onPage PageFunc) error {
	for {
		if h.State() == StateTerminated {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case j, ok := <-jobs:
			if !ok {
				return nil
			}
			if !h.claim() {
				return nil
			}

			start := time.Now()
			text, err := h.worker.Recognize(ctx, j.Page)
			h.release()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return domain.OCRJobFailureError(fmt.Sprintf("recognize page %d", j.Page.Index+1), err)
			}
			results[j.pos] = text

			p.logger.Debug().
				Int("worker", h.id).
				Int("page", j.Page.Index+1).
				Int("chars", len(text)).
				Dur("elapsed", time.Since(start)).
				Msg("Page recognized")

			if onPage != nil {
				onPage(j.Page, text)
			}
		}
	}
}

// Terminate stops every worker. It is idempotent and best effort: errors are
// logged, never returned, so they cannot mask the error that caused the
// teardown.
func (p *Pool) Terminate() {
	p.terminateOnce.Do(func() {
		p.mu.Lock()
		handles := p.handles
		p.initialized = false
		p.mu.Unlock()

		for _, h := range handles {
			h.state.Store(int32(StateTerminated))

			p.mu.Lock()
			w := h.worker
			p.mu.Unlock()
			if w == nil {
				continue
			}
			if err := w.Terminate(); err != nil {
				p.logger.Warn().
					Int("worker", h.id).
					Err(err).
					Msg("Failed to terminate OCR worker")
			}
		}

		if len(handles) > 0 {
			p.logger.Debug().Int("workers", len(handles)).Msg("OCR pool terminated")
		}
	})
}

// States returns a snapshot of every worker's state.
func (p *Pool) States() []WorkerState {
	p.mu.Lock()
	defer p.mu.Unlock()

	states := make([]WorkerState, len(p.handles))
	for i, h := range p.handles {
		states[i] = h.State()
	}
	return states
}
