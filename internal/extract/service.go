// Package extract turns any supported document into plain text, trying the
// cheap direct route first and falling back to rasterize + OCR.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spherical/cv-extractor/internal/cache"
	"github.com/spherical/cv-extractor/internal/direct"
	"github.com/spherical/cv-extractor/internal/domain"
	"github.com/spherical/cv-extractor/internal/observability"
	"github.com/spherical/cv-extractor/internal/ocr"
	"github.com/spherical/cv-extractor/internal/readability"
	"github.com/spherical/cv-extractor/internal/router"
)

// ExtractorFunc resolves the direct extractor for a strategy.
type ExtractorFunc func(domain.Strategy) (domain.TextExtractor, error)

// Dependencies are the collaborators of a Service.
type Dependencies struct {
	Rasterizer domain.Rasterizer
	Engine     ocr.Engine
	// Cache is optional.
	Cache cache.Client
	// Extractors defaults to direct.ForStrategy.
	Extractors ExtractorFunc
}

// Config tunes a Service. Zero values take the defaults.
type Config struct {
	ReadabilityThreshold float64
	Raster               domain.RasterOptions
	Pool                 ocr.PoolConfig
	TempDir              string
	CacheTTL             time.Duration
}

// Service orchestrates the extraction process
type Service struct {
	rasterizer domain.Rasterizer
	engine     ocr.Engine
	cache      cache.Client
	extractors ExtractorFunc
	cfg        Config
	logger     *observability.Logger
}

var _ domain.Pipeline = (*Service)(nil)

// NewService creates a new extraction service
func NewService(deps Dependencies, cfg Config, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.Nop()
	}
	if cfg.ReadabilityThreshold <= 0 {
		cfg.ReadabilityThreshold = readability.DefaultThreshold
	}
	if cfg.Raster.Scale <= 0 {
		cfg.Raster.Scale = 2
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}

	extractors := deps.Extractors
	if extractors == nil {
		opts := direct.Options{TempDir: cfg.TempDir}
		extractors = func(s domain.Strategy) (domain.TextExtractor, error) {
			return direct.ForStrategy(s, opts)
		}
	}

	return &Service{
		rasterizer: deps.Rasterizer,
		engine:     deps.Engine,
		cache:      deps.Cache,
		extractors: extractors,
		cfg:        cfg,
		logger:     logger.WithComponent("extract"),
	}
}

// ExtractText returns the plain text of doc.
func (s *Service) ExtractText(ctx context.Context, doc domain.SourceDocument) (string, error) {
	res, err := s.Extract(ctx, doc)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Extract returns the text of doc together with how it was obtained.
func (s *Service) Extract(ctx context.Context, doc domain.SourceDocument) (*domain.Result, error) {
	return s.Process(ctx, doc, nil)
}

// Process runs the extraction and reports progress on eventCh, which may be
// nil. Events are dropped when the channel is full.
func (s *Service) Process(ctx context.Context, doc domain.SourceDocument, eventCh chan<- domain.StreamEvent) (*domain.Result, error) {
	startTime := time.Now()
	log := s.logger.WithContext(ctx)

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventStart,
		Payload:   fmt.Sprintf("Starting extraction of %s", doc.Name),
		Timestamp: time.Now(),
	})

	if res, ok := s.lookup(ctx, doc); ok {
		log.Debug().Str("name", doc.Name).Msg("Serving cached result")
		s.emitComplete(eventCh, res)
		return res, nil
	}

	res, err := s.run(ctx, doc, eventCh)
	if err != nil {
		log.Warn().Str("name", doc.Name).Str("media_type", string(doc.MediaType)).Err(err).Msg("Extraction failed")
		s.emitError(eventCh, err)
		return nil, err
	}
	res.Duration = time.Since(startTime)

	log.Info().
		Str("name", doc.Name).
		Str("strategy", res.Strategy).
		Bool("used_ocr", res.UsedOCR).
		Int("pages", res.Pages).
		Dur("duration", res.Duration).
		Msg("Extraction complete")

	s.store(ctx, doc, res)
	s.emitComplete(eventCh, res)
	return res, nil
}

func (s *Service) run(ctx context.Context, doc domain.SourceDocument, eventCh chan<- domain.StreamEvent) (*domain.Result, error) {
	strategy, err := router.Route(doc.MediaType)
	if err != nil {
		return nil, err
	}

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventStrategy,
		Payload:   strategy.String(),
		Timestamp: time.Now(),
	})

	if strategy == domain.StrategyOCROnly {
		page, err := s.rasterizer.LoadImage(ctx, doc, s.cfg.Raster)
		if err != nil {
			return nil, err
		}
		return s.recognize(ctx, strategy, []domain.PageImage{page}, eventCh)
	}

	text, err := s.directText(ctx, strategy, doc)
	switch {
	case err == nil && !strategy.HasOCRFallback():
		return &domain.Result{Text: text, Strategy: strategy.String()}, nil
	case err == nil && readability.IsReadable(text, s.cfg.ReadabilityThreshold):
		return &domain.Result{Text: text, Strategy: strategy.String()}, nil
	case err == nil:
		s.fallback(ctx, eventCh, "text layer unreadable")
	case errors.Is(err, domain.ErrNoTextLayer) && strategy.HasOCRFallback():
		s.fallback(ctx, eventCh, "no text layer")
	default:
		return nil, err
	}

	pages, err := s.rasterizer.Rasterize(ctx, doc.Bytes(), s.cfg.Raster)
	if err != nil {
		return nil, err
	}
	return s.recognize(ctx, strategy, pages, eventCh)
}

func (s *Service) directText(ctx context.Context, strategy domain.Strategy, doc domain.SourceDocument) (string, error) {
	extractor, err := s.extractors(strategy)
	if err != nil {
		return "", err
	}
	return extractor.Extract(ctx, doc.Bytes())
}

func (s *Service) fallback(ctx context.Context, eventCh chan<- domain.StreamEvent, reason string) {
	s.logger.WithContext(ctx).Info().Str("reason", reason).Msg("Falling back to OCR")
	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventFallback,
		Payload:   reason,
		Timestamp: time.Now(),
	})
}

// recognize runs pages through a pool that lives only for this call.
func (s *Service) recognize(ctx context.Context, strategy domain.Strategy, pages []domain.PageImage, eventCh chan<- domain.StreamEvent) (*domain.Result, error) {
	pool := ocr.NewPool(s.engine, s.cfg.Pool, s.logger.WithContext(ctx))
	defer pool.Terminate()

	if err := pool.Initialize(ctx); err != nil {
		return nil, err
	}

	var completed atomic.Int32
	pool.OnPage(func(page domain.PageImage, _ string) {
		n := completed.Add(1)
		s.emitEvent(eventCh, domain.StreamEvent{
			Type:       domain.EventPageComplete,
			PageNumber: page.Index + 1,
			Payload:    fmt.Sprintf("Completed page %d (%d/%d)", page.Index+1, n, len(pages)),
			Timestamp:  time.Now(),
		})
	})

	texts, err := pool.Recognize(ctx, pages)
	if err != nil {
		return nil, err
	}

	return &domain.Result{
		Text:     strings.Join(texts, "\n"),
		Strategy: strategy.String(),
		UsedOCR:  true,
		Pages:    len(pages),
	}, nil
}

func (s *Service) lookup(ctx context.Context, doc domain.SourceDocument) (*domain.Result, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, err := s.cache.Get(ctx, cache.ResultKey(doc))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WithContext(ctx).Warn().Err(err).Msg("Cache lookup failed")
		}
		return nil, false
	}

	var res domain.Result
	if err := json.Unmarshal(data, &res); err != nil {
		s.logger.WithContext(ctx).Warn().Err(err).Msg("Discarding malformed cache entry")
		return nil, false
	}
	res.FromCache = true
	return &res, true
}

func (s *Service) store(ctx context.Context, doc domain.SourceDocument, res *domain.Result) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(res)
	if err != nil {
		s.logger.WithContext(ctx).Warn().Err(err).Msg("Encode result for cache")
		return
	}
	if err := s.cache.Set(ctx, cache.ResultKey(doc), data, s.cfg.CacheTTL); err != nil {
		s.logger.WithContext(ctx).Warn().Err(err).Msg("Cache store failed")
	}
}

// emitEvent safely emits an event to the channel
func (s *Service) emitEvent(eventCh chan<- domain.StreamEvent, event domain.StreamEvent) {
	if eventCh == nil {
		return
	}
	select {
	case eventCh <- event:
	default:
		s.logger.Warn().Str("event", string(event.Type)).Msg("Event channel full, dropping event")
	}
}

func (s *Service) emitComplete(eventCh chan<- domain.StreamEvent, res *domain.Result) {
	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventComplete,
		Payload:   *res,
		Timestamp: time.Now(),
	})
}

// emitError emits an error event
func (s *Service) emitError(eventCh chan<- domain.StreamEvent, err error) {
	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventError,
		Payload:   err.Error(),
		Timestamp: time.Now(),
	})
}
