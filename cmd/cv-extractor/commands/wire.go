package commands

import (
	"context"

	"github.com/spherical/cv-extractor/internal/cache"
	"github.com/spherical/cv-extractor/internal/config"
	"github.com/spherical/cv-extractor/internal/domain"
	"github.com/spherical/cv-extractor/internal/extract"
	"github.com/spherical/cv-extractor/internal/observability"
	"github.com/spherical/cv-extractor/internal/ocr"
	"github.com/spherical/cv-extractor/internal/raster"
)

// app bundles the service with whatever it needs closed on exit.
type app struct {
	service *extract.Service
	cache   cache.Client
}

func (a *app) Close() error {
	if a.cache != nil {
		return a.cache.Close()
	}
	return nil
}

// ready pings the result cache when one is configured.
func (a *app) ready(ctx context.Context) error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Ping(ctx)
}

func newApp(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*app, error) {
	engine, err := ocr.NewEngine(ocr.EngineOptions{
		Name:          cfg.OCR.Engine,
		TesseractPath: cfg.OCR.TesseractPath,
	}, logger)
	if err != nil {
		return nil, err
	}

	store, err := cache.Open(ctx, cache.Options{
		Driver:     cfg.Cache.Driver,
		MaxEntries: cfg.Cache.MaxEntries,
		Redis: cache.RedisConfig{
			URL:      cfg.Cache.Redis.URL,
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
			Prefix:   cfg.Cache.Redis.Prefix,
		},
	})
	if err != nil {
		return nil, err
	}

	svc := extract.NewService(extract.Dependencies{
		Rasterizer: raster.NewRasterizer(cfg.Extraction.TempDir, logger),
		Engine:     engine,
		Cache:      store,
	}, extract.Config{
		ReadabilityThreshold: cfg.Extraction.ReadabilityThreshold,
		Raster: domain.RasterOptions{
			Scale: cfg.Extraction.RasterScale,
			Width: cfg.Extraction.RasterWidth,
		},
		Pool: ocr.PoolConfig{
			Workers:     cfg.OCR.Workers,
			Languages:   cfg.OCR.Languages,
			PageSegMode: cfg.OCR.PageSegMode,
			EngineMode:  cfg.OCR.EngineMode,
			Timeout:     cfg.OCR.Timeout,
		},
		TempDir:  cfg.Extraction.TempDir,
		CacheTTL: cfg.Cache.TTL,
	}, logger)

	return &app{service: svc, cache: store}, nil
}
