// Package config provides configuration loading for the extractor.
// Supports YAML files, .env files and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the extractor.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Extraction    ExtractionConfig    `yaml:"extraction"`
	OCR           OCRConfig           `yaml:"ocr"`
	Cache         CacheConfig         `yaml:"cache"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host                     string        `yaml:"host"`
	Port                     int           `yaml:"port"`
	ReadTimeout              time.Duration `yaml:"read_timeout"`
	WriteTimeout             time.Duration `yaml:"write_timeout"`
	IdleTimeout              time.Duration `yaml:"idle_timeout"`
	GracefulShutdown         time.Duration `yaml:"graceful_shutdown"`
	MaxUploadBytes           int64         `yaml:"max_upload_bytes"`
	MaxConcurrentExtractions int           `yaml:"max_concurrent_extractions"`
}

// ExtractionConfig holds direct extraction and rasterization settings.
type ExtractionConfig struct {
	ReadabilityThreshold float64 `yaml:"readability_threshold"`
	RasterScale          float64 `yaml:"raster_scale"`
	RasterWidth          int     `yaml:"raster_width"`
	TempDir              string  `yaml:"temp_dir"`
}

// OCRConfig holds OCR pool settings.
type OCRConfig struct {
	Engine        string        `yaml:"engine"` // tesseract or gosseract
	Workers       int           `yaml:"workers"`
	Languages     []string      `yaml:"languages"`
	PageSegMode   int           `yaml:"page_seg_mode"`
	EngineMode    int           `yaml:"engine_mode"` // --oem; the gosseract engine accepts only 3
	Timeout       time.Duration `yaml:"timeout"`
	TesseractPath string        `yaml:"tesseract_path"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // none, memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	URL      string `yaml:"url"` // overrides addr and db when set
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file, then .env, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Ignore error if .env doesn't exist
	_ = godotenv.Load()

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                     "0.0.0.0",
			Port:                     8090,
			ReadTimeout:              30 * time.Second,
			WriteTimeout:             90 * time.Second,
			IdleTimeout:              120 * time.Second,
			GracefulShutdown:         10 * time.Second,
			MaxUploadBytes:           25 << 20,
			MaxConcurrentExtractions: 4,
		},
		Extraction: ExtractionConfig{
			ReadabilityThreshold: 0.7,
			RasterScale:          2,
		},
		OCR: OCRConfig{
			Engine:        "tesseract",
			Workers:       2,
			Languages:     []string{"eng", "osd"},
			PageSegMode:   1,
			EngineMode:    3,
			Timeout:       60 * time.Second,
			TesseractPath: "tesseract",
		},
		Cache: CacheConfig{
			Driver:     "none",
			TTL:        time.Hour,
			MaxEntries: 1000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
				Prefix:   "cvx:",
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "cv-extractor",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}

	if c.Extraction.ReadabilityThreshold < 0 || c.Extraction.ReadabilityThreshold >= 1 {
		return fmt.Errorf("readability_threshold must be in [0, 1), got %v", c.Extraction.ReadabilityThreshold)
	}

	if c.Extraction.RasterScale <= 0 {
		return fmt.Errorf("raster_scale must be positive")
	}

	if c.Extraction.RasterWidth < 0 {
		return fmt.Errorf("raster_width must not be negative")
	}

	if c.OCR.Engine != "tesseract" && c.OCR.Engine != "gosseract" {
		return fmt.Errorf("invalid ocr engine: %s", c.OCR.Engine)
	}

	if c.OCR.Engine == "gosseract" && c.OCR.EngineMode != 3 {
		return fmt.Errorf("ocr engine_mode %d requires the tesseract engine", c.OCR.EngineMode)
	}

	if c.OCR.Workers < 1 {
		return fmt.Errorf("ocr workers must be at least 1")
	}

	if c.OCR.Timeout <= 0 {
		return fmt.Errorf("ocr timeout must be positive")
	}

	if len(c.OCR.Languages) == 0 {
		return fmt.Errorf("at least one ocr language is required")
	}

	switch c.Cache.Driver {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("CV_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("CV_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CV_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	if v := os.Getenv("CV_TEMP_DIR"); v != "" {
		cfg.Extraction.TempDir = v
	}

	if v := os.Getenv("CV_OCR_ENGINE"); v != "" {
		cfg.OCR.Engine = v
	}

	if v := os.Getenv("CV_OCR_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CV_OCR_WORKERS: %w", err)
		}
		cfg.OCR.Workers = n
	}

	if v := os.Getenv("CV_OCR_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CV_OCR_TIMEOUT: %w", err)
		}
		cfg.OCR.Timeout = d
	}

	if v := os.Getenv("CV_OCR_LANGUAGES"); v != "" {
		cfg.OCR.Languages = SplitList(v)
	}

	if v := os.Getenv("TESSERACT_PATH"); v != "" {
		cfg.OCR.TesseractPath = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.URL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	return nil
}

// SplitList splits a comma or plus separated list, dropping empty items.
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '+'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
