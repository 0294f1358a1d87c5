package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/clockface-studio/photoclock/internal/geometry"
	"github.com/clockface-studio/photoclock/internal/images"
	"github.com/clockface-studio/photoclock/internal/layout"
	"gopkg.in/yaml.v3"
)

// Config is the photoclock runtime configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Preview PreviewConfig `yaml:"preview"`
	Export  ExportConfig  `yaml:"export"`
	Assets  AssetsConfig  `yaml:"assets"`
}

type ServerConfig struct {
	Port       int    `yaml:"port"`
	Origin     string `yaml:"origin"`
	StaticDir  string `yaml:"staticdir"`
	UploadsDir string `yaml:"uploadsdir"`
	ExportsDir string `yaml:"exportsdir"`
	LedgerPath string `yaml:"ledger"`
}

type PreviewConfig struct {
	Width       float64       `yaml:"width"`
	Delay       time.Duration `yaml:"delay"`
	Scale       float64       `yaml:"scale"`
	SettleDelay time.Duration `yaml:"settledelay"`
}

type ExportConfig struct {
	MinOutputSize int `yaml:"minoutputsize"`
}

type AssetsConfig struct {
	FetchTimeout time.Duration `yaml:"fetchtimeout"`
	CacheSize    int           `yaml:"cachesize"`
	Concurrency  int           `yaml:"concurrency"`
	MaxBytes     int64         `yaml:"maxbytes"`
	MaxPixels    int           `yaml:"maxpixels"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:       8888,
			StaticDir:  "static",
			UploadsDir: "uploads",
			ExportsDir: "exports",
			LedgerPath: "orders.parquet",
		},
		Preview: PreviewConfig{
			Width:       layout.DefaultPreviewWidth,
			Delay:       200 * time.Millisecond,
			Scale:       1,
			SettleDelay: 10 * time.Millisecond,
		},
		Export: ExportConfig{
			MinOutputSize: geometry.MinOutputSize,
		},
		Assets: AssetsConfig{
			FetchTimeout: 30 * time.Second,
			CacheSize:    64,
			Concurrency:  13,
			MaxBytes:     40 * 1024 * 1024,
			MaxPixels:    images.DefaultMaxPixels,
		},
	}
}

// Load reads an optional YAML file over the defaults, then applies
// PHOTOCLOCK_* environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"PHOTOCLOCK_ORIGIN":      &c.Server.Origin,
		"PHOTOCLOCK_STATIC_DIR":  &c.Server.StaticDir,
		"PHOTOCLOCK_UPLOADS_DIR": &c.Server.UploadsDir,
		"PHOTOCLOCK_EXPORTS_DIR": &c.Server.ExportsDir,
		"PHOTOCLOCK_LEDGER":      &c.Server.LedgerPath,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PHOTOCLOCK_PORT":            &c.Server.Port,
		"PHOTOCLOCK_MIN_OUTPUT_SIZE": &c.Export.MinOutputSize,
		"PHOTOCLOCK_CACHE_SIZE":      &c.Assets.CacheSize,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"PHOTOCLOCK_PREVIEW_DELAY": &c.Preview.Delay,
		"PHOTOCLOCK_FETCH_TIMEOUT": &c.Assets.FetchTimeout,
	}
	for key, dst := range durations {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}

	if v, ok := os.LookupEnv("PHOTOCLOCK_PREVIEW_WIDTH"); ok {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid PHOTOCLOCK_PREVIEW_WIDTH: %w", err)
		}
		c.Preview.Width = w
	}
	return nil
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Server.Port))
	}
	if c.Server.UploadsDir == "" {
		errs = append(errs, errors.New("uploads directory is required"))
	}
	if c.Server.ExportsDir == "" {
		errs = append(errs, errors.New("exports directory is required"))
	}
	if c.Preview.Width < layout.MinPreviewWidth {
		errs = append(errs, fmt.Errorf("preview width %.0f below %.0f", c.Preview.Width, layout.MinPreviewWidth))
	}
	if c.Preview.Delay < 0 || c.Preview.SettleDelay < 0 {
		errs = append(errs, errors.New("preview delays must not be negative"))
	}
	if c.Preview.Scale <= 0 {
		errs = append(errs, errors.New("preview scale must be positive"))
	}
	if c.Export.MinOutputSize <= 0 {
		errs = append(errs, errors.New("minimum output size must be positive"))
	}
	if c.Assets.CacheSize < 0 || c.Assets.Concurrency < 0 || c.Assets.MaxBytes < 0 || c.Assets.MaxPixels < 0 {
		errs = append(errs, errors.New("asset limits must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ServerOrigin is the same-origin base used by the asset loader fallback.
func (c Config) ServerOrigin() string {
	if c.Server.Origin != "" {
		return c.Server.Origin
	}
	return fmt.Sprintf("http://localhost:%d", c.Server.Port)
}
