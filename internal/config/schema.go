package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds leadscan configuration.
// Stored at: ~/.leadscan/config.yaml
type Config struct {
	Remote   RemoteCfg `mapstructure:"remote" yaml:"remote" json:"remote"`
	Local    LocalCfg  `mapstructure:"local" yaml:"local" json:"local"`
	Raster   RasterCfg `mapstructure:"raster" yaml:"raster" json:"raster"`
	Image    ImageCfg  `mapstructure:"image" yaml:"image" json:"image"`
	Server   ServerCfg `mapstructure:"server" yaml:"server" json:"server"`
	LogLevel string    `mapstructure:"log_level" yaml:"log_level" json:"log_level"` // debug, info, warn, error
}

// RemoteCfg configures the hosted model tier.
type RemoteCfg struct {
	Provider   string  `mapstructure:"provider" yaml:"provider" json:"provider"`          // "openrouter" or "openai"
	APIKey     string  `mapstructure:"api_key" yaml:"api_key" json:"api_key"`             // supports ${ENV_VAR} syntax; empty disables the tier
	BaseURL    string  `mapstructure:"base_url" yaml:"base_url" json:"base_url"`          // provider default when empty
	Model      string  `mapstructure:"model" yaml:"model" json:"model"`                   // provider default when empty
	Timeout    string  `mapstructure:"timeout" yaml:"timeout" json:"timeout"`             // per model call, e.g. "30s"
	MaxRetries int     `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries"` // retries on 429/5xx, <0 disables
	RateLimit  float64 `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`    // requests per second, 0 = unlimited
}

// LocalCfg configures the OCR + heuristics tier.
type LocalCfg struct {
	OCRLanguage       string `mapstructure:"ocr_language" yaml:"ocr_language" json:"ocr_language"`                   // tesseract languages, "+" separated
	ParallelThreshold int    `mapstructure:"parallel_threshold" yaml:"parallel_threshold" json:"parallel_threshold"` // pages above this skip the remote tier
	Workers           int    `mapstructure:"workers" yaml:"workers" json:"workers"`
}

// RasterCfg configures PDF rendering.
type RasterCfg struct {
	Scale    float64 `mapstructure:"scale" yaml:"scale" json:"scale"`          // multiple of 72 dpi
	PDFToPPM string  `mapstructure:"pdftoppm" yaml:"pdftoppm" json:"pdftoppm"` // binary name or path
}

// ImageCfg configures image preparation for the remote tier.
type ImageCfg struct {
	MaxSide     int `mapstructure:"max_side" yaml:"max_side" json:"max_side"`
	JPEGQuality int `mapstructure:"jpeg_quality" yaml:"jpeg_quality" json:"jpeg_quality"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host           string   `mapstructure:"host" yaml:"host" json:"host"`
	Port           string   `mapstructure:"port" yaml:"port" json:"port"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes" json:"max_upload_bytes"`
	CORSOrigins    []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Remote: RemoteCfg{
			Provider:   "openrouter",
			APIKey:     "${OPENROUTER_API_KEY}",
			Model:      "mistralai/mistral-small-3.2-24b-instruct:free",
			Timeout:    "30s",
			MaxRetries: 1,
		},
		Local: LocalCfg{
			OCRLanguage:       "eng",
			ParallelThreshold: 5,
			Workers:           4,
		},
		Raster: RasterCfg{
			Scale:    3.0,
			PDFToPPM: "pdftoppm",
		},
		Image: ImageCfg{
			MaxSide:     1024,
			JPEGQuality: 85,
		},
		Server: ServerCfg{
			Host:           "127.0.0.1",
			Port:           "8000",
			MaxUploadBytes: 10 << 20,
			CORSOrigins:    []string{"*"},
		},
		LogLevel: "info",
	}
}

// CallTimeout parses Timeout, falling back to 30s.
func (r RemoteCfg) CallTimeout() time.Duration {
	d, err := time.ParseDuration(r.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Languages splits OCRLanguage into tesseract language codes.
func (l LocalCfg) Languages() []string {
	var out []string
	for _, s := range strings.FieldsFunc(l.OCRLanguage, func(r rune) bool { return r == '+' || r == ',' }) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Remote.Provider {
	case "", "openrouter", "openai":
	default:
		return fmt.Errorf("remote.provider: unknown provider %q", c.Remote.Provider)
	}
	if c.Remote.Timeout != "" {
		if d, err := time.ParseDuration(c.Remote.Timeout); err != nil || d <= 0 {
			return fmt.Errorf("remote.timeout: invalid duration %q", c.Remote.Timeout)
		}
	}
	if c.Remote.RateLimit < 0 {
		return fmt.Errorf("remote.rate_limit: must not be negative")
	}
	if c.Local.Workers < 0 {
		return fmt.Errorf("local.workers: must not be negative")
	}
	if c.Raster.Scale < 0 {
		return fmt.Errorf("raster.scale: must not be negative")
	}
	if q := c.Image.JPEGQuality; q < 0 || q > 100 {
		return fmt.Errorf("image.jpeg_quality: %d not in 0-100", q)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level: unknown level %q", c.LogLevel)
	}
	return nil
}
