package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/jackzampolin/leadscan/internal/providers"
)

// EnvPrefix prefixes environment overrides, e.g. LEADSCAN_REMOTE_API_KEY.
const EnvPrefix = "LEADSCAN"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v         *viper.Viper
	logger    *slog.Logger
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
// An empty cfgFile searches ./config.yaml then ~/.leadscan/config.yaml.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		logger:    slog.Default(),
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	v := cm.v
	d := DefaultConfig()

	// Defaults are set per leaf so env overrides reach Unmarshal.
	v.SetDefault("remote.provider", d.Remote.Provider)
	v.SetDefault("remote.api_key", d.Remote.APIKey)
	v.SetDefault("remote.base_url", d.Remote.BaseURL)
	v.SetDefault("remote.model", d.Remote.Model)
	v.SetDefault("remote.timeout", d.Remote.Timeout)
	v.SetDefault("remote.max_retries", d.Remote.MaxRetries)
	v.SetDefault("remote.rate_limit", d.Remote.RateLimit)
	v.SetDefault("local.ocr_language", d.Local.OCRLanguage)
	v.SetDefault("local.parallel_threshold", d.Local.ParallelThreshold)
	v.SetDefault("local.workers", d.Local.Workers)
	v.SetDefault("raster.scale", d.Raster.Scale)
	v.SetDefault("raster.pdftoppm", d.Raster.PDFToPPM)
	v.SetDefault("image.max_side", d.Image.MaxSide)
	v.SetDefault("image.jpeg_quality", d.Image.JPEGQuality)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("log_level", d.LogLevel)

	// Environment variables with LEADSCAN_ prefix
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.leadscan")
	}

	// Try to read config file (not required)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a validated Config.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// SetLogger sets the logger used for reload diagnostics.
func (cm *Manager) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.logger = logger.With("component", "config")
}

// ConfigFile returns the file in use, or "" when running on defaults.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. An invalid file
// keeps the previous configuration.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		_ = cm.reload(e.Name)
	})
	cm.v.WatchConfig()
}

// Reload re-reads the config file and applies it. An invalid file keeps
// the previous configuration and returns the error.
func (cm *Manager) Reload() error {
	source := cm.v.ConfigFileUsed()
	if source != "" {
		if err := cm.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return cm.reload(source)
}

func (cm *Manager) reload(source string) error {
	cfg, err := cm.load()

	cm.mu.Lock()
	logger := cm.logger
	if err != nil {
		cm.mu.Unlock()
		logger.Warn("config reload rejected", "file", source, "error", err)
		return err
	}
	cm.config = cfg
	callbacks := make([]func(*Config), len(cm.callbacks))
	copy(callbacks, cm.callbacks)
	cm.mu.Unlock()

	logger.Info("config reloaded", "file", source)
	for _, fn := range callbacks {
		fn(cfg)
	}
	return nil
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envRef.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// ProviderConfig converts the remote settings into a providers.Config,
// resolving ${ENV_VAR} references in the API key.
func (c *Config) ProviderConfig(logger *slog.Logger) providers.Config {
	return providers.Config{
		Type:       c.Remote.Provider,
		APIKey:     ResolveEnvVars(c.Remote.APIKey),
		BaseURL:    c.Remote.BaseURL,
		Model:      c.Remote.Model,
		MaxRetries: c.Remote.MaxRetries,
		RateLimit:  c.Remote.RateLimit,
		Logger:     logger,
	}
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# leadscan configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export OPENROUTER_API_KEY=xxx
# Any key can be overridden with LEADSCAN_<SECTION>_<KEY>, e.g. LEADSCAN_REMOTE_MODEL

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
