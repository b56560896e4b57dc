package providers

import (
	"fmt"
	"log/slog"
	"time"
)

// Config selects and configures an LLMClient.
type Config struct {
	Type       string // "openrouter" (default) or "openai"
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	RateLimit  float64 // Requests per second (openrouter only)
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// New builds the client named by cfg.Type. It returns ErrNoAPIKey when no
// credential is configured.
func New(cfg Config) (LLMClient, error) {
	switch cfg.Type {
	case "", OpenRouterName:
		c, err := NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			RPS:          cfg.RateLimit,
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   cfg.RetryDelay,
			Logger:       cfg.Logger,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case OpenAIName:
		c, err := NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			MaxRetries:   cfg.MaxRetries,
			Logger:       cfg.Logger,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}
