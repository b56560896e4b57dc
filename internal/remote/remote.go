// Package remote extracts leads from a page image with a hosted
// vision/language model in two calls: image to text, then text to JSON.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/leadscan/internal/lead"
	"github.com/jackzampolin/leadscan/internal/providers"
)

// DefaultTimeout bounds each model call.
const DefaultTimeout = 30 * time.Second

var (
	// ErrUnavailable means no remote client could be constructed.
	ErrUnavailable = errors.New("remote extraction unavailable")

	// ErrTimeout means a model call exceeded its deadline.
	ErrTimeout = errors.New("remote extraction timed out")

	// ErrService covers non-2xx responses, malformed envelopes and empty choices.
	ErrService = errors.New("remote extraction service error")
)

// ImageEncoder prepares a page image for transmission.
type ImageEncoder interface {
	ForTransmission(path string) ([]byte, error)
}

// Config configures a Client.
type Config struct {
	Model   string        // overrides the provider's default model
	Timeout time.Duration // per call (default: 30s)
	Encoder ImageEncoder
	Logger  *slog.Logger
}

// Client runs the two-stage remote extraction.
type Client struct {
	llm     providers.LLMClient
	model   string
	timeout time.Duration
	encoder ImageEncoder
	schema  *jsonschema.Schema
	logger  *slog.Logger
}

// New creates a Client over llm. It returns ErrUnavailable when llm is nil.
func New(llm providers.LLMClient, cfg Config) (*Client, error) {
	if llm == nil {
		return nil, ErrUnavailable
	}
	if cfg.Encoder == nil {
		return nil, fmt.Errorf("remote: image encoder is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	schema, err := compileLeadSchema()
	if err != nil {
		return nil, err
	}

	return &Client{
		llm:     llm,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		encoder: cfg.Encoder,
		schema:  schema,
		logger:  cfg.Logger.With("component", "remote", "provider", llm.Name()),
	}, nil
}

// Provider returns the name of the underlying LLM client.
func (c *Client) Provider() string {
	return c.llm.Name()
}

// ExtractPage returns the leads the model finds on page. An unparsable
// structuring response yields no leads and no error.
func (c *Client) ExtractPage(ctx context.Context, page lead.Page) ([]lead.Lead, error) {
	img, err := c.encoder.ForTransmission(page.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to prepare image: %w", ErrService, err)
	}

	text, err := c.call(ctx, providers.Message{
		Role:    "user",
		Content: describePrompt,
		Images:  [][]byte{img},
	})
	if err != nil {
		return nil, err
	}

	content, err := c.call(ctx, providers.Message{
		Role:    "user",
		Content: structurePrompt(text),
	})
	if err != nil {
		return nil, err
	}

	leads, skipped, err := parseLeads(c.schema, content)
	if err != nil {
		c.logger.Warn("could not parse leads from response", "page", page.Index, "error", err, "content", truncate(content, 512))
		return []lead.Lead{}, nil
	}
	for _, s := range skipped {
		c.logger.Warn("skipping non-object lead", "page", page.Index, "item", s.Index, "error", s.Err)
	}

	c.logger.Debug("remote extraction complete", "page", page.Index, "leads", len(leads))
	return leads, nil
}

// Ping sends a minimal text prompt to verify the service answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, providers.Message{Role: "user", Content: "Hello"})
	return err
}

// call runs one chat completion under its own deadline and classifies failures.
func (c *Client) call(ctx context.Context, msg providers.Message) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	result, err := c.llm.Chat(callCtx, &providers.ChatRequest{
		Model:    c.model,
		Messages: []providers.Message{msg},
	})
	if err != nil {
		return "", classify(ctx, callCtx, err)
	}
	c.logger.Debug("model call complete",
		"elapsed_ms", time.Since(start).Milliseconds(),
		"model", result.ModelUsed,
		"tokens", result.TotalTokens,
		"request_id", result.RequestID,
	)
	return result.Content, nil
}

// classify maps a provider error to ErrTimeout or ErrService. Cancellation
// of the parent context is returned as-is so callers can stop.
func classify(parent, callCtx context.Context, err error) error {
	if perr := parent.Err(); perr != nil {
		return perr
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrService, err)
}

// IsFallback reports whether err should send a page to local extraction.
func IsFallback(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrService)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
