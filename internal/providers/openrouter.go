package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	OpenRouterName    = "openrouter"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"

	defaultOpenRouterModel = "mistralai/mistral-small-3.2-24b-instruct:free"
)

// OpenRouterConfig holds configuration for the OpenRouter client.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	// Referer and Title identify the calling app to OpenRouter.
	Referer string
	Title   string
	// Rate limiting
	RPS        float64       // Requests per second (0 = unlimited)
	MaxRetries int           // Retries on 429/5xx after the first attempt (default: 1, <0 disables)
	RetryDelay time.Duration // Base delay between retries (default: 500ms)
	HTTPClient *http.Client  // Optional (tests)
	Logger     *slog.Logger
}

// OpenRouterClient implements LLMClient using the OpenRouter API.
type OpenRouterClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	referer      string
	title        string
	client       *http.Client
	limiter      *rate.Limiter
	maxRetries   int
	retryDelay   time.Duration
	logger       *slog.Logger
}

// NewOpenRouterClient creates a new OpenRouter client.
func NewOpenRouterClient(cfg OpenRouterConfig) (*OpenRouterClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = defaultOpenRouterModel
	}
	if cfg.Referer == "" {
		cfg.Referer = "https://github.com/jackzampolin/leadscan"
	}
	if cfg.Title == "" {
		cfg.Title = "Lead Extraction App"
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = 1
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.HTTPClient == nil {
		// Per-call deadlines come from the caller's context.
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}

	return &OpenRouterClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		referer:      cfg.Referer,
		title:        cfg.Title,
		client:       cfg.HTTPClient,
		limiter:      limiter,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		logger:       cfg.Logger.With("provider", OpenRouterName),
	}, nil
}

// Name returns the client identifier.
func (c *OpenRouterClient) Name() string {
	return OpenRouterName
}

// Chat sends a chat completion request.
func (c *OpenRouterClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	orReq := openRouterRequest{
		Model:       model,
		Messages:    make([]openRouterMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		orReq.Messages = append(orReq.Messages, toOpenRouterMessage(m))
	}

	body, err := json.Marshal(orReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var attempts atomic.Int32
	orResp, err := retry.DoWithData(
		func() (*openRouterResponse, error) {
			attempts.Add(1)
			return c.doRequest(ctx, "/chat/completions", body)
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries+1)),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxDelay(10*time.Second),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("retrying chat request", "attempt", n+1, "request_id", requestID, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}

	if orResp.Choices == nil {
		return nil, fmt.Errorf("%w: missing choices (id=%s)", ErrMalformedResponse, orResp.ID)
	}
	if len(*orResp.Choices) == 0 {
		return nil, fmt.Errorf("%w (model=%s, id=%s)", ErrNoChoices, orResp.Model, orResp.ID)
	}

	content, err := contentString((*orResp.Choices)[0].Message.Content)
	if err != nil {
		return nil, err
	}

	return &ChatResult{
		Content:          content,
		PromptTokens:     orResp.Usage.PromptTokens,
		CompletionTokens: orResp.Usage.CompletionTokens,
		TotalTokens:      orResp.Usage.TotalTokens,
		ExecutionTime:    time.Since(start),
		Provider:         OpenRouterName,
		ModelUsed:        orResp.Model,
		RequestID:        requestID,
		Attempts:         int(attempts.Load()),
	}, nil
}

// doRequest makes a single HTTP request to OpenRouter.
func (c *OpenRouterClient) doRequest(ctx context.Context, path string, body []byte) (*openRouterResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("X-Title", c.title)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Provider:   OpenRouterName,
			StatusCode: resp.StatusCode,
			Body:       truncateBody(respBody),
		}
	}

	var orResp openRouterResponse
	if err := json.Unmarshal(respBody, &orResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if orResp.Error != nil {
		return nil, fmt.Errorf("OpenRouter API error (code %v): %s", orResp.Error.Code, orResp.Error.Message)
	}
	return &orResp, nil
}

// isRetryable limits retries to rate limiting and server errors.
func isRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	return false
}

func toOpenRouterMessage(m Message) openRouterMessage {
	if len(m.Images) == 0 {
		return openRouterMessage{Role: m.Role, Content: m.Content}
	}
	content := []openRouterContent{
		{Type: "text", Text: m.Content},
	}
	for _, img := range m.Images {
		content = append(content, openRouterContent{
			Type: "image_url",
			ImageURL: &openRouterImageURL{
				URL: ImageDataURL(img),
			},
		})
	}
	return openRouterMessage{Role: m.Role, Content: content}
}

// ImageDataURL encodes JPEG bytes as a data URL.
func ImageDataURL(img []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img)
}

// contentString flattens message content, which may be a string or an
// array of content parts.
func contentString(content any) (string, error) {
	switch c := content.(type) {
	case nil:
		return "", nil
	case string:
		return c, nil
	case []any:
		var buf bytes.Buffer
		for _, part := range c {
			if m, ok := part.(map[string]any); ok {
				if text, ok := m["text"].(string); ok {
					buf.WriteString(text)
				}
			}
		}
		return buf.String(), nil
	default:
		b, err := json.Marshal(c)
		if err != nil {
			return "", fmt.Errorf("failed to marshal content: %w", err)
		}
		return string(b), nil
	}
}

func truncateBody(b []byte) string {
	const max = 1 << 10
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "...(truncated)"
}

// Verify interface
var _ LLMClient = (*OpenRouterClient)(nil)
