// Package openai talks to an OpenAI-compatible chat completion API (OpenAI,
// Groq, vLLM) for image captioning, structured query extraction and
// fallback keyword suggestion.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jewelmatch/internal/domain"
	"github.com/kailas-cloud/jewelmatch/internal/metrics"
)

// Metric stage labels.
const (
	stageCaption = "caption"
	stageExtract = "extract"
	stageKeyword = "keyword"
)

// Config holds the model provider settings.
type Config struct {
	APIKey          string
	BaseURL         string
	CaptionModel    string
	ExtractionModel string
	KeywordModel    string
	// Timeout bounds each model call.
	Timeout         time.Duration
	CaptionAttempts int
	CaptionBackoff  time.Duration
	ImageTimeout    time.Duration
	MaxImageBytes   int64
	DefaultMaterial string
	// ImageClient downloads images; defaults to a client with ImageTimeout.
	ImageClient *http.Client
	Logger      *zap.Logger
}

// Client implements the captioner, query extractor and keyword suggester.
type Client struct {
	api             *openai.Client
	captionModel    string
	extractionModel string
	keywordModel    string
	timeout         time.Duration
	attempts        int
	backoff         time.Duration
	images          *imageFetcher
	defaultMaterial string
	logger          *zap.Logger
}

// NewClient creates an OpenAI-compatible model client.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	attempts := cfg.CaptionAttempts
	if attempts <= 0 {
		attempts = 1
	}
	imgClient := cfg.ImageClient
	if imgClient == nil {
		imgClient = &http.Client{Timeout: cfg.ImageTimeout}
	}

	return &Client{
		api:             openai.NewClientWithConfig(clientCfg),
		captionModel:    cfg.CaptionModel,
		extractionModel: cfg.ExtractionModel,
		keywordModel:    cfg.KeywordModel,
		timeout:         cfg.Timeout,
		attempts:        attempts,
		backoff:         cfg.CaptionBackoff,
		images:          &imageFetcher{client: imgClient, maxBytes: cfg.MaxImageBytes},
		defaultMaterial: cfg.DefaultMaterial,
		logger:          log,
	}
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// complete runs one chat completion and returns the trimmed content of the
// first choice. Transport metrics are recorded here.
func (c *Client) complete(ctx context.Context, stage string, req openai.ChatCompletionRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		err = parseAPIError(err)
		metrics.LLMRequestsTotal.WithLabelValues(stage, req.Model, errorStatus(err)).Inc()
		return "", err
	}

	metrics.LLMRequestDuration.WithLabelValues(stage, req.Model).Observe(duration.Seconds())

	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(stage, req.Model, "empty_response").Inc()
		return "", fmt.Errorf("no choices in %s response: %w", stage, domain.ErrModelError)
	}

	metrics.LLMRequestsTotal.WithLabelValues(stage, req.Model, "success").Inc()
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// parseAPIError classifies a provider failure as rate limited, timed out or
// a generic model error, keeping a human-readable detail.
func parseAPIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("model request timed out: %w", domain.ErrTimeout)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("model API error %d: %s: %w",
			reqErr.HTTPStatusCode, detail, classify(reqErr.HTTPStatusCode, detail))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("model API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, classify(apiErr.HTTPStatusCode, apiErr.Message))
	}

	return fmt.Errorf("model request failed: %v: %w", err, classify(0, err.Error()))
}

func classify(status int, msg string) error {
	if status == http.StatusTooManyRequests || strings.Contains(strings.ToLower(msg), "rate limit") {
		return domain.ErrRateLimited
	}
	return domain.ErrModelError
}

func errorStatus(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
