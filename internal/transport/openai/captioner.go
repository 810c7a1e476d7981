package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jewelmatch/internal/domain"
)

// Caption downloads the image and asks the vision model to describe it.
// Model failures and empty answers are retried with a fixed backoff; a bad
// image is not.
func (c *Client) Caption(ctx context.Context, imageURL string) (string, error) {
	dataURL, err := c.images.dataURL(ctx, imageURL)
	if err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model: c.captionModel,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: captionPrompt},
				{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailAuto},
				},
			},
		}},
		MaxTokens:   150,
		Temperature: 0.1,
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 && c.backoff > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("caption retry: %w", errors.Join(ctx.Err(), lastErr))
			case <-time.After(c.backoff):
			}
		}

		caption, err := c.complete(ctx, stageCaption, req)
		if err == nil && caption != "" {
			return caption, nil
		}
		if err == nil {
			err = fmt.Errorf("empty caption: %w", domain.ErrModelError)
		}
		lastErr = err

		fields := []zap.Field{
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.attempts),
			zap.String("model", c.captionModel),
			zap.Error(err),
		}
		if errors.Is(err, domain.ErrRateLimited) {
			c.logger.Warn("Caption rate limited", fields...)
		} else {
			c.logger.Warn("Caption attempt failed", fields...)
		}
	}

	return "", fmt.Errorf("caption failed after %d attempts: %w", c.attempts, lastErr)
}
