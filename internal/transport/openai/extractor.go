package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jewelmatch/internal/domain"
	"github.com/kailas-cloud/jewelmatch/internal/domain/jewelry"
)

// extractionAttempts bounds model calls when the answer is not valid JSON.
const extractionAttempts = 2

var (
	validate = validator.New()
	fenceRe  = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
)

// extraction is the JSON object the model is asked for.
type extraction struct {
	JewelryType string     `json:"jewelry_type" validate:"max=32"`
	Material    string     `json:"material" validate:"max=64"`
	Design      string     `json:"design" validate:"max=64"`
	Categories  stringList `json:"categories" validate:"dive,max=64"`
}

// stringList accepts a JSON array of strings or a single string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return fmt.Errorf("categories: expected string or list: %w", err)
	}
	if one != "" {
		*l = strings.Split(one, ",")
	}
	return nil
}

// Extract turns a caption into a structured query using strict JSON output.
func (c *Client) Extract(ctx context.Context, caption string) (jewelry.Query, error) {
	req := openai.ChatCompletionRequest{
		Model: c.extractionModel,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: buildExtractionPrompt(caption),
		}},
		MaxTokens:   200,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	var lastErr error
	for attempt := 1; attempt <= extractionAttempts; attempt++ {
		raw, err := c.complete(ctx, stageExtract, req)
		if err != nil {
			return jewelry.Query{}, err
		}

		ex, err := parseExtraction(raw)
		if err != nil {
			lastErr = err
			c.logger.Warn("Unparseable extraction response",
				zap.Int("attempt", attempt),
				zap.String("response", raw),
				zap.Error(err),
			)
			continue
		}

		q, err := jewelry.NewQuery(ex.JewelryType, ex.Material, ex.Design, ex.Categories, c.defaultMaterial)
		if err != nil {
			return jewelry.Query{}, fmt.Errorf("build query: %w: %w", domain.ErrMalformedJSON, err)
		}
		return q, nil
	}

	return jewelry.Query{}, lastErr
}

// parseExtraction decodes model output, tolerating markdown fences, prose
// around the object and unquoted keys.
func parseExtraction(raw string) (extraction, error) {
	text := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	var ex extraction
	err := json.Unmarshal([]byte(text), &ex)
	if err != nil {
		start, end := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}')
		if start < 0 || end <= start {
			return extraction{}, fmt.Errorf("%w: no JSON object in response", domain.ErrMalformedJSON)
		}
		text = repairJSON(text[start : end+1])
		ex = extraction{}
		if err = json.Unmarshal([]byte(text), &ex); err != nil {
			return extraction{}, fmt.Errorf("%w: %w", domain.ErrMalformedJSON, err)
		}
	}

	if err := validate.Struct(ex); err != nil {
		return extraction{}, fmt.Errorf("%w: %w", domain.ErrMalformedJSON, err)
	}
	return ex, nil
}
