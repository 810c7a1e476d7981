package openai

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// maxKeywordWords rejects answers where the model explained instead of naming a keyword.
const maxKeywordWords = 3

// SuggestKeyword asks a small model for one caption feature not in excluded.
// It returns "" when the model has no suggestion.
func (c *Client) SuggestKeyword(ctx context.Context, caption string, excluded []string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.keywordModel,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: buildKeywordPrompt(caption, excluded),
		}},
		MaxTokens:   20,
		Temperature: 0.1,
		Stop:        []string{"\n"},
	}

	raw, err := c.complete(ctx, stageKeyword, req)
	if err != nil {
		return "", err
	}

	kw := strings.ToLower(strings.Trim(raw, " \t\"'`.,;:!"))
	if len(strings.Fields(kw)) > maxKeywordWords {
		return "", nil
	}
	return kw, nil
}
