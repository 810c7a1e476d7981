package signal

import "context"

// KeywordSuggester proposes one extra caption keyword not present in excluded.
// An empty result means the model found nothing specific.
type KeywordSuggester interface {
	SuggestKeyword(ctx context.Context, caption string, excluded []string) (string, error)
}
