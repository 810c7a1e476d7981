package match

import (
	"context"

	"github.com/kailas-cloud/jewelmatch/internal/domain/catalog"
	"github.com/kailas-cloud/jewelmatch/internal/domain/jewelry"
	domsignal "github.com/kailas-cloud/jewelmatch/internal/domain/signal"
	"github.com/kailas-cloud/jewelmatch/internal/usecase/signal"
)

// Captioner describes the image at imageURL in free text.
type Captioner interface {
	Caption(ctx context.Context, imageURL string) (string, error)
}

// QueryExtractor turns a caption into a structured query.
type QueryExtractor interface {
	Extract(ctx context.Context, caption string) (jewelry.Query, error)
}

// CatalogSearcher pages through the product catalog for one criteria set.
// It may return partial results together with an error.
type CatalogSearcher interface {
	Search(ctx context.Context, criteria catalog.Criteria) ([]catalog.Item, error)
}

// SignalExtractor picks the Pass 3 refinement term.
type SignalExtractor interface {
	Extract(ctx context.Context, in signal.Input) domsignal.Signal
}
