package cascade

import (
	"sort"

	"github.com/kailas-cloud/jewelmatch/internal/domain/catalog"
)

// DefaultLimit is the number of items returned when no limit is configured.
const DefaultLimit = 10

// Selection is the output of the Combine stage.
type Selection struct {
	Items []catalog.Item
	// Source is the most specific stage that contributed at least one item.
	Source Stage
	// PoolSize is the size of Source's result pool before truncation.
	PoolSize int
	// Contributed counts the items taken from each contributing stage.
	Contributed map[Stage]int
}

// Backfill backfills up to limit items, taking from the most specific
// contributing pass first and then from less specific ones, skipping items
// already taken. Pool order is preserved. With no contributing pass the
// selection is empty and Source is Combine (reported as "None").
func Backfill(limit int, passes ...Pass) Selection {
	if limit <= 0 {
		limit = DefaultLimit
	}

	pools := make([]Pass, 0, len(passes))
	for _, p := range passes {
		if p.Contributes() {
			pools = append(pools, p)
		}
	}
	sort.SliceStable(pools, func(i, j int) bool { return pools[i].Stage > pools[j].Stage })

	sel := Selection{Source: Combine, Contributed: map[Stage]int{}}
	seen := make(map[string]struct{})

	for _, pool := range pools {
		for _, it := range pool.Items {
			if len(sel.Items) == limit {
				return sel
			}
			k := it.Key()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			sel.Items = append(sel.Items, it)
			if sel.Source == Combine {
				sel.Source = pool.Stage
				sel.PoolSize = len(catalog.Dedupe(pool.Items))
			}
			sel.Contributed[pool.Stage]++
		}
	}
	return sel
}

// Result is the response contract of a completed cascade.
type Result struct {
	Data       []catalog.Item
	TotalFound int
	SourcePass Label
	// TotalFoundByPrimarySource is the size of the source pass before truncation.
	TotalFoundByPrimarySource int
}

// Assemble formats a selection. Items are copied, never modified.
func Assemble(sel Selection) Result {
	data := make([]catalog.Item, len(sel.Items))
	copy(data, sel.Items)
	return Result{
		Data:                      data,
		TotalFound:                len(data),
		SourcePass:                sel.Source.Label(),
		TotalFoundByPrimarySource: sel.PoolSize,
	}
}
