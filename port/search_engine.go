package port

import (
	"context"

	"thai-search-proxy/domain"
)

// SearchEngine is the outbound port to the search backend. One call searches
// one query variant; the dispatcher fans variants out concurrently.
type SearchEngine interface {
	SearchVariant(ctx context.Context, index string, variant domain.QueryVariant, opts domain.SearchOptions) ([]domain.SearchHit, error)
	Health(ctx context.Context) error
}
