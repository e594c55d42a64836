package gateway

import (
	"context"

	"thai-search-proxy/domain"
	"thai-search-proxy/driver"
)

// SearchDriver is the slice of the Meilisearch driver the gateway consumes.
type SearchDriver interface {
	SearchQuery(ctx context.Context, indexName, query string, limit, offset int64, filters []string, sort []string) (driver.VariantResultDriver, error)
	Health(ctx context.Context) error
}

// SearchEngineGateway adapts the backend driver to the search engine port,
// attaching the originating variant kind to every hit.
type SearchEngineGateway struct {
	driver SearchDriver
}

func NewSearchEngineGateway(driver SearchDriver) *SearchEngineGateway {
	return &SearchEngineGateway{driver: driver}
}

func (g *SearchEngineGateway) SearchVariant(ctx context.Context, index string, variant domain.QueryVariant, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	// every variant fetches from offset 0; pagination happens after ranking
	fetch := int64(opts.Limit + opts.Offset)
	if fetch <= 0 {
		fetch = 20
	}

	result, err := g.driver.SearchQuery(ctx, index, variant.Text, fetch, 0, opts.Filters, opts.Sort)
	if err != nil {
		// keep the classified kind intact for the orchestrator
		return nil, &domain.ProxyError{
			Kind: domain.KindOf(err),
			Op:   "SearchVariant",
			Err:  err,
		}
	}

	hits := make([]domain.SearchHit, 0, len(result.Hits))
	for _, h := range result.Hits {
		if h.ID == "" {
			continue
		}
		hits = append(hits, domain.SearchHit{
			DocID:       h.ID,
			RawScore:    h.Score,
			VariantKind: variant.Kind,
			Highlights:  h.Highlights,
			Payload:     h.Payload,
		})
	}
	return hits, nil
}

func (g *SearchEngineGateway) Health(ctx context.Context) error {
	if err := g.driver.Health(ctx); err != nil {
		return &domain.ProxyError{Kind: domain.KindOf(err), Op: "Health", Err: err}
	}
	return nil
}
