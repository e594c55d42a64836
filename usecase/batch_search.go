package usecase

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"thai-search-proxy/domain"
)

// batchConcurrency bounds how many member searches run at once so one batch
// cannot monopolise the dispatch pool.
const batchConcurrency = 4

// MaxBatchQueries caps the batch size.
const MaxBatchQueries = 20

// BatchSearchRequest runs the same search options over several queries.
type BatchSearchRequest struct {
	Queries   []string
	IndexName string
	Limit     int
	Offset    int
	Filters   []string
	Sort      []string
}

// BatchSearchItem is the outcome for one query, parallel to the input list.
type BatchSearchItem struct {
	Query    string            `json:"query"`
	Response *SearchResponse   `json:"response,omitempty"`
	Error    *domain.ErrorKind `json:"error,omitempty"`
	Message  string            `json:"message,omitempty"`
}

// BatchSearchUsecase fans a list of queries through the search orchestrator.
// Individual query failures are reported inline; the batch itself only fails
// on invalid input.
type BatchSearchUsecase struct {
	proxy  *SearchProxyUsecase
	logger *slog.Logger
}

func NewBatchSearchUsecase(proxy *SearchProxyUsecase, logger *slog.Logger) *BatchSearchUsecase {
	return &BatchSearchUsecase{proxy: proxy, logger: logger}
}

func (u *BatchSearchUsecase) Execute(ctx context.Context, req BatchSearchRequest) ([]BatchSearchItem, error) {
	if len(req.Queries) == 0 {
		return nil, domain.NewProxyError(domain.KindInvalidInput, "BatchSearch", "queries must not be empty")
	}
	if len(req.Queries) > MaxBatchQueries {
		return nil, domain.NewProxyError(domain.KindInvalidInput, "BatchSearch", "at most %d queries per batch", MaxBatchQueries)
	}

	items := make([]BatchSearchItem, len(req.Queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, query := range req.Queries {
		g.Go(func() error {
			resp, err := u.proxy.Search(gctx, SearchRequest{
				Query:     query,
				IndexName: req.IndexName,
				Limit:     req.Limit,
				Offset:    req.Offset,
				Filters:   req.Filters,
				Sort:      req.Sort,
			})
			item := BatchSearchItem{Query: query}
			if err != nil {
				kind := domain.KindOf(err)
				item.Error = &kind
				item.Message = err.Error()
			} else {
				item.Response = resp
			}
			items[i] = item
			// member failures never abort the batch
			return nil
		})
	}
	_ = g.Wait()

	return items, nil
}
