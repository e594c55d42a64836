package usecase

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"thai-search-proxy/domain"
	"thai-search-proxy/telemetry"
	"thai-search-proxy/utils"
	otelmetrics "thai-search-proxy/utils/otel"
)

// Request constraints.
const (
	MaxQueryCodePoints = 10000
	MaxLimit           = 100
	DefaultLimit       = 20
)

// SearchRequest is one proxied search.
type SearchRequest struct {
	Query               string
	IndexName           string
	Limit               int
	Offset              int
	Filters             []string
	Sort                []string
	IncludeTokenization bool
}

// SearchResponse carries the ranked hits plus the diagnostics block.
type SearchResponse struct {
	Hits         []domain.RankedHit         `json:"hits"`
	TotalHits    int                        `json:"total_hits"`
	Query        string                     `json:"query"`
	Variants     []domain.QueryVariant      `json:"variants"`
	Failures     []domain.VariantFailure    `json:"failures,omitempty"`
	FallbackUsed bool                       `json:"fallback_used"`
	Tokenization *domain.TokenizationResult `json:"tokenization,omitempty"`
	ElapsedMS    float64                    `json:"elapsed_ms"`
}

// SearchProxyUsecase is the per-request orchestrator: it validates, produces
// variants, fans them out, ranks, and maps total failure to one structured
// error. It alone decides what the client sees on partial failure.
type SearchProxyUsecase struct {
	process   *ProcessQueryUsecase
	dispatch  *DispatchVariantsUsecase
	rank      *RankResultsUsecase
	sanitizer *utils.QuerySanitizer

	requestDeadline time.Duration
	stats           *telemetry.Stats
	logger          *slog.Logger
}

func NewSearchProxyUsecase(
	process *ProcessQueryUsecase,
	dispatch *DispatchVariantsUsecase,
	rank *RankResultsUsecase,
	sanitizer *utils.QuerySanitizer,
	requestDeadline time.Duration,
	stats *telemetry.Stats,
	logger *slog.Logger,
) *SearchProxyUsecase {
	return &SearchProxyUsecase{
		process:         process,
		dispatch:        dispatch,
		rank:            rank,
		sanitizer:       sanitizer,
		requestDeadline: requestDeadline,
		stats:           stats,
		logger:          logger,
	}
}

// Search runs the full pipeline under the request deadline.
func (u *SearchProxyUsecase) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	start := time.Now()

	query, err := u.validate(ctx, &req)
	if err != nil {
		return nil, err
	}

	rctx := ctx
	var cancel context.CancelFunc
	if u.requestDeadline > 0 {
		rctx, cancel = context.WithTimeout(ctx, u.requestDeadline)
		defer cancel()
	}

	stageStart := time.Now()
	processed := u.process.Process(rctx, query)
	u.stats.ObserveStage(telemetry.StageProcessQuery, time.Since(stageStart))

	stageStart = time.Now()
	dispatched := u.dispatch.Dispatch(rctx, req.IndexName, processed.Variants, domain.SearchOptions{
		Limit:   req.Limit,
		Offset:  req.Offset,
		Filters: req.Filters,
		Sort:    req.Sort,
	})
	u.stats.ObserveStage(telemetry.StageDispatch, time.Since(stageStart))

	if dispatched.AllFailed() {
		kind := domain.KindBackendAllFailed
		switch {
		case dispatched.AllBackpressure():
			kind = domain.KindBackpressure
		case rctx.Err() != nil:
			kind = domain.KindDeadlineExceeded
		}
		u.logger.Error("all variants failed",
			"query", query,
			"index", req.IndexName,
			"failures", len(dispatched.Failures),
		)
		return nil, &domain.ProxyError{
			Kind:    kind,
			Op:      "Search",
			Message: "no variant produced results",
			Details: map[string]any{"failures": dispatched.Failures},
		}
	}

	stageStart = time.Now()
	ranked := u.rank.Rank(dispatched.Results, query, processed.HasCompound, req.Limit, req.Offset)
	u.stats.ObserveStage(telemetry.StageRank, time.Since(stageStart))

	elapsed := time.Since(start)
	u.stats.ObserveStage(telemetry.StageTotal, elapsed)
	if otelmetrics.Metrics != nil {
		otelmetrics.Metrics.SearchesTotal.Add(ctx, 1)
		otelmetrics.Metrics.SearchDuration.Record(ctx, elapsed.Seconds())
	}

	resp := &SearchResponse{
		Hits:         ranked.Hits,
		TotalHits:    ranked.TotalHits,
		Query:        query,
		Variants:     processed.Variants,
		Failures:     dispatched.Failures,
		FallbackUsed: processed.FallbackUsed || len(dispatched.Failures) > 0,
		ElapsedMS:    float64(elapsed.Microseconds()) / 1000.0,
	}
	if req.IncludeTokenization {
		resp.Tokenization = processed.Tokenization
	}

	u.logger.Info("search completed",
		"query", query,
		"index", req.IndexName,
		"variants", len(processed.Variants),
		"failures", len(dispatched.Failures),
		"hits", len(resp.Hits),
		"duration_ms", elapsed.Milliseconds(),
	)
	return resp, nil
}

func (u *SearchProxyUsecase) validate(ctx context.Context, req *SearchRequest) (string, error) {
	if req.IndexName == "" {
		return "", domain.NewProxyError(domain.KindInvalidInput, "Search", "index_name is required")
	}
	if err := u.sanitizer.ValidateQuery(ctx, req.Query); err != nil {
		return "", &domain.ProxyError{Kind: domain.KindInvalidInput, Op: "Search", Err: err}
	}
	query, err := u.sanitizer.SanitizeQuery(ctx, req.Query)
	if err != nil {
		return "", &domain.ProxyError{Kind: domain.KindInvalidInput, Op: "Search", Err: err}
	}
	n := utf8.RuneCountInString(query)
	if n < 1 || n > MaxQueryCodePoints {
		return "", domain.NewProxyError(domain.KindInvalidInput, "Search", "query must be 1 to %d code points", MaxQueryCodePoints)
	}
	if req.Limit == 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit < 1 || req.Limit > MaxLimit {
		return "", domain.NewProxyError(domain.KindInvalidInput, "Search", "limit must be 1 to %d", MaxLimit)
	}
	if req.Offset < 0 {
		return "", domain.NewProxyError(domain.KindInvalidInput, "Search", "offset must not be negative")
	}
	return query, nil
}
