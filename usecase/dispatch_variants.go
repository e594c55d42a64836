package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"thai-search-proxy/domain"
	"thai-search-proxy/port"
	"thai-search-proxy/telemetry"
	otelmetrics "thai-search-proxy/utils/otel"
)

// VariantResult is the outcome of one variant search.
type VariantResult struct {
	Variant domain.QueryVariant
	Hits    []domain.SearchHit
}

// DispatchResult collates per-variant successes and failures. Partial failure
// is normal operation, not an error.
type DispatchResult struct {
	Results  []VariantResult
	Failures []domain.VariantFailure
}

// AllFailed reports whether no variant produced a result set.
func (d *DispatchResult) AllFailed() bool { return len(d.Results) == 0 }

// AllBackpressure reports whether every failure was an admission rejection.
func (d *DispatchResult) AllBackpressure() bool {
	if len(d.Failures) == 0 {
		return false
	}
	for _, f := range d.Failures {
		if f.Error != domain.KindBackpressure {
			return false
		}
	}
	return d.AllFailed()
}

// DispatchVariantsUsecase fans query variants out to the backend over a
// bounded pool. Admission control counts in-flight variants across all
// requests: poolSize run concurrently, up to maxQueue wait, the rest are
// rejected with BACKPRESSURE.
type DispatchVariantsUsecase struct {
	engine   port.SearchEngine
	sem      *semaphore.Weighted
	inflight atomic.Int64

	poolSize       int64
	maxQueue       int64
	variantTimeout time.Duration
	searchTimeout  time.Duration

	stats  *telemetry.Stats
	logger *slog.Logger
}

func NewDispatchVariantsUsecase(
	engine port.SearchEngine,
	poolSize, maxQueue int,
	variantTimeout, searchTimeout time.Duration,
	stats *telemetry.Stats,
	logger *slog.Logger,
) *DispatchVariantsUsecase {
	if poolSize <= 0 {
		poolSize = 10
	}
	if maxQueue < 0 {
		maxQueue = 0
	}
	return &DispatchVariantsUsecase{
		engine:         engine,
		sem:            semaphore.NewWeighted(int64(poolSize)),
		poolSize:       int64(poolSize),
		maxQueue:       int64(maxQueue),
		variantTimeout: variantTimeout,
		searchTimeout:  searchTimeout,
		stats:          stats,
		logger:         logger,
	}
}

// Dispatch runs all variants concurrently against index and collects whatever
// finishes inside the global search budget.
func (u *DispatchVariantsUsecase) Dispatch(ctx context.Context, index string, variants []domain.QueryVariant, opts domain.SearchOptions) DispatchResult {
	gctx := ctx
	var cancel context.CancelFunc
	if u.searchTimeout > 0 {
		gctx, cancel = context.WithTimeout(ctx, u.searchTimeout)
		defer cancel()
	}

	type outcome struct {
		variant domain.QueryVariant
		hits    []domain.SearchHit
		err     error
	}
	results := make(chan outcome, len(variants))

	var wg sync.WaitGroup
	var out DispatchResult

	for _, variant := range variants {
		// admission check before spawning: a saturated pool with a full
		// queue rejects immediately instead of piling up goroutines
		if u.inflight.Add(1) > u.poolSize+u.maxQueue {
			u.inflight.Add(-1)
			u.logger.Warn("variant rejected by backpressure",
				"kind", variant.Kind,
				"text", variant.Text,
			)
			if otelmetrics.Metrics != nil {
				otelmetrics.Metrics.BackpressureRejections.Add(ctx, 1)
			}
			out.Failures = append(out.Failures, domain.VariantFailure{
				Kind:    variant.Kind,
				Text:    variant.Text,
				Error:   domain.KindBackpressure,
				Message: "dispatch queue full",
			})
			continue
		}

		wg.Add(1)
		go func(variant domain.QueryVariant) {
			defer wg.Done()
			defer u.inflight.Add(-1)

			if err := u.sem.Acquire(gctx, 1); err != nil {
				results <- outcome{variant: variant, err: &domain.ProxyError{
					Kind: domain.KindBackendTimeout,
					Op:   "Dispatch",
					Err:  err,
				}}
				return
			}
			defer u.sem.Release(1)

			vctx := gctx
			var vcancel context.CancelFunc
			if u.variantTimeout > 0 {
				vctx, vcancel = context.WithTimeout(gctx, u.variantTimeout)
				defer vcancel()
			}

			hits, err := u.engine.SearchVariant(vctx, index, variant, opts)
			results <- outcome{variant: variant, hits: hits, err: err}
		}(variant)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for oc := range results {
		u.stats.CountVariant(string(oc.variant.Kind))
		if otelmetrics.Metrics != nil {
			otelmetrics.Metrics.VariantsDispatched.Add(ctx, 1)
		}
		if oc.err != nil {
			u.stats.CountBackend(false)
			if otelmetrics.Metrics != nil {
				otelmetrics.Metrics.BackendErrors.Add(ctx, 1)
			}
			out.Failures = append(out.Failures, domain.VariantFailure{
				Kind:    oc.variant.Kind,
				Text:    oc.variant.Text,
				Error:   failureKind(oc.err),
				Message: oc.err.Error(),
			})
			u.logger.Warn("variant search failed",
				"kind", oc.variant.Kind,
				"error_kind", failureKind(oc.err),
				"err", oc.err,
			)
			continue
		}
		u.stats.CountBackend(true)
		out.Results = append(out.Results, VariantResult{Variant: oc.variant, Hits: oc.hits})
	}

	return out
}

func failureKind(err error) domain.ErrorKind {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal && errors.Is(err, context.DeadlineExceeded) {
		return domain.KindBackendTimeout
	}
	return kind
}
