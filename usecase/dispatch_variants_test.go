package usecase

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thai-search-proxy/domain"
	"thai-search-proxy/telemetry"
)

// fakeEngine returns canned hits or errors keyed by variant kind.
type fakeEngine struct {
	mu      sync.Mutex
	hits    map[domain.VariantKind][]domain.SearchHit
	errs    map[domain.VariantKind]error
	delay   map[domain.VariantKind]time.Duration
	calls   int
	healthy error
}

func (f *fakeEngine) SearchVariant(ctx context.Context, _ string, variant domain.QueryVariant, _ domain.SearchOptions) ([]domain.SearchHit, error) {
	f.mu.Lock()
	f.calls++
	delay := f.delay[variant.Kind]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, &domain.ProxyError{Kind: domain.KindBackendTimeout, Op: "SearchVariant", Err: ctx.Err()}
		}
	}
	if err := f.errs[variant.Kind]; err != nil {
		return nil, err
	}
	hits := make([]domain.SearchHit, len(f.hits[variant.Kind]))
	copy(hits, f.hits[variant.Kind])
	for i := range hits {
		hits[i].VariantKind = variant.Kind
	}
	return hits, nil
}

func (f *fakeEngine) Health(context.Context) error { return f.healthy }

func newDispatcher(engine *fakeEngine, poolSize, maxQueue int) *DispatchVariantsUsecase {
	return NewDispatchVariantsUsecase(engine, poolSize, maxQueue,
		500*time.Millisecond, 2*time.Second, telemetry.NewStats(), slog.Default())
}

func someVariants() []domain.QueryVariant {
	return []domain.QueryVariant{
		{Text: "วากาเมะ", Kind: domain.VariantOriginal, Weight: 1.0},
		{Text: "วา กา เมะ", Kind: domain.VariantCompoundSplit, Weight: 0.7},
		{Text: "วากาเมะ ดี", Kind: domain.VariantTokenized, Weight: 1.2},
	}
}

func TestDispatchAllSucceed(t *testing.T) {
	engine := &fakeEngine{hits: map[domain.VariantKind][]domain.SearchHit{
		domain.VariantOriginal:      {{DocID: "a", RawScore: 1}},
		domain.VariantCompoundSplit: {{DocID: "b", RawScore: 1}},
		domain.VariantTokenized:     {{DocID: "c", RawScore: 1}},
	}}
	d := newDispatcher(engine, 4, 8)

	out := d.Dispatch(context.Background(), "articles", someVariants(), domain.SearchOptions{Limit: 10})
	assert.Len(t, out.Results, 3)
	assert.Empty(t, out.Failures)
	assert.False(t, out.AllFailed())
}

func TestDispatchPartialFailure(t *testing.T) {
	engine := &fakeEngine{
		hits: map[domain.VariantKind][]domain.SearchHit{
			domain.VariantOriginal:  {{DocID: "a", RawScore: 1}},
			domain.VariantTokenized: {{DocID: "c", RawScore: 1}},
		},
		errs: map[domain.VariantKind]error{
			domain.VariantCompoundSplit: &domain.BackendError{Kind: domain.KindBackendTimeout, Op: "SearchQuery", Err: "deadline"},
		},
	}
	d := newDispatcher(engine, 4, 8)

	out := d.Dispatch(context.Background(), "articles", someVariants(), domain.SearchOptions{Limit: 10})
	assert.Len(t, out.Results, 2)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, domain.VariantCompoundSplit, out.Failures[0].Kind)
	assert.Equal(t, domain.KindBackendTimeout, out.Failures[0].Error)
	assert.False(t, out.AllFailed())
}

func TestDispatchAllFail(t *testing.T) {
	engine := &fakeEngine{errs: map[domain.VariantKind]error{
		domain.VariantOriginal:      &domain.BackendError{Kind: domain.KindBackendUnavailable, Op: "SearchQuery", Err: "refused"},
		domain.VariantCompoundSplit: &domain.BackendError{Kind: domain.KindBackendUnavailable, Op: "SearchQuery", Err: "refused"},
		domain.VariantTokenized:     &domain.BackendError{Kind: domain.KindBackendUnavailable, Op: "SearchQuery", Err: "refused"},
	}}
	d := newDispatcher(engine, 4, 8)

	out := d.Dispatch(context.Background(), "articles", someVariants(), domain.SearchOptions{Limit: 10})
	assert.True(t, out.AllFailed())
	assert.Len(t, out.Failures, 3)
	assert.False(t, out.AllBackpressure())
}

func TestDispatchBackpressureRejectsExcess(t *testing.T) {
	// pool of one, queue of zero, slow backend: only the first admitted
	// variant can run, later ones are rejected at admission
	engine := &fakeEngine{
		hits:  map[domain.VariantKind][]domain.SearchHit{domain.VariantOriginal: {{DocID: "a", RawScore: 1}}},
		delay: map[domain.VariantKind]time.Duration{domain.VariantOriginal: 50 * time.Millisecond},
	}
	d := NewDispatchVariantsUsecase(engine, 1, 0,
		time.Second, 2*time.Second, telemetry.NewStats(), slog.Default())

	variants := []domain.QueryVariant{
		{Text: "q1", Kind: domain.VariantOriginal, Weight: 1.0},
		{Text: "q2", Kind: domain.VariantOriginal, Weight: 1.0},
		{Text: "q3", Kind: domain.VariantOriginal, Weight: 1.0},
	}
	out := d.Dispatch(context.Background(), "articles", variants, domain.SearchOptions{Limit: 10})

	assert.Len(t, out.Results, 1)
	require.Len(t, out.Failures, 2)
	for _, f := range out.Failures {
		assert.Equal(t, domain.KindBackpressure, f.Error)
	}
}

func TestDispatchVariantTimeout(t *testing.T) {
	engine := &fakeEngine{
		hits:  map[domain.VariantKind][]domain.SearchHit{domain.VariantOriginal: {{DocID: "a", RawScore: 1}}},
		delay: map[domain.VariantKind]time.Duration{domain.VariantOriginal: 200 * time.Millisecond},
	}
	d := NewDispatchVariantsUsecase(engine, 4, 8,
		20*time.Millisecond, time.Second, telemetry.NewStats(), slog.Default())

	out := d.Dispatch(context.Background(), "articles",
		[]domain.QueryVariant{{Text: "q", Kind: domain.VariantOriginal, Weight: 1.0}},
		domain.SearchOptions{Limit: 10})

	assert.True(t, out.AllFailed())
	require.Len(t, out.Failures, 1)
	assert.Equal(t, domain.KindBackendTimeout, out.Failures[0].Error)
}
