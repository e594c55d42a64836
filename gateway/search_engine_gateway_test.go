package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thai-search-proxy/domain"
	"thai-search-proxy/driver"
)

type fakeDriver struct {
	result    driver.VariantResultDriver
	err       error
	lastQuery string
	lastLimit int64
}

func (f *fakeDriver) SearchQuery(_ context.Context, _, query string, limit, _ int64, _ []string, _ []string) (driver.VariantResultDriver, error) {
	f.lastQuery = query
	f.lastLimit = limit
	return f.result, f.err
}

func (f *fakeDriver) Health(context.Context) error { return f.err }

func TestSearchVariantAttachesKind(t *testing.T) {
	fd := &fakeDriver{result: driver.VariantResultDriver{
		Hits: []driver.HitDriver{
			{ID: "doc-1", Score: 0.9, Highlights: map[string]string{"title": "วากาเมะ"}},
			{ID: "", Score: 0.5},
			{ID: "doc-2", Score: 0.4},
		},
	}}
	g := NewSearchEngineGateway(fd)

	hits, err := g.SearchVariant(context.Background(), "articles",
		domain.QueryVariant{Text: "วากาเมะ", Kind: domain.VariantTokenized, Weight: 1.0},
		domain.SearchOptions{Limit: 10, Offset: 5})
	require.NoError(t, err)

	require.Len(t, hits, 2, "hits without a doc id are dropped")
	assert.Equal(t, domain.VariantTokenized, hits[0].VariantKind)
	assert.Equal(t, "doc-1", hits[0].DocID)
	assert.Equal(t, "วากาเมะ", fd.lastQuery)
	assert.Equal(t, int64(15), fd.lastLimit, "fetch window covers offset plus limit")
}

func TestSearchVariantKeepsErrorKind(t *testing.T) {
	fd := &fakeDriver{err: &domain.BackendError{Kind: domain.KindBackendTimeout, Op: "SearchQuery", Err: "deadline"}}
	g := NewSearchEngineGateway(fd)

	_, err := g.SearchVariant(context.Background(), "articles",
		domain.QueryVariant{Text: "x", Kind: domain.VariantOriginal}, domain.SearchOptions{Limit: 10})
	require.Error(t, err)
	assert.Equal(t, domain.KindBackendTimeout, domain.KindOf(err))
}
