package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thai-search-proxy/dictionary"
	"thai-search-proxy/domain"
	"thai-search-proxy/segment"
	"thai-search-proxy/telemetry"
	"thai-search-proxy/tokenize"
	"thai-search-proxy/usecase"
	"thai-search-proxy/utils"
)

type stubEngine struct {
	hits map[domain.VariantKind][]domain.SearchHit
	errs map[domain.VariantKind]error
}

func (s *stubEngine) SearchVariant(_ context.Context, _ string, variant domain.QueryVariant, _ domain.SearchOptions) ([]domain.SearchHit, error) {
	if err := s.errs[variant.Kind]; err != nil {
		return nil, err
	}
	hits := make([]domain.SearchHit, len(s.hits[variant.Kind]))
	copy(hits, s.hits[variant.Kind])
	for i := range hits {
		hits[i].VariantKind = variant.Kind
	}
	return hits, nil
}

func (s *stubEngine) Health(context.Context) error { return nil }

const testDict = `{
	"entries": [
		{"surface": "วากาเมะ", "components": ["วา", "กา", "เมะ"], "category": "thai_japanese", "confidence": 0.9}
	]
}`

func newTestServer(t *testing.T, engine *stubEngine) *echo.Echo {
	t.Helper()
	log := slog.Default()

	path := filepath.Join(t.TempDir(), "compounds.json")
	require.NoError(t, os.WriteFile(path, []byte(testDict), 0o644))
	store := dictionary.NewStore(path, log)
	require.NoError(t, store.Load(context.Background()))

	chain, err := segment.FromConfig(log, time.Second, segment.DefaultLexicon(),
		segment.EngineLongest, []string{segment.EngineMaximal, segment.EngineCluster})
	require.NoError(t, err)
	tok, err := tokenize.New(store, chain, 64, log)
	require.NoError(t, err)

	stats := telemetry.NewStats()
	process := usecase.NewProcessQueryUsecase(tok, usecase.DefaultWeights(), 5, 20*time.Millisecond, 0.5, log)
	dispatch := usecase.NewDispatchVariantsUsecase(engine, 4, 8, time.Second, 2*time.Second, stats, log)
	search := usecase.NewSearchProxyUsecase(process, dispatch, usecase.NewRankResultsUsecase(),
		utils.NewQuerySanitizer(nil), 5*time.Second, stats, log)
	batch := usecase.NewBatchSearchUsecase(search, log)
	tokenizeUC := usecase.NewTokenizeTextUsecase(tok, stats)
	compounds := usecase.NewManageCompoundsUsecase(store, log)

	prober := usecase.NewBackendProber(engine, time.Minute, log)
	health := usecase.NewHealthUsecase(store, tok, prober, stats)

	e := echo.New()
	NewHandler(search, batch, tokenizeUC, compounds, health).Register(e)
	return e
}

func doJSON(e *echo.Echo, method, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSearchEndpoint(t *testing.T) {
	engine := &stubEngine{hits: map[domain.VariantKind][]domain.SearchHit{
		domain.VariantOriginal:      {{DocID: "X", RawScore: 0.9}},
		domain.VariantTokenized:     {{DocID: "X", RawScore: 0.95}},
		domain.VariantCompoundSplit: {{DocID: "Y", RawScore: 0.95}},
	}}
	e := newTestServer(t, engine)

	rec := doJSON(e, http.MethodPost, "/api/v1/search",
		`{"query": "ฉันกินสาหร่ายวากาเมะ", "index_name": "articles", "include_tokenization_info": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp usecase.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Hits)
	assert.Equal(t, "X", resp.Hits[0].DocID)
	assert.False(t, resp.FallbackUsed)
	assert.NotNil(t, resp.Tokenization)
}

func TestSearchEndpointTokenizationFlagAlias(t *testing.T) {
	engine := &stubEngine{hits: map[domain.VariantKind][]domain.SearchHit{
		domain.VariantOriginal: {{DocID: "X", RawScore: 0.9}},
	}}
	e := newTestServer(t, engine)

	rec := doJSON(e, http.MethodPost, "/api/v1/search",
		`{"query": "วากาเมะ", "index_name": "articles", "include_tokenization": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp usecase.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Tokenization, "legacy flag name must still enable tokenization info")
}

func TestSearchEndpointRejectsEmptyQuery(t *testing.T) {
	e := newTestServer(t, &stubEngine{})

	rec := doJSON(e, http.MethodPost, "/api/v1/search", `{"query": "", "index_name": "articles"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(domain.KindInvalidInput), resp["error"])
}

func TestSearchEndpointAllVariantsFailed(t *testing.T) {
	refused := &domain.BackendError{Kind: domain.KindBackendUnavailable, Op: "SearchQuery", Err: "refused"}
	engine := &stubEngine{errs: map[domain.VariantKind]error{
		domain.VariantOriginal:      refused,
		domain.VariantTokenized:     refused,
		domain.VariantCompoundSplit: refused,
	}}
	e := newTestServer(t, engine)

	rec := doJSON(e, http.MethodPost, "/api/v1/search", `{"query": "วากาเมะ", "index_name": "articles"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(domain.KindBackendAllFailed), resp["error"])
}

func TestBatchSearchEndpoint(t *testing.T) {
	engine := &stubEngine{hits: map[domain.VariantKind][]domain.SearchHit{
		domain.VariantOriginal: {{DocID: "X", RawScore: 1}},
	}}
	e := newTestServer(t, engine)

	rec := doJSON(e, http.MethodPost, "/api/v1/batch-search",
		`{"queries": ["hello", ""], "index_name": "articles"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Results []usecase.BatchSearchItem `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.NotNil(t, resp.Results[0].Response)
	assert.NotNil(t, resp.Results[1].Error)
}

func TestTokenizeEndpoint(t *testing.T) {
	e := newTestServer(t, &stubEngine{})

	rec := doJSON(e, http.MethodPost, "/api/v1/tokenize", `{"text": "กินวากาเมะ"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res domain.TokenizationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Contains(t, res.Tokens, "วากาเมะ")
}

func TestTokenizeCompoundEndpoint(t *testing.T) {
	e := newTestServer(t, &stubEngine{})

	rec := doJSON(e, http.MethodPost, "/api/v1/tokenize/compound", `{"text": "กินวากาเมะ"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Tokens    []string `json:"tokens"`
		Compounds []struct {
			Surface    string   `json:"surface"`
			Components []string `json:"components"`
		} `json:"compounds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Compounds, 1)
	assert.Equal(t, "วากาเมะ", res.Compounds[0].Surface)
	assert.Equal(t, []string{"วา", "กา", "เมะ"}, res.Compounds[0].Components)
}

func TestCompoundsCRUD(t *testing.T) {
	e := newTestServer(t, &stubEngine{})

	// add
	rec := doJSON(e, http.MethodPost, "/api/v1/compounds",
		`{"surface": "ซูชิ", "components": ["ซู", "ชิ"], "category": "thai_japanese", "confidence": 0.9}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// duplicate add conflicts
	rec = doJSON(e, http.MethodPost, "/api/v1/compounds",
		`{"surface": "ซูชิ", "category": "thai_japanese", "confidence": 0.9}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// list filtered by category
	rec = doJSON(e, http.MethodGet, "/api/v1/compounds?category=thai_japanese", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Entries []domain.CompoundEntry `json:"entries"`
		Total   int                    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	surfaces := make([]string, 0, len(list.Entries))
	for _, entry := range list.Entries {
		surfaces = append(surfaces, entry.Surface)
	}
	assert.Contains(t, surfaces, "ซูชิ")

	// update
	rec = doJSON(e, http.MethodPut, "/api/v1/compounds/ซูชิ",
		`{"surface": "ซูชิ", "components": ["ซู", "ชิ"], "category": "thai_japanese", "confidence": 0.95}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// update unknown surface
	rec = doJSON(e, http.MethodPut, "/api/v1/compounds/ไม่มีจริง",
		`{"surface": "ไม่มีจริง", "category": "thai_japanese", "confidence": 0.5}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// remove
	rec = doJSON(e, http.MethodDelete, "/api/v1/compounds/ซูชิ", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(e, http.MethodDelete, "/api/v1/compounds/ซูชิ", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddCompoundRejectsInvalidEntry(t *testing.T) {
	e := newTestServer(t, &stubEngine{})

	rec := doJSON(e, http.MethodPost, "/api/v1/compounds",
		`{"surface": "abc", "category": "thai_english", "confidence": 0.9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthDetailedEndpoint(t *testing.T) {
	e := newTestServer(t, &stubEngine{})

	rec := doJSON(e, http.MethodGet, "/health/detailed", "")
	// the backend prober has not run, so the report is unhealthy but complete
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var detailed usecase.DetailedHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detailed))
	assert.True(t, detailed.Segmenter)
	assert.False(t, detailed.Backend)
	assert.Positive(t, detailed.Dictionary.Entries)
}
