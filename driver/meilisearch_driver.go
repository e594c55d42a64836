package driver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/meilisearch/meilisearch-go"

	"thai-search-proxy/domain"
)

// MeilisearchDriver executes variant searches against Meilisearch. One
// driver serves all indexes; the index manager is resolved per call.
type MeilisearchDriver struct {
	client meilisearch.ServiceManager
}

func NewMeilisearchDriver(client meilisearch.ServiceManager) *MeilisearchDriver {
	return &MeilisearchDriver{client: client}
}

// Control characters as highlight markers: they never occur in document
// text, so stripping them is unambiguous.
const (
	highlightPre  = "\x01"
	highlightPost = "\x02"
)

// SearchQuery runs one query string with ranking scores and highlights
// enabled. Errors are classified so upper layers can act on the kind.
func (d *MeilisearchDriver) SearchQuery(ctx context.Context, indexName, query string, limit, offset int64, filters []string, sort []string) (VariantResultDriver, error) {
	req := &meilisearch.SearchRequest{
		Query:                 query,
		Limit:                 limit,
		Offset:                offset,
		ShowRankingScore:      true,
		AttributesToHighlight: []string{"*"},
		HighlightPreTag:       highlightPre,
		HighlightPostTag:      highlightPost,
	}
	if len(filters) > 0 {
		req.Filter = buildFilter(filters)
	}
	if len(sort) > 0 {
		req.Sort = sort
	}

	index := d.client.Index(indexName)
	result, err := index.SearchWithContext(ctx, query, req)
	if err != nil {
		return VariantResultDriver{}, classify("SearchQuery", err)
	}

	out := VariantResultDriver{
		Hits:          make([]HitDriver, 0, len(result.Hits)),
		EstimatedHits: result.EstimatedTotalHits,
	}
	for _, hit := range result.Hits {
		out.Hits = append(out.Hits, HitDriver{
			ID:         stringField(hit, "id"),
			Score:      floatField(hit, "_rankingScore"),
			Highlights: extractHighlights(hit),
			Payload:    payloadOf(hit),
		})
	}
	return out, nil
}

// Health pings the backend.
func (d *MeilisearchDriver) Health(ctx context.Context) error {
	if _, err := d.client.HealthWithContext(ctx); err != nil {
		return classify("Health", err)
	}
	return nil
}

// classify maps transport and API errors onto the backend error kinds the
// orchestrator distinguishes.
func classify(op string, err error) error {
	kind := domain.KindBackendUnavailable
	status := 0

	if errors.Is(err, context.DeadlineExceeded) {
		kind = domain.KindBackendTimeout
	} else {
		var apiErr *meilisearch.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
			status = apiErr.StatusCode
			switch {
			case status >= 500:
				kind = domain.KindBackend5xx
			case status >= 400:
				kind = domain.KindBackend4xx
			}
		}
	}

	return &domain.BackendError{Kind: kind, Op: op, Status: status, Err: err.Error()}
}

// buildFilter joins already-sanitised filter expressions with AND.
func buildFilter(filters []string) string {
	return strings.Join(filters, " AND ")
}

// Hits arrive as maps of raw JSON per field; each accessor decodes only the
// field it needs.

// stringField decodes key as a string. Numeric document ids are rendered in
// their literal form.
func stringField(hit map[string]json.RawMessage, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func floatField(hit map[string]json.RawMessage, key string) float64 {
	raw, ok := hit[key]
	if !ok {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}
	return f
}

// extractHighlights pulls the _formatted fields that actually contain a
// highlight marker and strips the markers.
func extractHighlights(hit map[string]json.RawMessage) map[string]string {
	raw, ok := hit["_formatted"]
	if !ok {
		return nil
	}
	var formatted map[string]json.RawMessage
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return nil
	}
	var out map[string]string
	for field, fv := range formatted {
		var s string
		if err := json.Unmarshal(fv, &s); err != nil || !strings.Contains(s, highlightPre) {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[field] = stripTags(s)
	}
	return out
}

func stripTags(s string) string {
	s = strings.ReplaceAll(s, highlightPre, "")
	return strings.ReplaceAll(s, highlightPost, "")
}

// payloadOf decodes the document fields, dropping Meilisearch's internal keys.
func payloadOf(hit map[string]json.RawMessage) map[string]any {
	payload := make(map[string]any, len(hit))
	for k, raw := range hit {
		if strings.HasPrefix(k, "_") {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		payload[k] = v
	}
	return payload
}
