package driver

// HitDriver is one backend document as returned by the search engine, before
// the gateway converts it to a domain hit.
type HitDriver struct {
	ID         string
	Score      float64
	Highlights map[string]string
	Payload    map[string]any
}

// VariantResultDriver pairs the hits of one query with the backend's total
// estimate.
type VariantResultDriver struct {
	Hits          []HitDriver
	EstimatedHits int64
}
