package domain

// SearchHit is a single backend document returned for one variant.
type SearchHit struct {
	DocID       string            `json:"doc_id"`
	RawScore    float64           `json:"raw_score"`
	VariantKind VariantKind       `json:"variant_kind"`
	Highlights  map[string]string `json:"highlights,omitempty"`
	Payload     map[string]any    `json:"payload,omitempty"`
}

// RankedHit is a deduplicated hit with its final score and the set of
// variants that produced it.
type RankedHit struct {
	SearchHit
	FinalScore float64       `json:"final_score"`
	Variants   []VariantKind `json:"variants"`
}

// RankedResult is the ranker output: deduplicated hits ordered by final
// score, plus the total hit count before pagination.
type RankedResult struct {
	Hits      []RankedHit `json:"hits"`
	TotalHits int         `json:"total_hits"`
}

// SearchOptions are pagination and backend options shared by all variants of
// one request.
type SearchOptions struct {
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
	Filters []string `json:"filters,omitempty"`
	Sort    []string `json:"sort,omitempty"`
}

// VariantFailure records a variant that did not produce results.
type VariantFailure struct {
	Kind    VariantKind `json:"variant_kind"`
	Text    string      `json:"text"`
	Error   ErrorKind   `json:"error"`
	Message string      `json:"message"`
}
