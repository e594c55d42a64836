package domain

// VariantKind identifies how a query variant was derived.
type VariantKind string

const (
	VariantOriginal      VariantKind = "original"
	VariantTokenized     VariantKind = "tokenized"
	VariantCompoundSplit VariantKind = "compound_split"
	VariantFallbackChar  VariantKind = "fallback_char"
)

// QueryVariant is one query string derived from the raw input, dispatched to
// the backend alongside its siblings and weighted during ranking.
type QueryVariant struct {
	Text          string            `json:"text"`
	Kind          VariantKind       `json:"kind"`
	Weight        float64           `json:"weight"`
	EngineOptions map[string]string `json:"engine_options,omitempty"`
}
