package domain

// SeparatorToken replaces runs of whitespace in tokenizer output. The ranker
// treats it as inert; clients strip it when reassembling text.
const SeparatorToken = "␠"

// Span is a [Start, End) code-point range into the normalised input.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// TokenizationResult is the output of the compound-aware tokenizer.
// Tokens, Spans and IsCompound are parallel lists.
type TokenizationResult struct {
	Original   string   `json:"original"`
	Tokens     []string `json:"tokens"`
	Spans      []Span   `json:"spans"`
	IsCompound []bool   `json:"is_compound"`
	Engine     string   `json:"engine"`
	ElapsedMS  float64  `json:"elapsed_ms"`
}

// HasCompound reports whether any token was resolved via the compound trie.
func (r *TokenizationResult) HasCompound() bool {
	for _, c := range r.IsCompound {
		if c {
			return true
		}
	}
	return false
}

// CompoundTokens returns the surfaces of all compound tokens, in order.
func (r *TokenizationResult) CompoundTokens() []string {
	var out []string
	for i, c := range r.IsCompound {
		if c {
			out = append(out, r.Tokens[i])
		}
	}
	return out
}

// WordTokens returns all tokens except whitespace separators, in order.
func (r *TokenizationResult) WordTokens() []string {
	out := make([]string, 0, len(r.Tokens))
	for _, t := range r.Tokens {
		if t != SeparatorToken {
			out = append(out, t)
		}
	}
	return out
}
