// Package usecase contains the search pipeline stages: variant generation,
// concurrent dispatch, ranking, and the orchestrator that wires them per
// request.
package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"thai-search-proxy/dictionary"
	"thai-search-proxy/domain"
	"thai-search-proxy/segment"
	"thai-search-proxy/tokenize"
)

// Weights configures variant weighting. Values come from environment
// configuration with the defaults below.
type Weights struct {
	Original      float64
	Tokenized     float64
	CompoundSplit float64
	FallbackChar  float64
}

// DefaultWeights returns the standard weighting.
func DefaultWeights() Weights {
	return Weights{Original: 1.0, Tokenized: 1.0, CompoundSplit: 0.7, FallbackChar: 0.4}
}

// tokenizedCompoundBoost scales the tokenized variant when the query contains
// a dictionary compound: the tokenized form is then the most trustworthy.
const tokenizedCompoundBoost = 1.2

// ProcessedQuery is the query processor output handed to the dispatcher.
type ProcessedQuery struct {
	Variants     []domain.QueryVariant
	Tokenization *domain.TokenizationResult
	HasCompound  bool
	// FallbackUsed is set when tokenization failed or timed out and only the
	// original variant could be produced.
	FallbackUsed bool
}

// ProcessQueryUsecase derives weighted query variants from a raw query.
// Variant generation is pure: only the snapshot pinned by tokenization is
// read, so all variants see one dictionary generation.
type ProcessQueryUsecase struct {
	tokenizer          *tokenize.Tokenizer
	weights            Weights
	maxVariants        int
	timeout            time.Duration
	minSplitConfidence float64
	logger             *slog.Logger
}

func NewProcessQueryUsecase(
	tokenizer *tokenize.Tokenizer,
	weights Weights,
	maxVariants int,
	timeout time.Duration,
	minSplitConfidence float64,
	logger *slog.Logger,
) *ProcessQueryUsecase {
	if maxVariants <= 0 {
		maxVariants = 5
	}
	return &ProcessQueryUsecase{
		tokenizer:          tokenizer,
		weights:            weights,
		maxVariants:        maxVariants,
		timeout:            timeout,
		minSplitConfidence: minSplitConfidence,
		logger:             logger,
	}
}

// Process expands query into 1..maxVariants deduplicated variants. The
// original variant always survives; if tokenization does not finish inside
// the budget the original is all the caller gets.
func (u *ProcessQueryUsecase) Process(ctx context.Context, query string) ProcessedQuery {
	query = strings.TrimSpace(query)

	out := ProcessedQuery{}
	original := domain.QueryVariant{Text: query, Kind: domain.VariantOriginal, Weight: u.weights.Original}

	tctx := ctx
	var cancel context.CancelFunc
	if u.timeout > 0 {
		tctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	res, snap, err := u.tokenizer.TokenizeWithSnapshot(tctx, query)
	if err != nil {
		u.logger.Warn("query tokenization failed, dispatching original only",
			"query", query,
			"err", err,
		)
		out.Variants = []domain.QueryVariant{original}
		out.FallbackUsed = true
		return out
	}

	out.Tokenization = &res
	out.HasCompound = res.HasCompound()

	candidates := []domain.QueryVariant{original}

	joined := strings.Join(res.WordTokens(), " ")
	if res.Engine == segment.EngineCharLevel {
		// The whole segmenter chain fell through; the char split is a last
		// recall attempt, not a trusted tokenization.
		candidates = append(candidates, domain.QueryVariant{
			Text:   joined,
			Kind:   domain.VariantFallbackChar,
			Weight: u.weights.FallbackChar,
		})
	} else if joined != query {
		weight := u.weights.Tokenized
		if out.HasCompound {
			weight *= tokenizedCompoundBoost
		}
		candidates = append(candidates, domain.QueryVariant{
			Text:   joined,
			Kind:   domain.VariantTokenized,
			Weight: weight,
		})
	}

	if out.HasCompound {
		if split, ok := u.compoundSplit(res, snap); ok {
			candidates = append(candidates, domain.QueryVariant{
				Text:   split,
				Kind:   domain.VariantCompoundSplit,
				Weight: u.weights.CompoundSplit,
			})
		}
	}

	out.Variants = dedupVariants(candidates, u.maxVariants)
	return out
}

// compoundSplit rebuilds the token list with each compound replaced by its
// components, looked up in the snapshot the tokens were matched against.
// Entries without components, or below the configured confidence, stay
// atomic; if nothing changes there is no variant to emit.
func (u *ProcessQueryUsecase) compoundSplit(res domain.TokenizationResult, snap *dictionary.Snapshot) (string, bool) {
	parts := make([]string, 0, len(res.Tokens))
	changed := false
	for i, token := range res.Tokens {
		if token == domain.SeparatorToken {
			continue
		}
		if res.IsCompound[i] {
			if entry, ok := snap.Lookup(token); ok && len(entry.Components) > 0 && entry.Confidence >= u.minSplitConfidence {
				parts = append(parts, entry.Components...)
				changed = true
				continue
			}
		}
		parts = append(parts, token)
	}
	if !changed {
		return "", false
	}
	return strings.Join(parts, " "), true
}

// dedupVariants removes exact text duplicates, keeping the earliest (highest
// priority) occurrence, then caps the list.
func dedupVariants(candidates []domain.QueryVariant, max int) []domain.QueryVariant {
	seen := make(map[string]bool, len(candidates))
	out := make([]domain.QueryVariant, 0, len(candidates))
	for _, v := range candidates {
		if v.Text == "" || seen[v.Text] {
			continue
		}
		seen[v.Text] = true
		out = append(out, v)
		if len(out) == max {
			break
		}
	}
	return out
}
