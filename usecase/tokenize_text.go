package usecase

import (
	"context"
	"time"
	"unicode/utf8"

	"thai-search-proxy/dictionary"
	"thai-search-proxy/domain"
	"thai-search-proxy/telemetry"
	"thai-search-proxy/tokenize"
	otelmetrics "thai-search-proxy/utils/otel"
)

// CompoundAnnotation describes one compound span with its dictionary entry.
type CompoundAnnotation struct {
	Surface    string      `json:"surface"`
	Span       domain.Span `json:"span"`
	Category   string      `json:"category"`
	Components []string    `json:"components,omitempty"`
	Confidence float64     `json:"confidence"`
}

// TokenizeTextUsecase serves the tokenize endpoints, used by index-time
// pipelines and for debugging dictionary behaviour.
type TokenizeTextUsecase struct {
	tokenizer *tokenize.Tokenizer
	stats     *telemetry.Stats
}

func NewTokenizeTextUsecase(tokenizer *tokenize.Tokenizer, stats *telemetry.Stats) *TokenizeTextUsecase {
	return &TokenizeTextUsecase{tokenizer: tokenizer, stats: stats}
}

// Execute tokenizes text after validating the length constraint.
func (u *TokenizeTextUsecase) Execute(ctx context.Context, text string) (domain.TokenizationResult, error) {
	res, _, err := u.execute(ctx, text)
	return res, err
}

func (u *TokenizeTextUsecase) execute(ctx context.Context, text string) (domain.TokenizationResult, *dictionary.Snapshot, error) {
	n := utf8.RuneCountInString(text)
	if n < 1 || n > MaxQueryCodePoints {
		return domain.TokenizationResult{}, nil, domain.NewProxyError(
			domain.KindInvalidInput, "Tokenize", "text must be 1 to %d code points", MaxQueryCodePoints)
	}

	start := time.Now()
	res, snap, err := u.tokenizer.TokenizeWithSnapshot(ctx, text)
	elapsed := time.Since(start)
	u.stats.ObserveStage(telemetry.StageTokenize, elapsed)
	if otelmetrics.Metrics != nil {
		otelmetrics.Metrics.TokenizeDuration.Record(ctx, elapsed.Seconds())
	}
	return res, snap, err
}

// ExecuteWithCompounds tokenizes and annotates every compound span with its
// dictionary entry, read from the snapshot the tokens were matched against.
func (u *TokenizeTextUsecase) ExecuteWithCompounds(ctx context.Context, text string) (domain.TokenizationResult, []CompoundAnnotation, error) {
	res, snap, err := u.execute(ctx, text)
	if err != nil {
		return domain.TokenizationResult{}, nil, err
	}

	annotations := make([]CompoundAnnotation, 0)
	for i, compound := range res.IsCompound {
		if !compound {
			continue
		}
		ann := CompoundAnnotation{Surface: res.Tokens[i], Span: res.Spans[i]}
		if entry, ok := snap.Lookup(res.Tokens[i]); ok {
			ann.Category = entry.Category
			ann.Components = entry.Components
			ann.Confidence = entry.Confidence
		}
		annotations = append(annotations, ann)
	}
	return res, annotations, nil
}
