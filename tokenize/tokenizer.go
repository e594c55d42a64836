// Package tokenize implements the compound-aware Thai tokenizer. Dictionary
// compounds are matched first against the pinned trie snapshot; the residue
// is handed to the segmenter fallback chain.
package tokenize

import (
	"context"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/unicode/norm"

	"thai-search-proxy/dictionary"
	"thai-search-proxy/domain"
	"thai-search-proxy/segment"
)

// cacheKey includes the dictionary generation so a reload invalidates every
// cached tokenization without an explicit flush.
type cacheKey struct {
	generation uint64
	text       string
}

type cacheValue struct {
	tokens     []string
	spans      []domain.Span
	isCompound []bool
	engine     string
}

// Tokenizer combines the dictionary trie pre-scan with the segmenter chain.
// Safe for concurrent use.
type Tokenizer struct {
	store  *dictionary.Store
	chain  *segment.Chain
	cache  *lru.Cache[cacheKey, cacheValue]
	logger *slog.Logger
}

// New builds a tokenizer. cacheSize <= 0 disables the result cache.
func New(store *dictionary.Store, chain *segment.Chain, cacheSize int, logger *slog.Logger) (*Tokenizer, error) {
	t := &Tokenizer{store: store, chain: chain, logger: logger}
	if cacheSize > 0 {
		cache, err := lru.New[cacheKey, cacheValue](cacheSize)
		if err != nil {
			return nil, err
		}
		t.cache = cache
	}
	return t, nil
}

// Tokenize splits text into dictionary compounds, segmented words, separator
// tokens for whitespace runs, and untouched non-Thai runs. The concatenation
// of all spans covers the normalised input exactly.
func (t *Tokenizer) Tokenize(ctx context.Context, text string) (domain.TokenizationResult, error) {
	res, _, err := t.TokenizeWithSnapshot(ctx, text)
	return res, err
}

// TokenizeWithSnapshot also returns the dictionary snapshot the compounds were
// matched against. Callers that look tokens back up must use this snapshot, so
// a concurrent reload cannot strand a token flagged as compound.
func (t *Tokenizer) TokenizeWithSnapshot(ctx context.Context, text string) (domain.TokenizationResult, *dictionary.Snapshot, error) {
	start := time.Now()

	snap := t.store.Snapshot()

	normalized := norm.NFC.String(text)
	result := domain.TokenizationResult{Original: normalized}
	if normalized == "" {
		result.Engine = t.chain.Primary()
		result.ElapsedMS = elapsedMS(start)
		return result, snap, nil
	}

	key := cacheKey{generation: snap.Generation, text: normalized}
	if t.cache != nil {
		if v, ok := t.cache.Get(key); ok {
			result.Tokens = v.tokens
			result.Spans = v.spans
			result.IsCompound = v.isCompound
			result.Engine = v.engine
			result.ElapsedMS = elapsedMS(start)
			return result, snap, nil
		}
	}

	runes := []rune(normalized)

	// engine reporting tracks the deepest fallback any residue needed
	engineName := t.chain.Primary()
	engineDepth := -1

	emit := func(token string, span domain.Span, compound bool) {
		result.Tokens = append(result.Tokens, token)
		result.Spans = append(result.Spans, span)
		result.IsCompound = append(result.IsCompound, compound)
	}

	segmentThai := func(rs, re int) error {
		spans, name, depth, err := t.chain.Segment(ctx, runes[rs:re])
		if err != nil {
			return &domain.ProxyError{Kind: domain.KindSegmenterFailed, Op: "Tokenize", Err: err}
		}
		if depth > engineDepth {
			engineDepth = depth
			engineName = name
		}
		for _, sp := range spans {
			emit(string(runes[rs+sp.Start:rs+sp.End]), domain.Span{Start: rs + sp.Start, End: rs + sp.End}, false)
		}
		return nil
	}

	// flushResidue emits runes[rs:re): Thai stretches go through the segmenter
	// chain whole so it sees full words, non-Thai stretches pass untouched.
	flushResidue := func(rs, re int) error {
		for s := rs; s < re; {
			e := s
			if domain.IsThaiRune(runes[s]) {
				for e < re && domain.IsThaiRune(runes[e]) {
					e++
				}
				if err := segmentThai(s, e); err != nil {
					return err
				}
			} else {
				for e < re && !domain.IsThaiRune(runes[e]) {
					e++
				}
				emit(string(runes[s:e]), domain.Span{Start: s, End: e}, false)
			}
			s = e
		}
		return nil
	}

	// Trie matches are attempted at every token boundary, not only inside
	// Thai runs, so mixed-script dictionary surfaces match too.
	rs := 0
	for i := 0; i < len(runes); {
		if segment.IsSpaceRune(runes[i]) {
			if err := flushResidue(rs, i); err != nil {
				return domain.TokenizationResult{}, snap, err
			}
			j := i + 1
			for j < len(runes) && segment.IsSpaceRune(runes[j]) {
				j++
			}
			emit(domain.SeparatorToken, domain.Span{Start: i, End: j}, false)
			i, rs = j, j
			continue
		}
		if m, ok := snap.Trie.LongestMatch(runes, i); ok {
			if err := flushResidue(rs, i); err != nil {
				return domain.TokenizationResult{}, snap, err
			}
			emit(m.Surface, domain.Span{Start: i, End: i + m.Length}, true)
			i += m.Length
			rs = i
			continue
		}
		if domain.IsThaiRune(runes[i]) {
			i = segment.ClusterEnd(runes, i)
		} else {
			i++
		}
	}
	if err := flushResidue(rs, len(runes)); err != nil {
		return domain.TokenizationResult{}, snap, err
	}

	result.Engine = engineName
	result.ElapsedMS = elapsedMS(start)

	if t.cache != nil {
		t.cache.Add(key, cacheValue{
			tokens:     result.Tokens,
			spans:      result.Spans,
			isCompound: result.IsCompound,
			engine:     result.Engine,
		})
	}
	return result, snap, nil
}

// Generation reports the dictionary generation the next call will tokenize
// against, for diagnostics.
func (t *Tokenizer) Generation() uint64 { return t.store.Snapshot().Generation }

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
