package segment

import (
	"context"
)

// longestMatcher is the default primary engine: greedy longest-match against
// the base lexicon, with unknown stretches emitted cluster by cluster.
type longestMatcher struct {
	lex *Lexicon
}

// NewLongestMatcher returns the dictionary longest-match engine.
func NewLongestMatcher(lex *Lexicon) Segmenter {
	return &longestMatcher{lex: lex}
}

func (s *longestMatcher) Name() string { return EngineLongest }

func (s *longestMatcher) Segment(ctx context.Context, runes []rune) ([]Span, error) {
	var out []Span
	steps := 0
	for _, r := range splitRuns(runes) {
		if r.kind != runThai {
			out = append(out, Span{Start: r.start, End: r.end})
			continue
		}
		for i := r.start; i < r.end; {
			steps++
			if steps%checkEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			if m, ok := s.lex.Trie().LongestMatch(runes, i); ok && i+m.Length <= r.end {
				out = append(out, Span{Start: i, End: i + m.Length})
				i += m.Length
				continue
			}
			j := clusterEnd(runes, i, r.end)
			out = append(out, Span{Start: i, End: j})
			i = j
		}
	}
	return out, nil
}

// maximalMatcher is the first fallback: dynamic-programming maximal matching
// that minimises the token count over the lexicon, stepping over unknown
// stretches one cluster at a time with a penalty so known words are preferred.
type maximalMatcher struct {
	lex *Lexicon
}

// NewMaximalMatcher returns the dictionary maximal-match engine.
func NewMaximalMatcher(lex *Lexicon) Segmenter {
	return &maximalMatcher{lex: lex}
}

func (s *maximalMatcher) Name() string { return EngineMaximal }

const unknownPenalty = 2

func (s *maximalMatcher) Segment(ctx context.Context, runes []rune) ([]Span, error) {
	var out []Span
	for _, r := range splitRuns(runes) {
		if r.kind != runThai {
			out = append(out, Span{Start: r.start, End: r.end})
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		spans, err := s.segmentThaiRun(ctx, runes, r.start, r.end)
		if err != nil {
			return nil, err
		}
		out = append(out, spans...)
	}
	return out, nil
}

// segmentThaiRun computes, right to left, the cheapest segmentation of
// runes[start:end]. On equal cost the longest first token wins, which keeps
// the output deterministic.
func (s *maximalMatcher) segmentThaiRun(ctx context.Context, runes []rune, start, end int) ([]Span, error) {
	n := end - start
	cost := make([]int, n+1)
	next := make([]int, n+1) // length of the chosen token at each position
	t := s.lex.Trie()

	for i := n - 1; i >= 0; i-- {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		pos := start + i
		bestCost := -1
		bestLen := 0
		for _, m := range t.MatchesAt(runes, pos) {
			if pos+m.Length > end {
				continue
			}
			c := 1 + cost[i+m.Length]
			if bestCost < 0 || c < bestCost || (c == bestCost && m.Length > bestLen) {
				bestCost = c
				bestLen = m.Length
			}
		}
		clen := clusterEnd(runes, pos, end) - pos
		c := unknownPenalty + cost[i+clen]
		if bestCost < 0 || c < bestCost {
			bestCost = c
			bestLen = clen
		}
		cost[i] = bestCost
		next[i] = bestLen
	}

	var out []Span
	for i := 0; i < n; {
		out = append(out, Span{Start: start + i, End: start + i + next[i]})
		i += next[i]
	}
	return out, nil
}
