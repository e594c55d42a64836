package segment

import "context"

// clusterSegmenter is the second fallback: pure character-cluster
// segmentation with no dictionary at all. Always available, never accurate
// for long words, but deterministic and safe.
type clusterSegmenter struct{}

// NewClusterSegmenter returns the character-cluster engine.
func NewClusterSegmenter() Segmenter { return clusterSegmenter{} }

func (clusterSegmenter) Name() string { return EngineCluster }

func (clusterSegmenter) Segment(ctx context.Context, runes []rune) ([]Span, error) {
	var out []Span
	for _, r := range splitRuns(runes) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if r.kind != runThai {
			out = append(out, Span{Start: r.start, End: r.end})
			continue
		}
		out = append(out, clusters(runes, r.start, r.end)...)
	}
	return out, nil
}

// charSegmenter is the terminal engine: one span per Thai code point,
// non-Thai runs coalesced. It cannot fail on any input.
type charSegmenter struct{}

// NewCharSegmenter returns the character-level engine.
func NewCharSegmenter() Segmenter { return charSegmenter{} }

func (charSegmenter) Name() string { return EngineCharLevel }

func (charSegmenter) Segment(ctx context.Context, runes []rune) ([]Span, error) {
	var out []Span
	for _, r := range splitRuns(runes) {
		if r.kind != runThai {
			out = append(out, Span{Start: r.start, End: r.end})
			continue
		}
		for i := r.start; i < r.end; i++ {
			out = append(out, Span{Start: i, End: i + 1})
		}
	}
	return out, nil
}
