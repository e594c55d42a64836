package segment

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Chain tries its engines in order until one succeeds. The char-level engine
// is always appended as the terminal member, so Segment only fails when the
// caller's context is already dead.
type Chain struct {
	engines []Segmenter
	timeout time.Duration
	logger  *slog.Logger
}

// NewChain builds a chain from the given engines. A char-level engine is
// appended if the caller did not include one.
func NewChain(logger *slog.Logger, timeout time.Duration, engines ...Segmenter) *Chain {
	hasChar := false
	for _, e := range engines {
		if e.Name() == EngineCharLevel {
			hasChar = true
		}
	}
	if !hasChar {
		engines = append(engines, NewCharSegmenter())
	}
	return &Chain{engines: engines, timeout: timeout, logger: logger}
}

// FromConfig builds a chain from engine names, primary first. Unknown names
// are rejected so misconfiguration fails at startup rather than per request.
func FromConfig(logger *slog.Logger, timeout time.Duration, lex *Lexicon, primary string, fallbacks []string) (*Chain, error) {
	names := append([]string{primary}, fallbacks...)
	engines := make([]Segmenter, 0, len(names)+1)
	for _, name := range names {
		e, err := newEngine(name, lex)
		if err != nil {
			return nil, err
		}
		engines = append(engines, e)
	}
	return NewChain(logger, timeout, engines...), nil
}

func newEngine(name string, lex *Lexicon) (Segmenter, error) {
	switch name {
	case EngineLongest:
		return NewLongestMatcher(lex), nil
	case EngineMaximal:
		return NewMaximalMatcher(lex), nil
	case EngineCluster:
		return NewClusterSegmenter(), nil
	case EngineCharLevel:
		return NewCharSegmenter(), nil
	default:
		return nil, fmt.Errorf("unknown segmenter engine %q", name)
	}
}

// Segment runs the fallback chain. It returns the spans, the name of the
// engine that produced them, and the zero-based fallback depth (0 means the
// primary engine succeeded).
func (c *Chain) Segment(ctx context.Context, runes []rune) ([]Span, string, int, error) {
	var lastErr error
	for depth, engine := range c.engines {
		ectx := ctx
		var cancel context.CancelFunc
		if c.timeout > 0 {
			ectx, cancel = context.WithTimeout(ctx, c.timeout)
		}
		spans, err := engine.Segment(ectx, runes)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return spans, engine.Name(), depth, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			// The request itself is dead; no point trying further engines.
			return nil, "", depth, ctx.Err()
		}
		c.logger.Warn("segmenter engine failed, falling back",
			"engine", engine.Name(),
			"err", err,
		)
	}
	return nil, "", len(c.engines), lastErr
}

// Primary returns the name of the first engine in the chain.
func (c *Chain) Primary() string { return c.engines[0].Name() }
