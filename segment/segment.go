// Package segment provides Thai word segmentation for the spans the compound
// tokenizer could not resolve against the dictionary. Segmentation is a
// capability: a fixed set of engines tried in order until one succeeds, with
// character-level splitting as the terminal engine that never fails.
package segment

import (
	"context"

	"thai-search-proxy/domain"
)

// Engine names. The chain is configured by name so deployments can reorder
// fallbacks without code changes.
const (
	EngineLongest   = "longest" // dictionary longest-match, default primary
	EngineMaximal   = "maximal" // dictionary maximal-match (fewest tokens)
	EngineCluster   = "cluster" // Thai character clusters, no dictionary
	EngineCharLevel = "char"    // code-point split, always succeeds
)

// Span is a [Start, End) code-point range relative to the segmented slice.
type Span struct {
	Start int
	End   int
}

// Segmenter is the segmentation capability. For a fixed input a Segmenter
// must produce identical output on every call.
type Segmenter interface {
	Name() string
	Segment(ctx context.Context, runes []rune) ([]Span, error)
}

type runKind int

const (
	runThai runKind = iota
	runSpace
	runOther
)

type run struct {
	kind       runKind
	start, end int
}

func kindOf(r rune) runKind {
	switch {
	case domain.IsThaiRune(r):
		return runThai
	case isSpace(r):
		return runSpace
	default:
		return runOther
	}
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f', 0x00A0, 0x3000:
		return true
	}
	return false
}

// splitRuns partitions runes into maximal runs of Thai, whitespace, and
// everything else. Non-Thai text is never fed to the Thai engines.
func splitRuns(runes []rune) []run {
	var runs []run
	for i := 0; i < len(runes); {
		k := kindOf(runes[i])
		j := i + 1
		for j < len(runes) && kindOf(runes[j]) == k {
			j++
		}
		runs = append(runs, run{kind: k, start: i, end: j})
		i = j
	}
	return runs
}

// Thai dependent signs that attach to the preceding consonant.
func isCombining(r rune) bool {
	return r == 0x0E31 || (r >= 0x0E34 && r <= 0x0E3A) || (r >= 0x0E47 && r <= 0x0E4E)
}

// Vowels written before the consonant they belong to.
func isLeadingVowel(r rune) bool {
	return r >= 0x0E40 && r <= 0x0E44
}

// Spacing vowels that follow and complete a cluster.
func isFollowingVowel(r rune) bool {
	return r == 0x0E30 || r == 0x0E32 || r == 0x0E33 || r == 0x0E45
}

// clusterEnd returns the end of the character cluster starting at i.
// A cluster is an optional leading vowel, a base character, then any
// combining signs and spacing vowels. Splitting inside a cluster would
// produce unrenderable fragments, so no engine ever does.
func clusterEnd(runes []rune, i, end int) int {
	j := i
	if isLeadingVowel(runes[j]) {
		j++
		if j >= end {
			return j
		}
	}
	j++ // base character
	for j < end && (isCombining(runes[j]) || isFollowingVowel(runes[j])) {
		j++
	}
	return j
}

// clusters splits runes[start:end] at character cluster boundaries.
func clusters(runes []rune, start, end int) []Span {
	var out []Span
	for i := start; i < end; {
		j := clusterEnd(runes, i, end)
		out = append(out, Span{Start: i, End: j})
		i = j
	}
	return out
}

// checkEvery is how often engines poll ctx during long inputs.
const checkEvery = 256

// IsSpaceRune reports whether r is whitespace for run-splitting purposes.
func IsSpaceRune(r rune) bool { return isSpace(r) }

// ClusterEnd returns the end of the Thai character cluster starting at i.
// Used by callers that scan Thai text themselves and must not start a token
// inside a cluster.
func ClusterEnd(runes []rune, i int) int {
	return clusterEnd(runes, i, len(runes))
}
