// Package trie provides the immutable longest-match prefix index built from
// the compound dictionary. A Trie is built once per dictionary generation and
// never mutated afterwards, so concurrent readers need no locks.
package trie

type node struct {
	children   map[rune]*node
	surface    string
	confidence float64
	terminal   bool
}

// Entry is one surface admitted to the trie.
type Entry struct {
	Surface    string
	Confidence float64
}

// Match is the result of a longest-prefix lookup.
type Match struct {
	Surface    string
	Length     int // code points consumed from the start offset
	Confidence float64
}

// Trie is an immutable rune trie over compound surfaces.
type Trie struct {
	root *node
	size int
}

// Build constructs a trie from the given entries. On a surface collision the
// entry with higher confidence wins; on equal confidence the lexicographically
// smaller surface wins, keeping builds deterministic regardless of input order.
func Build(entries []Entry) *Trie {
	t := &Trie{root: &node{}}
	for _, e := range entries {
		t.insert(e)
	}
	return t
}

func (t *Trie) insert(e Entry) {
	if e.Surface == "" {
		return
	}
	n := t.root
	for _, r := range e.Surface {
		child := n.children[r]
		if child == nil {
			if n.children == nil {
				n.children = make(map[rune]*node)
			}
			child = &node{}
			n.children[r] = child
		}
		n = child
	}
	if n.terminal {
		if e.Confidence < n.confidence ||
			(e.Confidence == n.confidence && e.Surface >= n.surface) {
			return
		}
	} else {
		t.size++
	}
	n.terminal = true
	n.surface = e.Surface
	n.confidence = e.Confidence
}

// LongestMatch returns the longest surface that matches runes starting at
// start. The walk is O(match length) and allocates nothing.
func (t *Trie) LongestMatch(runes []rune, start int) (Match, bool) {
	n := t.root
	var best *node
	end := start
	for i := start; i < len(runes); i++ {
		n = n.children[runes[i]]
		if n == nil {
			break
		}
		if n.terminal {
			best = n
			end = i + 1
		}
	}
	if best == nil {
		return Match{}, false
	}
	return Match{Surface: best.surface, Length: end - start, Confidence: best.confidence}, true
}

// MatchesAt returns every surface that matches runes starting at start,
// shortest first. Used by the maximal-matching segmenter; the tokenizer hot
// path uses LongestMatch instead.
func (t *Trie) MatchesAt(runes []rune, start int) []Match {
	var out []Match
	n := t.root
	for i := start; i < len(runes); i++ {
		n = n.children[runes[i]]
		if n == nil {
			break
		}
		if n.terminal {
			out = append(out, Match{Surface: n.surface, Length: i + 1 - start, Confidence: n.confidence})
		}
	}
	return out
}

// Contains reports whether surface is stored as a terminal entry.
func (t *Trie) Contains(surface string) bool {
	runes := []rune(surface)
	m, ok := t.LongestMatch(runes, 0)
	return ok && m.Length == len(runes)
}

// Size returns the number of distinct surfaces in the trie.
func (t *Trie) Size() int { return t.size }
