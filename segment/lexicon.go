package segment

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"thai-search-proxy/domain"
	"thai-search-proxy/trie"
)

// The base lexicon ships with the binary so segmentation works offline and
// deterministically. One word per line, # comments allowed.
//
//go:embed lexicon_th.txt
var lexiconData string

// Lexicon is the base Thai wordlist shared by the dictionary-driven engines.
// It is immutable after construction.
type Lexicon struct {
	t    *trie.Trie
	size int
}

// NewLexicon builds a lexicon from the given words. Non-Thai and blank
// entries are skipped.
func NewLexicon(words []string) *Lexicon {
	entries := make([]trie.Entry, 0, len(words))
	for _, w := range words {
		w = domain.NormalizeSurface(w)
		if w == "" || !domain.ContainsThai(w) {
			continue
		}
		entries = append(entries, trie.Entry{Surface: w, Confidence: 1})
	}
	t := trie.Build(entries)
	return &Lexicon{t: t, size: t.Size()}
}

var (
	defaultLexicon     *Lexicon
	defaultLexiconOnce sync.Once
)

// DefaultLexicon parses the embedded wordlist once and caches it.
func DefaultLexicon() *Lexicon {
	defaultLexiconOnce.Do(func() {
		var words []string
		for _, line := range strings.Split(lexiconData, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			words = append(words, line)
		}
		defaultLexicon = NewLexicon(words)
	})
	return defaultLexicon
}

// LoadLexicon reads a wordlist file in the same format as the embedded one:
// one word per line, blank lines and # comments skipped.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	var words []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return NewLexicon(words), nil
}

// Trie exposes the underlying prefix index for the matching engines.
func (l *Lexicon) Trie() *trie.Trie { return l.t }

// Size returns the number of words in the lexicon.
func (l *Lexicon) Size() int { return l.size }
