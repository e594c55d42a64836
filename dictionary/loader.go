package dictionary

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"thai-search-proxy/domain"
)

// The dictionary file accepts two schemas:
//
//	{"thai_japanese": ["วากาเมะ", ...], "technical": [...]}
//	{"entries": [{"surface": "วากาเมะ", "components": [...], "category": "...", "confidence": 0.9}]}
//
// Both are normalised into []domain.CompoundEntry. A file that fails
// validation is rejected as a whole with every offending row listed.

type entryJSON struct {
	Surface        string   `json:"surface"`
	Components     []string `json:"components,omitempty"`
	Category       string   `json:"category"`
	Confidence     *float64 `json:"confidence,omitempty"`
	OriginLanguage string   `json:"origin_language,omitempty"`
}

const defaultConfidence = 1.0

// ParseDictionary decodes either schema and validates every entry.
// The returned entries are NFC-normalised and sorted by surface for
// deterministic trie builds.
func ParseDictionary(source string, data []byte) ([]domain.CompoundEntry, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &domain.DictionaryError{Op: "ParseDictionary", Err: fmt.Sprintf("%s: %v", source, err)}
	}

	var entries []domain.CompoundEntry
	var rows []domain.RowError

	if entriesRaw, ok := raw["entries"]; ok && len(raw) == 1 {
		var list []entryJSON
		if err := json.Unmarshal(entriesRaw, &list); err != nil {
			return nil, &domain.DictionaryError{Op: "ParseDictionary", Err: fmt.Sprintf("%s: entries: %v", source, err)}
		}
		for _, e := range list {
			entries = append(entries, fromJSON(e))
		}
	} else {
		// Category-map schema. Sort keys so load order is deterministic.
		categories := make([]string, 0, len(raw))
		for cat := range raw {
			categories = append(categories, cat)
		}
		sort.Strings(categories)
		for _, cat := range categories {
			var surfaces []string
			if err := json.Unmarshal(raw[cat], &surfaces); err != nil {
				return nil, &domain.DictionaryError{Op: "ParseDictionary", Err: fmt.Sprintf("%s: category %q: %v", source, cat, err)}
			}
			for _, s := range surfaces {
				entries = append(entries, domain.CompoundEntry{
					Surface:    s,
					Category:   cat,
					Confidence: defaultConfidence,
				})
			}
		}
	}

	now := time.Now().UTC()
	seen := make(map[string]string, len(entries))
	for i := range entries {
		e := &entries[i]
		e.Surface = domain.NormalizeSurface(e.Surface)
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		e.UpdatedAt = now
		if err := e.Validate(); err != nil {
			rows = append(rows, domain.RowError{Surface: e.Surface, Category: e.Category, Reason: err.Error()})
			continue
		}
		if prev, dup := seen[e.Surface]; dup {
			rows = append(rows, domain.RowError{
				Surface:  e.Surface,
				Category: e.Category,
				Reason:   fmt.Sprintf("duplicate surface (also in category %q)", prev),
			})
			continue
		}
		seen[e.Surface] = e.Category
	}

	if len(rows) > 0 {
		return nil, &domain.LoadError{Source: source, Rows: rows}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Surface < entries[j].Surface })
	return entries, nil
}

func fromJSON(e entryJSON) domain.CompoundEntry {
	conf := defaultConfidence
	if e.Confidence != nil {
		conf = *e.Confidence
	}
	return domain.CompoundEntry{
		Surface:        e.Surface,
		Components:     e.Components,
		Category:       e.Category,
		Confidence:     conf,
		OriginLanguage: e.OriginLanguage,
	}
}
