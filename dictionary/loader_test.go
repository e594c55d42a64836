package dictionary

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thai-search-proxy/domain"
)

func TestParseDictionaryCategoryMapSchema(t *testing.T) {
	data := []byte(`{
		"thai_japanese": ["วากาเมะ", "ซาชิมิ"],
		"technical": ["คอมพิวเตอร์"]
	}`)

	entries, err := ParseDictionary("test.json", data)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// sorted by surface
	surfaces := make([]string, 0, len(entries))
	for _, e := range entries {
		surfaces = append(surfaces, e.Surface)
		assert.Equal(t, 1.0, e.Confidence)
		assert.False(t, e.CreatedAt.IsZero())
	}
	assert.IsIncreasing(t, surfaces)
}

func TestParseDictionaryEntriesSchema(t *testing.T) {
	data := []byte(`{
		"entries": [
			{"surface": "วากาเมะ", "components": ["วา", "กา", "เมะ"], "category": "thai_japanese", "confidence": 0.9, "origin_language": "ja"},
			{"surface": "ซูชิ", "category": "thai_japanese"}
		]
	}`)

	entries, err := ParseDictionary("test.json", data)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	wakame, ok := find(entries, "วากาเมะ")
	require.True(t, ok)
	assert.Equal(t, []string{"วา", "กา", "เมะ"}, wakame.Components)
	assert.Equal(t, 0.9, wakame.Confidence)
	assert.Equal(t, "ja", wakame.OriginLanguage)

	sushi, ok := find(entries, "ซูชิ")
	require.True(t, ok)
	assert.Equal(t, 1.0, sushi.Confidence, "missing confidence defaults to 1.0")
}

func find(entries []domain.CompoundEntry, surface string) (domain.CompoundEntry, bool) {
	for _, e := range entries {
		if e.Surface == surface {
			return e, true
		}
	}
	return domain.CompoundEntry{}, false
}

func TestParseDictionaryReportsAllOffenders(t *testing.T) {
	data := []byte(`{
		"entries": [
			{"surface": "วากาเมะ", "category": "thai_japanese"},
			{"surface": "x", "category": "misc"},
			{"surface": "วากาเมะ", "category": "food"},
			{"surface": "ก", "category": "misc"}
		]
	}`)

	_, err := ParseDictionary("test.json", data)
	require.Error(t, err)

	var le *domain.LoadError
	require.True(t, errors.As(err, &le))
	assert.Len(t, le.Rows, 3, "every offending row is reported, not just the first")
}

func TestParseDictionaryRejectsMalformedJSON(t *testing.T) {
	_, err := ParseDictionary("test.json", []byte(`{not json`))
	require.Error(t, err)

	var de *domain.DictionaryError
	assert.True(t, errors.As(err, &de))
}

func TestParseDictionaryNormalizesNFC(t *testing.T) {
	// U+0E33 (ำ) composed vs decomposed sequences must collapse to one form.
	data := []byte(`{"misc": ["  น้ำปลา  "]}`)

	entries, err := ParseDictionary("test.json", data)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "น้ำปลา", entries[0].Surface)
}
