package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// CompoundEntry is one dictionary record. Surface is the compound string as
// it appears in text and acts as the primary key after NFC normalisation.
type CompoundEntry struct {
	Surface        string    `json:"surface"`
	Components     []string  `json:"components,omitempty"`
	Category       string    `json:"category"`
	Confidence     float64   `json:"confidence"`
	OriginLanguage string    `json:"origin_language,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const (
	MinSurfaceRunes = 2
	MaxSurfaceRunes = 64
)

// IsThaiRune reports whether r falls in the Thai Unicode block.
func IsThaiRune(r rune) bool {
	return r >= 0x0E00 && r <= 0x0E7F
}

// ContainsThai reports whether s contains at least one Thai code point.
func ContainsThai(s string) bool {
	for _, r := range s {
		if IsThaiRune(r) {
			return true
		}
	}
	return false
}

// NormalizeSurface trims and NFC-normalises a surface form. All dictionary
// keys and all tokenizer input go through the same normalisation.
func NormalizeSurface(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Validate checks the dictionary entry invariants: non-empty surface,
// 2..64 code points, at least one Thai character, confidence in [0,1].
// Surface is expected to be normalised already.
func (e *CompoundEntry) Validate() error {
	if e.Surface == "" {
		return fmt.Errorf("surface is empty")
	}
	n := utf8.RuneCountInString(e.Surface)
	if n < MinSurfaceRunes {
		return fmt.Errorf("surface %q too short: %d code points (min %d)", e.Surface, n, MinSurfaceRunes)
	}
	if n > MaxSurfaceRunes {
		return fmt.Errorf("surface %q too long: %d code points (max %d)", e.Surface, n, MaxSurfaceRunes)
	}
	if !ContainsThai(e.Surface) {
		return fmt.Errorf("surface %q contains no Thai characters", e.Surface)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("surface %q confidence %v outside [0,1]", e.Surface, e.Confidence)
	}
	return nil
}
