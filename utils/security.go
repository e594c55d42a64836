// Package utils provides security utilities for search query sanitization and
// validation. Sanitization must leave Thai text intact: only markup, script
// fragments and invisible characters are removed.
package utils

import (
	"context"
	"net/url"
	"regexp"
	"strings"
)

// SecurityConfig holds security-related configuration for query sanitization.
type SecurityConfig struct {
	// MaxQueryLength defines the maximum allowed length for search queries,
	// in bytes
	MaxQueryLength int

	// DisallowedPatterns contains regex patterns that are not allowed in queries
	DisallowedPatterns []string

	// AllowedSpecialChars contains special characters that are permitted in queries
	AllowedSpecialChars []string

	// StripHTMLTags enables removal of HTML tags from queries
	StripHTMLTags bool
}

const (
	// DefaultMaxQueryLength is the default maximum query length. Thai text is
	// three bytes per rune in UTF-8, so this bounds queries around 13k runes,
	// well above the pipeline's own code-point limit.
	DefaultMaxQueryLength = 40000
)

// DefaultSecurityConfig returns a secure default configuration for query
// sanitization.
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		MaxQueryLength:      DefaultMaxQueryLength,
		DisallowedPatterns:  []string{},
		AllowedSpecialChars: []string{"-", "_", ".", "!", "?", "&", "+", "@", "#", "\""},
		StripHTMLTags:       true,
	}
}

// QuerySanitizer provides sanitization and validation of search queries.
// It protects against XSS and script injection without altering legitimate
// Thai or Latin search text.
type QuerySanitizer struct {
	config *SecurityConfig
}

// Characters that may be used in injection attacks when unescaped downstream.
var dangerousChars = []string{"<", ">", ";", "\\"}

// NewQuerySanitizer creates a new query sanitizer
func NewQuerySanitizer(config *SecurityConfig) *QuerySanitizer {
	if config == nil {
		config = DefaultSecurityConfig()
	}
	return &QuerySanitizer{config: config}
}

// scriptPatterns are removed case-insensitively without lowercasing the rest
// of the query.
var scriptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)data:`),
	regexp.MustCompile(`(?i)on(load|error|click|mouseover)=`),
}

// SanitizeQuery sanitizes a search query to prevent injection attacks.
// It URL-decodes, strips zero-width characters, HTML tags and script
// fragments, then checks disallowed patterns. The surviving text is returned
// unmodified otherwise; whitespace is left for the tokenizer to collapse.
func (s *QuerySanitizer) SanitizeQuery(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "", nil
	}

	// URL decode the query to handle encoded attack vectors
	if decoded, err := url.QueryUnescape(query); err == nil {
		query = decoded
	}

	query = s.removeZeroWidthChars(query)

	if s.config.StripHTMLTags {
		query = s.stripHTMLTags(query)
	}

	for _, p := range scriptPatterns {
		query = p.ReplaceAllString(query, "")
	}

	for _, pattern := range s.config.DisallowedPatterns {
		if matched, _ := regexp.MatchString(pattern, strings.ToLower(query)); matched {
			return "", &SecurityError{
				Type:    "disallowed_pattern",
				Message: "Query contains disallowed pattern",
				Query:   query,
			}
		}
	}

	return strings.TrimSpace(query), nil
}

// stripHTMLTags removes HTML tags from the query
func (s *QuerySanitizer) stripHTMLTags(input string) string {
	// Remove script tags and their content
	for {
		start := strings.Index(strings.ToLower(input), "<script")
		if start == -1 {
			break
		}
		end := strings.Index(strings.ToLower(input[start:]), "</script>")
		if end == -1 {
			// No closing tag, remove from start to end
			input = input[:start]
			break
		}
		end += start + len("</script>")
		input = input[:start] + input[end:]
	}

	// Remove any remaining HTML tags
	for {
		start := strings.Index(input, "<")
		if start == -1 {
			break
		}
		end := strings.Index(input[start:], ">")
		if end == -1 {
			// No closing bracket, remove from start to end
			input = input[:start]
			break
		}
		end += start + 1
		input = input[:start] + input[end:]
	}

	return input
}

// removeZeroWidthChars removes zero-width characters from the query
func (s *QuerySanitizer) removeZeroWidthChars(input string) string {
	zeroWidthChars := []rune{
		'\u200B', // Zero width space
		'\u200C', // Zero width non-joiner
		'\u200D', // Zero width joiner
		'\uFEFF', // Zero width no-break space (BOM)
		'\u200E', // Left-to-right mark
		'\u200F', // Right-to-left mark
	}

	for _, char := range zeroWidthChars {
		input = strings.ReplaceAll(input, string(char), "")
	}

	return input
}

// ValidateQuery validates a search query for security concerns before
// sanitization: length limit, null bytes and control characters, and
// dangerous characters outside the allow list.
func (s *QuerySanitizer) ValidateQuery(ctx context.Context, query string) error {
	if len(query) > s.config.MaxQueryLength {
		return &SecurityError{
			Type:    "query_too_long",
			Message: "Query exceeds maximum length",
			Query:   query,
		}
	}

	for _, r := range query {
		if r == 0 || (r < 32 && r != 9 && r != 10 && r != 13) {
			return &SecurityError{
				Type:    "dangerous_character",
				Message: "Query contains null byte or control character",
				Query:   query,
			}
		}
	}

	for _, char := range dangerousChars {
		if !strings.Contains(query, char) {
			continue
		}
		allowed := false
		for _, allowedChar := range s.config.AllowedSpecialChars {
			if char == allowedChar {
				allowed = true
				break
			}
		}
		if !allowed {
			return &SecurityError{
				Type:    "dangerous_character",
				Message: "Query contains potentially dangerous character: " + char,
				Query:   query,
			}
		}
	}

	return nil
}

// SecurityError represents a security-related error
type SecurityError struct {
	Type    string
	Message string
	Query   string
}

func (e *SecurityError) Error() string {
	return e.Message
}
