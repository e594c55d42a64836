package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures across the pipeline. The REST layer is the
// only component that maps kinds to HTTP statuses.
type ErrorKind string

const (
	KindInvalidInput         ErrorKind = "INVALID_INPUT"
	KindDictionaryLoadFailed ErrorKind = "DICTIONARY_LOAD_FAILED"
	KindDuplicateEntry       ErrorKind = "DUPLICATE_ENTRY"
	KindNotFound             ErrorKind = "NOT_FOUND"
	KindUnauthorized         ErrorKind = "UNAUTHORIZED"
	KindSegmenterFailed      ErrorKind = "SEGMENTER_FAILED"
	KindBackendTimeout       ErrorKind = "BACKEND_TIMEOUT"
	KindBackendUnavailable   ErrorKind = "BACKEND_UNAVAILABLE"
	KindBackend4xx           ErrorKind = "BACKEND_4XX"
	KindBackend5xx           ErrorKind = "BACKEND_5XX"
	KindBackpressure         ErrorKind = "BACKPRESSURE"
	KindDeadlineExceeded     ErrorKind = "REQUEST_DEADLINE_EXCEEDED"
	KindBackendAllFailed     ErrorKind = "SEARCH_BACKEND_UNAVAILABLE"
	KindInternal             ErrorKind = "INTERNAL"
)

// ProxyError is the structured failure passed between pipeline stages.
// Stages return these instead of raw errors so the orchestrator and the REST
// layer can act on the kind without string matching.
type ProxyError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Details map[string]any
	Err     error
}

func (e *ProxyError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(": " + e.Op)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *ProxyError) Unwrap() error { return e.Err }

// NewProxyError builds a ProxyError with a formatted message.
func NewProxyError(kind ErrorKind, op, format string, args ...any) *ProxyError {
	return &ProxyError{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the error kind, defaulting to INTERNAL for plain errors.
func KindOf(err error) ErrorKind {
	var pe *ProxyError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInternal
}

// BackendError represents a classified failure from the search backend
// driver layer.
type BackendError struct {
	Kind   ErrorKind
	Op     string
	Status int
	Err    string
}

func (e *BackendError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Kind, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Err)
}

// SearchEngineError represents an error from the search engine gateway layer.
type SearchEngineError struct {
	Op  string
	Err string
}

func (e *SearchEngineError) Error() string {
	return e.Op + ": " + e.Err
}

// DictionaryError represents an error from the dictionary store layer.
type DictionaryError struct {
	Op  string
	Err string
}

func (e *DictionaryError) Error() string {
	return e.Op + ": " + e.Err
}

// RowError points at one offending dictionary record during a load.
type RowError struct {
	Surface  string `json:"surface"`
	Category string `json:"category,omitempty"`
	Reason   string `json:"reason"`
}

// LoadError aggregates every offending row of a dictionary load. The loader
// never partially applies a file: one LoadError reports all offenders.
type LoadError struct {
	Source string
	Rows   []RowError
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("dictionary load %s: %d invalid entries", e.Source, len(e.Rows))
}
