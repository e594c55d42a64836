// Package telemetry keeps lightweight in-process statistics for the detailed
// health endpoint. Prometheus metrics cover long-term observation; this
// window answers "what happened in the last minute" without a scrape.
package telemetry

import (
	"sort"
	"sync"
	"time"
)

// Stage names instrumented by the pipeline.
const (
	StageTokenize     = "tokenize"
	StageProcessQuery = "process_query"
	StageDispatch     = "dispatch"
	StageRank         = "rank"
	StageTotal        = "total"
)

const windowSize = time.Minute

type sample struct {
	at time.Time
	ms float64
}

// StageStats is the percentile summary of one pipeline stage over the window.
type StageStats struct {
	Count int     `json:"count"`
	P50MS float64 `json:"p50_ms"`
	P95MS float64 `json:"p95_ms"`
	P99MS float64 `json:"p99_ms"`
}

// Snapshot is a point-in-time view of the window, serialised by the detailed
// health endpoint.
type Snapshot struct {
	Stages        map[string]StageStats `json:"stages"`
	VariantCounts map[string]int64      `json:"variant_counts"`
	BackendOK     int64                 `json:"backend_ok"`
	BackendErrors int64                 `json:"backend_errors"`
}

// Stats is a sliding one-minute window of stage latencies and counters.
// Safe for concurrent use.
type Stats struct {
	mu            sync.Mutex
	stages        map[string][]sample
	variantCounts map[string]int64
	backendOK     int64
	backendErr    int64
	now           func() time.Time
}

func NewStats() *Stats {
	return &Stats{
		stages:        make(map[string][]sample),
		variantCounts: make(map[string]int64),
		now:           time.Now,
	}
}

// ObserveStage records one latency sample for a stage.
func (s *Stats) ObserveStage(stage string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.stages[stage] = append(s.prune(s.stages[stage], now), sample{at: now, ms: float64(d.Microseconds()) / 1000.0})
}

// CountVariant increments the dispatch counter for a variant kind.
func (s *Stats) CountVariant(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variantCounts[kind]++
}

// CountBackend records one backend call outcome.
func (s *Stats) CountBackend(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.backendOK++
	} else {
		s.backendErr++
	}
}

// Snapshot summarises the current window.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	out := Snapshot{
		Stages:        make(map[string]StageStats, len(s.stages)),
		VariantCounts: make(map[string]int64, len(s.variantCounts)),
		BackendOK:     s.backendOK,
		BackendErrors: s.backendErr,
	}
	for stage, samples := range s.stages {
		samples = s.prune(samples, now)
		s.stages[stage] = samples
		out.Stages[stage] = summarize(samples)
	}
	for kind, n := range s.variantCounts {
		out.VariantCounts[kind] = n
	}
	return out
}

func (s *Stats) prune(samples []sample, now time.Time) []sample {
	cutoff := now.Add(-windowSize)
	i := 0
	for i < len(samples) && samples[i].at.Before(cutoff) {
		i++
	}
	return samples[i:]
}

func summarize(samples []sample) StageStats {
	if len(samples) == 0 {
		return StageStats{}
	}
	ms := make([]float64, len(samples))
	for i, s := range samples {
		ms[i] = s.ms
	}
	sort.Float64s(ms)
	return StageStats{
		Count: len(ms),
		P50MS: percentile(ms, 0.50),
		P95MS: percentile(ms, 0.95),
		P99MS: percentile(ms, 0.99),
	}
}

// percentile uses nearest-rank on the sorted slice.
func percentile(sorted []float64, p float64) float64 {
	idx := int(p*float64(len(sorted))+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
