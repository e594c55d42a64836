package usecase

import (
	"context"
	"time"

	"thai-search-proxy/dictionary"
	"thai-search-proxy/telemetry"
	"thai-search-proxy/tokenize"
)

// syntheticProbeText exercises the full segmenter path without touching the
// dictionary overlay.
const syntheticProbeText = "สวัสดีครับ"

// HealthStatus is the basic readiness report.
type HealthStatus struct {
	Status    string `json:"status"`
	Degraded  bool   `json:"degraded"`
	Segmenter bool   `json:"segmenter_ok"`
	Backend   bool   `json:"backend_ok"`
}

// DetailedHealth extends HealthStatus with dictionary and pipeline
// statistics.
type DetailedHealth struct {
	HealthStatus
	Dictionary    dictionary.Stats   `json:"dictionary"`
	Pipeline      telemetry.Snapshot `json:"pipeline"`
	BackendLastOK time.Time          `json:"backend_last_ok"`
}

// HealthUsecase aggregates the readiness signals: a dictionary snapshot
// exists, a synthetic tokenization passes, and the backend prober succeeded
// recently.
type HealthUsecase struct {
	store     *dictionary.Store
	tokenizer *tokenize.Tokenizer
	prober    *BackendProber
	stats     *telemetry.Stats
}

func NewHealthUsecase(store *dictionary.Store, tokenizer *tokenize.Tokenizer, prober *BackendProber, stats *telemetry.Stats) *HealthUsecase {
	return &HealthUsecase{store: store, tokenizer: tokenizer, prober: prober, stats: stats}
}

// Check returns the basic health status. OK requires a working segmenter and
// a reachable backend; a degraded dictionary downgrades the status without
// failing it, since the service still answers with the previous snapshot.
func (u *HealthUsecase) Check(ctx context.Context) HealthStatus {
	segmenterOK := u.syntheticTokenize(ctx)
	backendOK := u.prober.Healthy()

	status := "ok"
	switch {
	case !segmenterOK || !backendOK:
		status = "unhealthy"
	case u.store.Degraded():
		status = "degraded"
	}

	return HealthStatus{
		Status:    status,
		Degraded:  u.store.Degraded(),
		Segmenter: segmenterOK,
		Backend:   backendOK,
	}
}

// Detailed returns the full report for operators.
func (u *HealthUsecase) Detailed(ctx context.Context) DetailedHealth {
	return DetailedHealth{
		HealthStatus:  u.Check(ctx),
		Dictionary:    u.store.Stats(),
		Pipeline:      u.stats.Snapshot(),
		BackendLastOK: u.prober.LastOK(),
	}
}

func (u *HealthUsecase) syntheticTokenize(ctx context.Context) bool {
	tctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	res, err := u.tokenizer.Tokenize(tctx, syntheticProbeText)
	return err == nil && len(res.Tokens) > 0
}
