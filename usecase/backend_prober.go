package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"thai-search-proxy/port"
)

// probeTimeout bounds a single health call to the backend.
const probeTimeout = 3 * time.Second

// BackendProber checks backend reachability on its own long-lived task so the
// request path never pays for a probe. Readiness reads the last result.
type BackendProber struct {
	engine   port.SearchEngine
	interval time.Duration

	healthy atomic.Bool
	lastOK  atomic.Int64 // unix nano of last successful probe

	logger *slog.Logger
}

func NewBackendProber(engine port.SearchEngine, interval time.Duration, logger *slog.Logger) *BackendProber {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &BackendProber{engine: engine, interval: interval, logger: logger}
}

// Run probes immediately, then on every tick, until ctx is cancelled.
func (p *BackendProber) Run(ctx context.Context) error {
	p.probe(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.probe(ctx)
		}
	}
}

// probeAttempts is how many times one probe retries transient failures
// before declaring the backend down, so a single dropped connection does not
// flip readiness.
const probeAttempts = 3

func newProbeBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	return bo
}

func (p *BackendProber) probe(ctx context.Context) {
	bo := newProbeBackoff()

	var err error
	for attempt := 0; attempt < probeAttempts; attempt++ {
		hctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err = p.engine.Health(hctx)
		cancel()
		if err == nil {
			p.lastOK.Store(time.Now().UnixNano())
			if !p.healthy.Swap(true) {
				p.logger.Info("search backend reachable")
			}
			return
		}
		select {
		case <-time.After(bo.NextBackOff()):
		case <-ctx.Done():
			return
		}
	}

	if p.healthy.Swap(false) {
		p.logger.Warn("search backend became unreachable", "err", err)
	}
}

// Healthy reports whether the last probe inside the interval succeeded.
func (p *BackendProber) Healthy() bool {
	if !p.healthy.Load() {
		return false
	}
	last := time.Unix(0, p.lastOK.Load())
	return time.Since(last) < 2*p.interval
}

// LastOK returns the time of the last successful probe.
func (p *BackendProber) LastOK() time.Time {
	return time.Unix(0, p.lastOK.Load()).UTC()
}
