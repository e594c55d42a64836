package bootstrap

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/meilisearch/meilisearch-go"

	"thai-search-proxy/config"
	"thai-search-proxy/logger"
)

const meilisearchConnectAttempts = 5

// initMeilisearchClient connects to the search backend, retrying with
// exponential backoff so the proxy survives the backend starting later than
// it does.
func initMeilisearchClient(cfg *config.Config) (meilisearch.ServiceManager, error) {
	logger.Logger.Info("Connecting to search backend", "url", cfg.Backend.URL)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.MaxInterval = 10 * time.Second

	var client meilisearch.ServiceManager
	for i := range meilisearchConnectAttempts {
		client = meilisearch.New(cfg.Backend.URL, meilisearch.WithAPIKey(cfg.Backend.APIKey))

		_, healthErr := client.Health()
		if healthErr == nil {
			logger.Logger.Info("Connected to search backend")
			return client, nil
		}

		if i == meilisearchConnectAttempts-1 {
			return nil, fmt.Errorf("backend not reachable after %d attempts: %w", meilisearchConnectAttempts, healthErr)
		}
		delay := bo.NextBackOff()
		logger.Logger.Warn("search backend not ready, retrying",
			"attempt", i+1, "max", meilisearchConnectAttempts, "retry_in", delay, "err", healthErr)
		time.Sleep(delay)
	}
	return client, nil
}
