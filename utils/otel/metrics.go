package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all OTel metric instruments for the search proxy.
var Metrics *SearchProxyMetrics

// SearchProxyMetrics contains all metric instruments.
type SearchProxyMetrics struct {
	SearchesTotal          metric.Int64Counter
	VariantsDispatched     metric.Int64Counter
	BackpressureRejections metric.Int64Counter
	BackendErrors          metric.Int64Counter
	DictionaryReloads      metric.Int64Counter
	TokenizeDuration       metric.Float64Histogram
	SearchDuration         metric.Float64Histogram
}

// InitMetrics initializes all metric instruments.
func InitMetrics() error {
	meter := otel.Meter("thai-search-proxy")

	searchesTotal, err := meter.Int64Counter("search_proxy_searches_total",
		metric.WithDescription("Total number of search requests"),
	)
	if err != nil {
		return err
	}

	variantsDispatched, err := meter.Int64Counter("search_proxy_variants_dispatched_total",
		metric.WithDescription("Total number of query variants sent to the backend"),
	)
	if err != nil {
		return err
	}

	backpressureRejections, err := meter.Int64Counter("search_proxy_backpressure_rejections_total",
		metric.WithDescription("Requests rejected because the dispatch queue was full"),
	)
	if err != nil {
		return err
	}

	backendErrors, err := meter.Int64Counter("search_proxy_backend_errors_total",
		metric.WithDescription("Total number of backend call failures"),
	)
	if err != nil {
		return err
	}

	dictionaryReloads, err := meter.Int64Counter("search_proxy_dictionary_reloads_total",
		metric.WithDescription("Total number of dictionary snapshot publishes"),
	)
	if err != nil {
		return err
	}

	tokenizeDuration, err := meter.Float64Histogram("search_proxy_tokenize_duration_seconds",
		metric.WithDescription("Tokenization duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	searchDuration, err := meter.Float64Histogram("search_proxy_search_duration_seconds",
		metric.WithDescription("End-to-end search request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	Metrics = &SearchProxyMetrics{
		SearchesTotal:          searchesTotal,
		VariantsDispatched:     variantsDispatched,
		BackpressureRejections: backpressureRejections,
		BackendErrors:          backendErrors,
		DictionaryReloads:      dictionaryReloads,
		TokenizeDuration:       tokenizeDuration,
		SearchDuration:         searchDuration,
	}

	return nil
}
