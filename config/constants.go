package config

import (
	"os"
	"strconv"
	"time"
)

// Pipeline tunables with env var override support. Millisecond-suffixed
// variables take a bare integer, the rest take Go duration syntax.
var (
	MaxVariants                = intEnv("MAX_VARIANTS", 5)
	QueryProcessTimeout        = msEnv("QUERY_PROCESS_TIMEOUT_MS", 20*time.Millisecond)
	VariantTimeout             = msEnv("VARIANT_TIMEOUT_MS", 2000*time.Millisecond)
	SearchTimeout              = msEnv("SEARCH_TIMEOUT_MS", 5000*time.Millisecond)
	RequestDeadline            = msEnv("REQUEST_DEADLINE_MS", 10000*time.Millisecond)
	SegmenterTimeout           = msEnv("SEGMENTER_TIMEOUT_MS", 15*time.Millisecond)
	BackendPoolSize            = intEnv("BACKEND_POOL_SIZE", 10)
	BackendQueueMax            = intEnv("BACKEND_QUEUE_MAX", 32)
	BackendProbeInterval       = durationEnv("BACKEND_PROBE_INTERVAL", 30*time.Second)
	CompoundSplitMinConfidence = floatEnv("COMPOUND_SPLIT_MIN_CONFIDENCE", 0.5)
	TokenizeCacheSize          = intEnv("TOKENIZE_CACHE_SIZE", 1024)

	WeightOriginal      = floatEnv("W_ORIGINAL", 1.0)
	WeightTokenized     = floatEnv("W_TOKENISED", 1.0)
	WeightCompoundSplit = floatEnv("W_COMPOUND_SPLIT", 0.7)
	WeightFallbackChar  = floatEnv("W_FALLBACK_CHAR", 0.4)
)

func intEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func floatEnv(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func msEnv(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return time.Duration(i) * time.Millisecond
		}
	}
	return defaultVal
}

func durationEnv(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
