package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	HTTP       HTTPConfig
	Backend    BackendConfig
	Dictionary DictionaryConfig
	Segmenter  SegmenterConfig
	Pipeline   PipelineConfig
	Security   SecurityConfig
}

type HTTPConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	CORSOrigins       []string
}

type BackendConfig struct {
	URL            string
	APIKey         string
	PoolSize       int
	QueueMax       int
	VariantTimeout time.Duration
	SearchTimeout  time.Duration
	ProbeInterval  time.Duration
}

type DictionaryConfig struct {
	Path string
}

type SegmenterConfig struct {
	Primary     string
	Fallbacks   []string
	Timeout     time.Duration
	LexiconPath string
}

// PipelineConfig bounds query expansion and the per-request wall budget.
type PipelineConfig struct {
	MaxVariants         int
	QueryProcessTimeout time.Duration
	RequestDeadline     time.Duration
	MinSplitConfidence  float64
	TokenizeCacheSize   int
	Weights             WeightsConfig
}

// WeightsConfig holds the base ranking weight per variant kind.
type WeightsConfig struct {
	Original      float64
	Tokenized     float64
	CompoundSplit float64
	FallbackChar  float64
}

type SecurityConfig struct {
	APIKeyRequired bool
	APIKey         string
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTP: HTTPConfig{
			Addr:              getEnvOrDefault("LISTEN_ADDR", "0.0.0.0:8000"),
			ReadHeaderTimeout: 5 * time.Second,
			CORSOrigins:       splitList(getEnvOrDefault("CORS_ORIGINS", "")),
		},
		Backend: BackendConfig{
			URL:            getEnvRequired("BACKEND_URL"),
			APIKey:         getEnvOrDefault("BACKEND_API_KEY", ""),
			PoolSize:       BackendPoolSize,
			QueueMax:       BackendQueueMax,
			VariantTimeout: VariantTimeout,
			SearchTimeout:  SearchTimeout,
			ProbeInterval:  BackendProbeInterval,
		},
		Dictionary: DictionaryConfig{
			Path: getEnvOrDefault("DICT_PATH", "./dictionaries/thai_compounds.json"),
		},
		Segmenter: SegmenterConfig{
			Primary:     getEnvOrDefault("SEGMENTER_PRIMARY", "longest"),
			Fallbacks:   splitList(getEnvOrDefault("SEGMENTER_FALLBACKS", "maximal,cluster")),
			Timeout:     SegmenterTimeout,
			LexiconPath: getEnvOrDefault("SEGMENTER_LEXICON_PATH", ""),
		},
		Pipeline: PipelineConfig{
			MaxVariants:         MaxVariants,
			QueryProcessTimeout: QueryProcessTimeout,
			RequestDeadline:     RequestDeadline,
			MinSplitConfidence:  CompoundSplitMinConfidence,
			TokenizeCacheSize:   TokenizeCacheSize,
			Weights: WeightsConfig{
				Original:      WeightOriginal,
				Tokenized:     WeightTokenized,
				CompoundSplit: WeightCompoundSplit,
				FallbackChar:  WeightFallbackChar,
			},
		},
		Security: SecurityConfig{
			APIKeyRequired: getEnvOrDefault("API_KEY_REQUIRED", "false") == "true",
			APIKey:         getEnvOrDefault("API_KEY", ""),
		},
	}

	if cfg.Security.APIKeyRequired && cfg.Security.APIKey == "" {
		return nil, fmt.Errorf("API_KEY_REQUIRED is set but API_KEY is empty")
	}
	if err := cfg.Pipeline.Weights.validate(); err != nil {
		return nil, err
	}

	slog.Info("Configuration loaded",
		"listen_addr", cfg.HTTP.Addr,
		"backend_url", cfg.Backend.URL,
		"dict_path", cfg.Dictionary.Path,
		"segmenter_primary", cfg.Segmenter.Primary,
		"max_variants", cfg.Pipeline.MaxVariants,
	)

	return cfg, nil
}

func (w WeightsConfig) validate() error {
	for name, v := range map[string]float64{
		"W_ORIGINAL":       w.Original,
		"W_TOKENISED":      w.Tokenized,
		"W_COMPOUND_SPLIT": w.CompoundSplit,
		"W_FALLBACK_CHAR":  w.FallbackChar,
	} {
		if v < 0 || v > 2 {
			return fmt.Errorf("%s=%v outside [0,2]", name, v)
		}
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvRequired(key string) string {
	// Check for _FILE suffix
	if fileValue := os.Getenv(key + "_FILE"); fileValue != "" {
		content, err := os.ReadFile(fileValue)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return value
}

func getEnvOrDefault(key, defaultValue string) string {
	// Check for _FILE suffix
	if fileValue := os.Getenv(key + "_FILE"); fileValue != "" {
		content, err := os.ReadFile(fileValue)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
