package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"thai-search-proxy/config"
	"thai-search-proxy/dictionary"
	"thai-search-proxy/driver"
	"thai-search-proxy/gateway"
	"thai-search-proxy/logger"
	"thai-search-proxy/rest"
	"thai-search-proxy/segment"
	"thai-search-proxy/telemetry"
	"thai-search-proxy/tokenize"
	"thai-search-proxy/usecase"
	"thai-search-proxy/utils"
	appOtel "thai-search-proxy/utils/otel"
)

// App holds the long-lived components of the search proxy.
type App struct {
	echo         *echo.Echo
	otelShutdown appOtel.ShutdownFunc
}

// Run initializes all components and starts the service.
// It blocks until ctx is cancelled, then performs graceful shutdown.
func Run(ctx context.Context) error {
	// ── OpenTelemetry ──
	otelCfg := appOtel.ConfigFromEnv()
	otelShutdown, err := appOtel.InitProvider(ctx, otelCfg)
	if err != nil {
		fmt.Printf("Failed to initialize OpenTelemetry: %v\n", err)
		otelCfg.Enabled = false
		otelShutdown = func(context.Context) error { return nil }
	}

	// ── Logger ──
	logger.InitWithOTel(otelCfg.Enabled)
	logger.Logger.Info("Starting thai-search-proxy",
		"service", otelCfg.ServiceName,
		"otel_enabled", otelCfg.Enabled,
	)

	// ── Load config ──
	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Error("Failed to load config", "err", err)
		return err
	}

	// ── Dictionary store and hot reload ──
	store := dictionary.NewStore(cfg.Dictionary.Path, logger.Logger)
	if err := store.Load(ctx); err != nil {
		// Degraded start: the store published an empty snapshot and the
		// watcher picks up the file once it becomes valid.
		logger.Logger.Warn("dictionary load failed, starting degraded", "path", cfg.Dictionary.Path, "err", err)
	}
	store.Subscribe(func(snap *dictionary.Snapshot) {
		logger.Logger.Info("dictionary snapshot published", "generation", snap.Generation, "entries", snap.Len())
		if appOtel.Metrics != nil {
			appOtel.Metrics.DictionaryReloads.Add(context.Background(), 1)
		}
	})

	watcher := dictionary.NewWatcher(store, logger.Logger)
	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Logger.Error("dictionary watcher stopped", "err", err)
		}
	}()

	// ── Segmenter chain and tokenizer ──
	lexicon := segment.DefaultLexicon()
	if cfg.Segmenter.LexiconPath != "" {
		custom, lexErr := segment.LoadLexicon(cfg.Segmenter.LexiconPath)
		if lexErr != nil {
			logger.Logger.Warn("custom lexicon load failed, using embedded",
				"path", cfg.Segmenter.LexiconPath, "err", lexErr)
		} else {
			lexicon = custom
		}
	}

	chain, err := segment.FromConfig(logger.Logger, cfg.Segmenter.Timeout, lexicon,
		cfg.Segmenter.Primary, cfg.Segmenter.Fallbacks)
	if err != nil {
		logger.Logger.Error("Failed to build segmenter chain", "err", err)
		return err
	}

	tokenizer, err := tokenize.New(store, chain, cfg.Pipeline.TokenizeCacheSize, logger.Logger)
	if err != nil {
		logger.Logger.Error("Failed to initialize tokenizer", "err", err)
		return err
	}

	// ── Drivers (infrastructure layer) ──
	msClient, err := initMeilisearchClient(cfg)
	if err != nil {
		logger.Logger.Error("Failed to initialize search backend client", "err", err)
		return err
	}
	searchDriver := driver.NewMeilisearchDriver(msClient)

	// ── Gateways (anti-corruption layer) ──
	searchEngine := gateway.NewSearchEngineGateway(searchDriver)

	// ── Use cases (application layer) ──
	stats := telemetry.NewStats()
	weights := usecase.Weights{
		Original:      cfg.Pipeline.Weights.Original,
		Tokenized:     cfg.Pipeline.Weights.Tokenized,
		CompoundSplit: cfg.Pipeline.Weights.CompoundSplit,
		FallbackChar:  cfg.Pipeline.Weights.FallbackChar,
	}

	processUsecase := usecase.NewProcessQueryUsecase(tokenizer, weights,
		cfg.Pipeline.MaxVariants, cfg.Pipeline.QueryProcessTimeout,
		cfg.Pipeline.MinSplitConfidence, logger.Logger)
	dispatchUsecase := usecase.NewDispatchVariantsUsecase(searchEngine,
		cfg.Backend.PoolSize, cfg.Backend.QueueMax,
		cfg.Backend.VariantTimeout, cfg.Backend.SearchTimeout, stats, logger.Logger)
	searchUsecase := usecase.NewSearchProxyUsecase(processUsecase, dispatchUsecase,
		usecase.NewRankResultsUsecase(), utils.NewQuerySanitizer(nil),
		cfg.Pipeline.RequestDeadline, stats, logger.Logger)
	batchUsecase := usecase.NewBatchSearchUsecase(searchUsecase, logger.Logger)
	tokenizeUsecase := usecase.NewTokenizeTextUsecase(tokenizer, stats)
	compoundsUsecase := usecase.NewManageCompoundsUsecase(store, logger.Logger)

	prober := usecase.NewBackendProber(searchEngine, cfg.Backend.ProbeInterval, logger.Logger)
	go prober.Run(ctx)
	healthUsecase := usecase.NewHealthUsecase(store, tokenizer, prober, stats)

	// ── Server ──
	restHandler := rest.NewHandler(searchUsecase, batchUsecase, tokenizeUsecase,
		compoundsUsecase, healthUsecase)
	app := &App{
		echo:         newEchoServer(cfg, otelCfg, restHandler),
		otelShutdown: otelShutdown,
	}

	go func() {
		logger.Logger.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := app.echo.Start(cfg.HTTP.Addr); err != nil && err != http.ErrServerClosed {
			logger.Logger.Error("http", "err", err)
		}
	}()

	// ── Wait for shutdown signal ──
	<-ctx.Done()
	app.shutdown()
	return nil
}

// shutdown performs graceful shutdown of all components.
func (a *App) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.echo.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error("http shutdown error", "err", err)
	}

	otelCtx, otelCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer otelCancel()
	if err := a.otelShutdown(otelCtx); err != nil {
		fmt.Printf("Failed to shutdown OpenTelemetry: %v\n", err)
	}
}
