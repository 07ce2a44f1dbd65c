package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omnilend/omnilend-backend/internal/api"
	"github.com/omnilend/omnilend-backend/internal/bridge"
	"github.com/omnilend/omnilend-backend/internal/config"
	"github.com/omnilend/omnilend-backend/internal/custody"
	"github.com/omnilend/omnilend-backend/internal/engine"
	"github.com/omnilend/omnilend-backend/internal/jobs"
	"github.com/omnilend/omnilend-backend/internal/journal"
	"github.com/omnilend/omnilend-backend/internal/ledger"
	"github.com/omnilend/omnilend-backend/internal/log"
	"github.com/omnilend/omnilend-backend/internal/metrics"
	"github.com/omnilend/omnilend-backend/internal/prices"
	"github.com/omnilend/omnilend-backend/internal/prices/httporacle"
	"github.com/omnilend/omnilend-backend/internal/prices/mock"
	"github.com/omnilend/omnilend-backend/internal/prices/static"
	"github.com/omnilend/omnilend-backend/internal/registry"
	"github.com/omnilend/omnilend-backend/internal/store"
	"github.com/omnilend/omnilend-backend/pkg/kv"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting OmniLend API server",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"version", "v1.0.0",
	)

	// Setup metrics
	metricsObj, metricsHandler, err := metrics.Setup("omnilend-api")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Operation journal
	var rec journal.Recorder
	switch cfg.Ledger.JournalBackend {
	case "postgres":
		pg, err := journal.NewPostgres(ctx, cfg.Database.PostgresDSN)
		if err != nil {
			logger.Fatalw("Failed to connect journal database", "error", err)
		}
		defer pg.Close()
		rec = pg
		logger.Infow("Journal backend ready", "backend", "postgres")
	default:
		rec = journal.NewMemory()
		logger.Infow("Journal backend ready", "backend", "memory")
	}

	// Display cache (Redis with in-memory fallback)
	cache, err := store.NewCache(cfg.Cache.RedisAddr, logger)
	if err != nil {
		logger.Fatalw("Failed to setup cache", "error", err)
	}
	defer cache.Close()

	// Delivery dedup store
	var dedup kv.Store = kv.NewMemory()
	if cfg.Cache.RedisAddr != "" && !cache.IsInMemoryMode() {
		dedup = kv.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr}))
	}
	defer dedup.Close()

	// Asset registry and allowed origin chains
	reg := registry.New(cfg.Ledger.OwnerAddress)
	for _, chainID := range cfg.Bridge.AllowedOriginChains {
		if err := reg.SetAllowedOriginChain(cfg.Ledger.OwnerAddress, chainID, true); err != nil {
			logger.Fatalw("Failed to allow origin chain", "chain", chainID, "error", err)
		}
	}

	// Price provider
	var provider prices.Provider
	switch cfg.Prices.Provider {
	case "mock":
		provider = mock.NewGenerator(logger, cfg.Prices.MockBasePrice, cfg.Prices.MockVolatility)
	case "http":
		provider = httporacle.NewProvider(cfg.Prices.OracleURL, logger)
	default:
		staticProvider, err := static.NewProviderFromSpec(cfg.Prices.StaticPrices)
		if err != nil {
			logger.Fatalw("Failed to parse static prices", "error", err)
		}
		provider = staticProvider
	}

	mapping := prices.NewRegistry()
	if err := prices.ParseMappings(mapping, cfg.Prices.Mappings); err != nil {
		logger.Fatalw("Failed to parse price mappings", "error", err)
	}
	priceSvc := prices.NewService(provider, mapping, cfg.Prices.MaxAge)

	// Ledger core
	vault := custody.NewMemoryVault()
	book := ledger.NewBook()
	valuator := ledger.NewValuator(priceSvc, reg)
	eng := engine.New(logger, reg, book, valuator, vault, rec)

	// Cross-chain adapter. The static gateway accepts every send; a real
	// transport replaces it per deployment.
	gateway := bridge.NewStaticGateway()
	adapter := bridge.NewAdapter(logger, bridge.Config{
		GatewayCaller:      cfg.Bridge.GatewayCaller,
		DestinationChainID: cfg.Bridge.DestinationChainID,
		RelayerAddress:     cfg.Bridge.RelayerAddress,
		MessageMaxAge:      cfg.Bridge.MessageMaxAge,
		DedupTTL:           cfg.Bridge.DedupTTL,
		Metrics:            metricsObj,
	}, reg, eng, vault, vault, gateway, rec, dedup)

	// Background price refresher feeds the display cache
	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()

	refresher := jobs.NewPriceRefresher(provider, mapping, reg, cache, logger, cfg.Prices.RefreshInterval)
	go refresher.Start(jobCtx)

	// Setup API handler and middleware
	handler := api.NewHandler(eng, adapter, reg, rec, cache, provider, logger, metricsObj)
	middleware := api.NewMiddleware(logger, metricsObj)

	router := handler.Routes(middleware, cfg.Security.CORSAllowedOrigins, cfg.Security.RateLimitRPM)

	logger.Infow("CORS configured", "allowed_origins", cfg.Security.CORSAllowedOrigins)

	// Add metrics endpoint
	router.Handle("/metrics", metricsHandler)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("API server starting", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatalw("Server startup failed", "error", err)
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}

		logger.Infow("Server stopped")
	}
}
