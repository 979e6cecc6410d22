package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leafsii/crypto-tracker/internal/api"
	"github.com/leafsii/crypto-tracker/internal/assets"
	"github.com/leafsii/crypto-tracker/internal/config"
	"github.com/leafsii/crypto-tracker/internal/jobs"
	"github.com/leafsii/crypto-tracker/internal/log"
	"github.com/leafsii/crypto-tracker/internal/market"
	"github.com/leafsii/crypto-tracker/internal/metrics"
	"github.com/leafsii/crypto-tracker/internal/store"
	"github.com/leafsii/crypto-tracker/internal/view"
	"github.com/leafsii/crypto-tracker/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewSugar(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting crypto tracker",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"tickInterval", cfg.Ticker.Interval,
	)

	for _, w := range cfg.Warnings() {
		logger.Warnw("Risky configuration", "detail", w)
	}

	metricsObj, metricsHandler, err := metrics.Setup("crypto-tracker")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	cache, err := store.NewCache(cfg.Cache.RedisAddr, cfg.Cache.TableTTL, logger, metricsObj)
	if err != nil {
		logger.Fatalw("Failed to setup cache", "error", err)
	}
	defer cache.Close()

	assetStore, err := assets.NewStore(assets.DefaultAssets(), market.NewRand(cfg.Ticker.RandomSeed))
	if err != nil {
		logger.Fatalw("Invalid seed dataset", "error", err)
	}
	if cfg.Assets.SeedFile != "" {
		// A bad seed file leaves the built-in dataset in place.
		_ = assets.Reload(assetStore, cfg.Assets.SeedFile, logger)
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	publisher := jobs.NewSnapshotPublisher(assetStore, cache, logger, metricsObj)
	go func() {
		if err := publisher.Run(appCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorw("Snapshot publisher error", "error", err)
		}
	}()

	wsHub := ws.NewHub(cache, cfg.Security.CORSAllowedOrigins, logger, metricsObj)
	sseHandler := ws.NewSSEHandler(cache, logger, metricsObj)
	go wsHub.Run(appCtx)

	ticker := jobs.NewTicker(assetStore, cfg.Ticker.Interval, logger, metricsObj)
	if cfg.Ticker.AutoStart {
		if err := ticker.Start(appCtx); err != nil {
			logger.Fatalw("Failed to start ticker", "error", err)
		}
	}
	defer ticker.Stop()

	renderer, err := view.NewRenderer()
	if err != nil {
		logger.Fatalw("Failed to parse dashboard template", "error", err)
	}

	handler := api.NewHandler(appCtx, assetStore, ticker, cache, wsHub.HandleWebSocket, sseHandler.HandleSSE, renderer, logger)
	middleware := api.NewMiddleware(logger, metricsObj)
	router := handler.Routes(middleware, cfg.Security.CORSAllowedOrigins, cfg.Security.RateLimitRPM, metricsHandler)

	logger.Infow("CORS configured", "allowed_origins", cfg.Security.CORSAllowedOrigins)
	if cfg.IsDev() {
		if _, port, err := net.SplitHostPort(cfg.HTTPAddr); err == nil {
			logger.Infow("Dashboard available", "url", "http://localhost:"+port+"/")
		}
	}

	// No WriteTimeout: SSE and WebSocket connections stay open. Request
	// contexts derive from appCtx so cancelling it ends open streams.
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		BaseContext:       func(net.Listener) context.Context { return appCtx },
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server starting", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatalw("Server startup failed", "error", err)
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		// Stop producing updates before closing stream connections.
		ticker.Stop()
		appCancel()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}
		logger.Infow("Server stopped")
	}
}
