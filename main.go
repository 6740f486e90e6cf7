package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mpv-remote/internal/handlers"
	"mpv-remote/internal/logging"
	"mpv-remote/internal/metrics"
	"mpv-remote/internal/middleware"
	"mpv-remote/internal/mpv"
	"mpv-remote/internal/shares"
	"mpv-remote/internal/startup"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	startup.LogToolAvailability(config.MPVPath)

	if config.MetricsEnabled {
		metrics.InitializeMetrics()
	}

	// Instance manager with its dead-instance sweeper
	manager := mpv.NewManager(mpv.Options{
		MPVPath:       config.MPVPath,
		SocketDir:     config.SocketDir,
		SweepInterval: config.SweepInterval,
	})
	manager.Start()

	// Media library: index, scanner, thumbnail pipeline
	library := shares.New(shares.Options{
		Shares:            config.MediaShares,
		CacheFile:         config.CacheFile,
		ThumbnailDir:      config.ThumbnailDir,
		ThumbnailsEnabled: config.ThumbnailsEnabled,
	})
	if err := library.Init(); err != nil {
		startup.LogFatal("Failed to initialize media library: %v", err)
	}

	// Setup router
	h := handlers.New(manager, library)
	router := h.Router()
	if config.MetricsEnabled {
		router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}
	startup.LogHTTPRoutes(router)

	// Middleware chain: metrics innermost, then access log, then gzip
	var handler http.Handler = router
	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler = middleware.Logger(loggingConfig)(handler)
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go handleShutdown(srv, manager, library)

	startup.LogServerStarted(config.Port, config.MetricsEnabled, time.Since(startTime))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func handleShutdown(srv *http.Server, manager *mpv.Manager, library *shares.MediaShare) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logging.Info("%s received, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	}

	// Watcher, pipeline, and a final snapshot save
	library.Shutdown()

	// Stops the sweeper; running players are left playing on purpose
	manager.Shutdown()

	logging.Info("Shutdown complete")
}
