package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"media-catalog/internal/database"
	"media-catalog/internal/enrichment"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/handlers"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
	"media-catalog/internal/middleware"
	"media-catalog/internal/scanner"
	"media-catalog/internal/startup"
	"media-catalog/internal/workers"
)

func main() {
	startTime := time.Now()
	ctx := context.Background()

	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		logging.Fatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Keep connection-pool metrics fresh
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		for range ticker.C {
			db.UpdateDBMetrics()
		}
	}()

	// Enrichment collaborators
	startup.LogEnrichmentInit(config.ThumbnailsEnabled)
	retry := filesystem.DefaultRetryConfig()
	extractor := enrichment.NewExtractor(db, retry)
	thumbnailer := enrichment.NewThumbnailer(db, config.ThumbnailDir, config.ThumbnailsEnabled)
	categorizer := enrichment.NewCategorizer(db)

	// Scan engine
	orch := scanner.NewOrchestrator(db, db, extractor, thumbnailer, categorizer, retry, workers.ForIO(8))

	// Scheduler
	libs, err := db.Libraries(ctx)
	if err != nil {
		logging.Fatal("Failed to load libraries: %v", err)
	}
	startup.LogSchedulerInit(config.ScanInterval, len(libs))

	registry := scanner.NewIntervalRegistry()
	sched := scanner.NewScheduler(db, orch, registry, config.ScanInterval.String())
	sched.SetCleanupTask(config.CleanupInterval.String(), func() {
		if _, err := thumbnailer.CleanupOrphans(context.Background()); err != nil {
			logging.Warn("Thumbnail cleanup failed: %v", err)
		}
	})
	if err := sched.Start(ctx); err != nil {
		logging.Fatal("Failed to start scheduler: %v", err)
	}
	startup.LogSchedulerStarted()

	// HTTP API
	h := handlers.New(db, orch, sched)
	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	mwConfig := middleware.DefaultConfig()
	mwConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Metrics(mwConfig)(middleware.Logger(mwConfig)(router))

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:        ":" + config.MetricsPort,
			Handler:     metricsMux,
			ReadTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, registry, orch)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Libraries
	api.HandleFunc("/libraries", h.CreateLibrary).Methods("POST")
	api.HandleFunc("/libraries", h.ListLibraries).Methods("GET")
	api.HandleFunc("/libraries/{id}", h.GetLibrary).Methods("GET")
	api.HandleFunc("/libraries/{id}", h.UpdateLibrary).Methods("PUT")
	api.HandleFunc("/libraries/{id}", h.DeleteLibrary).Methods("DELETE")
	api.HandleFunc("/libraries/{id}/media", h.ListLibraryMedia).Methods("GET")

	// Scanning
	api.HandleFunc("/libraries/{id}/scan", h.TriggerScan).Methods("POST")
	api.HandleFunc("/libraries/{id}/schedule", h.UpdateSchedule).Methods("PUT")
	api.HandleFunc("/scheduler/jobs", h.ListScheduledJobs).Methods("GET")

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, registry *scanner.IntervalRegistry, orch *scanner.Orchestrator) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping scheduler")
	registry.Stop()
	startup.LogShutdownStepComplete("Scheduler stopped")

	startup.LogShutdownStep("Draining enrichment jobs")
	orch.Drain()
	startup.LogShutdownStepComplete("Enrichment drained")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}

	startup.LogShutdownComplete()
}
