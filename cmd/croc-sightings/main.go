package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/croc-sightings/internal/api"
	"github.com/mr1hm/croc-sightings/internal/config"
	"github.com/mr1hm/croc-sightings/internal/events"
	"github.com/mr1hm/croc-sightings/internal/ingestion"
	"github.com/mr1hm/croc-sightings/internal/logging"
	"github.com/mr1hm/croc-sightings/internal/observability"
	"github.com/mr1hm/croc-sightings/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port, "data_url", cfg.Data.URL)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	broadcaster := events.NewBroadcaster()
	fetcher := ingestion.NewFetcher(cfg.Data.FetchTimeout)

	// Start ingestion manager; preloads the default row limit in the background
	mgr := ingestion.NewManager(cfg, fetcher, db, broadcaster, metrics, clockwork.NewRealClock())
	mgr.Start(ctx)

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.RequestIDMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.MetricsMiddleware(metrics))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimitRPS))

	handler := api.NewHandler(mgr, db, broadcaster, metrics)
	handler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	broadcaster.Close() // end open event streams so Shutdown does not wait on them

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// no more preload requests can arrive once the server is down
	cancel()
	mgr.Stop()

	slog.Info("shutdown complete")
}
