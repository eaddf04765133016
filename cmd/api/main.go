package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowiq/scheduling-platform/internal/api/router"
	"github.com/flowiq/scheduling-platform/internal/app/bootstrap"
	appconfig "github.com/flowiq/scheduling-platform/internal/config"
	"github.com/flowiq/scheduling-platform/internal/observability/metrics"
	"github.com/flowiq/scheduling-platform/internal/realtime"
	"github.com/flowiq/scheduling-platform/internal/reminders"
	"github.com/flowiq/scheduling-platform/internal/scheduling"
	"github.com/flowiq/scheduling-platform/pkg/logging"
)

func main() {
	// Load .env file in development; real deployments set the environment.
	if err := godotenv.Load(); err == nil {
		log.Println("loaded configuration from .env")
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting scheduling-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool, err := bootstrap.BuildDBPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	registry, err := bootstrap.BuildTenantRegistry(cfg, logger)
	if err != nil {
		logger.Error("failed to load tenant registry", "error", err)
		os.Exit(1)
	}

	// Redis powers the live calendar feed; the API degrades without it.
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector())
	schedMetrics := metrics.NewSchedulingMetrics(promRegistry)

	templateStore := scheduling.NewTemplateStore(pool)
	slotStore := scheduling.NewSlotStore(pool)

	reminderScheduler := reminders.NewScheduler(
		reminders.NewStore(pool), cfg.ReminderOffsets, logger)

	service := scheduling.NewService(templateStore, slotStore, logger).
		WithReminders(reminderScheduler).
		WithMetrics(schedMetrics)

	var feed *realtime.Hub
	if redisClient != nil {
		service = service.WithChangeFeed(realtime.NewPublisher(redisClient, logger))
		feed = realtime.NewHub(redisClient, cfg.CORSAllowedOrigins, logger)
	}

	schedulingHandler := scheduling.NewHandler(scheduling.HandlerConfig{
		Service:           service,
		Templates:         templateStore,
		DefaultWindowDays: cfg.GenerateWindowDays,
		Logger:            logger,
	})

	r := router.New(&router.Config{
		Logger:             logger,
		Registry:           registry,
		Scheduling:         schedulingHandler,
		Feed:               feed,
		MetricsHandler:     promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
		HealthHandler:      healthHandler(pool),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		BookingRate:        cfg.BookingRate,
		BookingBurst:       cfg.BookingBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

type pinger interface {
	Ping(ctx context.Context) error
}

func healthHandler(db pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if err := db.Ping(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}
