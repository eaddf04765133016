package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/flowiq/scheduling-platform/cmd/mainconfig"
	"github.com/flowiq/scheduling-platform/internal/app/bootstrap"
	appconfig "github.com/flowiq/scheduling-platform/internal/config"
	"github.com/flowiq/scheduling-platform/internal/observability/metrics"
	"github.com/flowiq/scheduling-platform/internal/reminders"
	"github.com/flowiq/scheduling-platform/pkg/logging"
)

func main() {
	// Load .env file in development; real deployments set the environment.
	if err := godotenv.Load(); err == nil {
		log.Println("loaded configuration from .env")
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting reminder worker",
		"env", cfg.Env,
		"poll_interval", cfg.ReminderPollInterval,
		"batch_size", cfg.ReminderBatchSize,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.BuildDBPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	emailSender := bootstrap.BuildEmailSender(cfg, awsCfg, logger)

	var smsSender reminders.SMSSender
	if client := bootstrap.BuildSMSClient(cfg, logger.Logger); client != nil {
		smsSender = client
		logger.Info("sms sender configured", "from", cfg.SMSFromNumber)
	} else {
		logger.Warn("no sms gateway configured; sms reminders will retry until exhausted")
	}

	worker := reminders.NewWorker(reminders.NewStore(pool), emailSender, smsSender, logger).
		WithInterval(cfg.ReminderPollInterval).
		WithBatchSize(cfg.ReminderBatchSize).
		WithMaxAttempts(cfg.ReminderMaxAttempts).
		WithBaseDelay(cfg.ReminderRetryBaseDelay).
		WithMetrics(metrics.NewSchedulingMetrics(prometheus.NewRegistry()))

	worker.Run(ctx)
	logger.Info("reminder worker stopped")
}
