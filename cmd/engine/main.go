package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/minhleeee123/MantleFlow-sub001/internal/adapters/config"
	"github.com/minhleeee123/MantleFlow-sub001/internal/adapters/errors/noop"
	"github.com/minhleeee123/MantleFlow-sub001/internal/adapters/errors/sentry"
	"github.com/minhleeee123/MantleFlow-sub001/internal/adapters/ledger"
	"github.com/minhleeee123/MantleFlow-sub001/internal/adapters/notify"
	"github.com/minhleeee123/MantleFlow-sub001/internal/adapters/oracle"
	"github.com/minhleeee123/MantleFlow-sub001/internal/adapters/postgres"
	"github.com/minhleeee123/MantleFlow-sub001/internal/adapters/redis"
	"github.com/minhleeee123/MantleFlow-sub001/internal/metrics"
	repo "github.com/minhleeee123/MantleFlow-sub001/internal/repository/postgres"
	"github.com/minhleeee123/MantleFlow-sub001/internal/services/evaluator"
	"github.com/minhleeee123/MantleFlow-sub001/internal/services/executor"
	"github.com/minhleeee123/MantleFlow-sub001/internal/services/notifier"
	"github.com/minhleeee123/MantleFlow-sub001/internal/services/pricing"
	"github.com/minhleeee123/MantleFlow-sub001/internal/workers"
	"github.com/minhleeee123/MantleFlow-sub001/internal/workers/trading"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	// Databases
	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pgClient.Close()

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Repositories
	triggerRepo := repo.NewTriggerRepository(pgClient.DB())
	settlementRepo := repo.NewSettlementRepository(pgClient.DB())

	// Chain and oracle adapters
	ledgerClient, err := ledger.NewClient(cfg.Chain)
	if err != nil {
		log.Fatalf("Failed to connect to chain RPC: %v", err)
	}
	defer ledgerClient.Close()

	oracleClient := oracle.NewClient(cfg.Oracle)

	// Services
	pricingService := pricing.NewService(oracleClient, redisClient, pricing.Options{
		CacheTTL:     cfg.Oracle.CacheTTL,
		CandleLimit:  cfg.Oracle.CandleLimit,
		MetricPeriod: cfg.Oracle.MetricPeriod,
	})
	evaluatorService := evaluator.NewService(pricingService)
	notifierService := notifier.NewService(initEmailSender(cfg, log), initTelegramSender(cfg, log))
	executorService := executor.NewService(triggerRepo, settlementRepo, ledgerClient, notifierService)

	// Metrics
	registry := prometheus.NewRegistry()
	engineMetrics := metrics.NewEngine(registry)
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(cfg.Metrics.Port, registry); err != nil {
				log.Errorf("Metrics server stopped: %v", err)
			}
		}()
	}

	// Workers
	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(trading.NewTriggerScanner(
		triggerRepo,
		pricingService,
		evaluatorService,
		executorService,
		engineMetrics,
		cfg.Engine.PollInterval,
		cfg.Engine.ExecutionDelay,
		cfg.Engine.Enabled,
	))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	log.Info("System initialized successfully")

	waitForShutdown(ctx, cancel, scheduler, notifierService, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initEmailSender builds the SMTP channel; nil when not configured
func initEmailSender(cfg *config.Config, log *logger.Logger) notifier.EmailSender {
	if cfg.Notify.SMTPHost == "" {
		log.Info("Email notifications disabled")
		return nil
	}
	return notify.NewEmailSender(cfg.Notify)
}

// initTelegramSender builds the Telegram channel; nil when not configured
func initTelegramSender(cfg *config.Config, log *logger.Logger) notifier.TelegramSender {
	if cfg.Notify.TelegramToken == "" {
		log.Info("Telegram notifications disabled")
		return nil
	}

	sender, err := notify.NewTelegramSender(cfg.Notify.TelegramToken)
	if err != nil {
		log.Warnf("Failed to initialize Telegram sender: %v", err)
		return nil
	}
	return sender
}

// waitForShutdown waits for a signal and performs graceful shutdown
func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	scheduler *workers.Scheduler,
	notifierService *notifier.Service,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	if err := scheduler.Stop(); err != nil {
		log.Warnf("Scheduler shutdown: %v", err)
	}

	// Let in-flight notifications drain
	notifierService.Wait()

	cancel()

	if errorTracker != nil {
		if err := errorTracker.Flush(ctx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
