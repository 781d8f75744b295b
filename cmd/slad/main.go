package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sla-engine/internal/api/http"
	"github.com/spec-kit/sla-engine/internal/api/http/handlers"
	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/notify"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/persistence"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/sla"
	"github.com/spec-kit/sla-engine/internal/sweep"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	trackingRepo := repository.NewTrackingRepository(pool)
	contractRepo := repository.NewContractRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)

	queue := notify.NewRedisQueue(redis.Client, cfg.Queue.KeyPrefix)
	dispatcher := notify.NewDispatcher(queue, cfg.Queue, logger)
	auditDispatcher := events.NewInMemoryDispatcher()

	tracker := sla.NewTracker(sla.TrackerDependencies{
		TrackingRepo: trackingRepo,
		ContractRepo: contractRepo,
		TicketRepo:   ticketRepo,
		Intents:      dispatcher,
		Dispatcher:   auditDispatcher,
		Logger:       logger,
	})

	scheduler := sweep.NewScheduler(ctx, logger)
	scheduler.Add("sla-sweep", cfg.Sweep.Interval(),
		sweep.NewSweeper(trackingRepo, tracker, logger))
	scheduler.Add("escalation-sweep", cfg.Sweep.EscalationInterval(),
		sweep.NewEscalationSweeper(trackingRepo, tracker,
			time.Duration(cfg.Sweep.EscalationGraceMinutes)*time.Minute, logger))
	scheduler.Add("expiry-sweep", cfg.Sweep.ExpiryInterval(),
		sweep.NewExpirySweeper(contractRepo, dispatcher, auditDispatcher,
			cfg.Sweep.ExpiryWarningDays, logger))
	scheduler.Start()
	defer scheduler.Stop()

	worker := notify.NewDeliveryWorker(queue, &notify.LoggingNotifier{Logger: logger},
		time.Duration(cfg.Queue.WorkerPollSeconds)*time.Second, logger)
	go worker.Start(ctx)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tracking: handlers.NewTrackingHandler(trackingRepo),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
