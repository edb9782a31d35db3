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

	httptransport "github.com/spec-kit/civic-service/internal/api/http"
	"github.com/spec-kit/civic-service/internal/api/http/handlers"
	"github.com/spec-kit/civic-service/internal/auth"
	"github.com/spec-kit/civic-service/internal/config"
	"github.com/spec-kit/civic-service/internal/events"
	"github.com/spec-kit/civic-service/internal/observability"
	"github.com/spec-kit/civic-service/internal/persistence"
	"github.com/spec-kit/civic-service/internal/repository"
	"github.com/spec-kit/civic-service/internal/service"
	"github.com/spec-kit/civic-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	userRepo := repository.NewUserRepository(pool)
	reportRepo := repository.NewReportRepository(pool)
	historyRepo := repository.NewReportHistoryRepository(pool)
	officeRepo := repository.NewOfficeRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)

	var queueRepo repository.QueueRepository
	switch cfg.Queue.Backend {
	case config.QueueBackendRedis:
		queueRepo = repository.NewRedisQueueRepository(redis.Client, cfg.Queue.KeyPrefix)
	default:
		queueRepo = repository.NewQueueRepository(pool)
	}
	logger.Info("queue store selected", zap.String("backend", string(cfg.Queue.Backend)))

	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:    dispatcher,
		Conversations: conversationRepo,
		Publisher:     redis,
		Channel:       cfg.Redis.NotifyChannel,
		Logger:        logger.Named("notifications"),
	})
	notificationWorker := worker.NewNotificationWorker(
		notificationService,
		cfg.Notification.BufferSize,
		cfg.Notification.DeliveryTimeout(),
		logger.Named("notification_worker"),
	)
	worker.StartNotificationWorker(notificationService, notificationWorker)

	authService := service.NewAuthService(cfg.Auth, userRepo)
	queueService := service.NewQueueService(service.QueueDependencies{
		QueueRepo:       queueRepo,
		Dispatcher:      dispatcher,
		Metrics:         metrics,
		Logger:          logger.Named("queue"),
		DispatchRetries: cfg.Queue.DispatchRetries,
	})
	reportService := service.NewReportService(service.ReportDependencies{
		ReportRepo:    reportRepo,
		HistoryRepo:   historyRepo,
		OfficeRepo:    officeRepo,
		Conversations: service.NewConversationGateway(conversationRepo),
		Notifier:      notificationWorker,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger.Named("reports"),
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Metrics:        handlers.NewMetricsHandler(metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Queue:          handlers.NewQueueHandler(queueService),
		Reports:        handlers.NewReportsHandler(reportService),
		External:       handlers.NewExternalHandler(reportService),
		AuthMiddleware: authMiddleware.Handle,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer drainCancel()
	if err := notificationWorker.Stop(drainCtx); err != nil {
		logger.Warn("notification worker did not drain", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
