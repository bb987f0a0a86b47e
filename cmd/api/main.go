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

	httptransport "github.com/soulace/support-service/internal/api/http"
	"github.com/soulace/support-service/internal/api/http/handlers"
	"github.com/soulace/support-service/internal/clock"
	"github.com/soulace/support-service/internal/config"
	"github.com/soulace/support-service/internal/crisis"
	"github.com/soulace/support-service/internal/events"
	"github.com/soulace/support-service/internal/kv"
	"github.com/soulace/support-service/internal/matcher"
	"github.com/soulace/support-service/internal/observability"
	"github.com/soulace/support-service/internal/persistence"
	"github.com/soulace/support-service/internal/queue"
	"github.com/soulace/support-service/internal/registry"
	"github.com/soulace/support-service/internal/repository"
	"github.com/soulace/support-service/internal/service"
	"github.com/soulace/support-service/internal/stream"
	"github.com/soulace/support-service/internal/worker"
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

	var (
		store kv.Store
		pg    *persistence.Postgres
		rd    *persistence.Redis
	)

	switch cfg.Store.Backend {
	case "postgres":
		pg, err = persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = kv.NewPostgresStore(pg.PoolHandle())
	case "redis":
		rd = persistence.NewRedis(cfg.Redis, logger)
		defer rd.Close()
		store = kv.NewRedisStore(rd.Client)
	default:
		store = kv.NewMemoryStore()
	}
	logger.Info("store backend selected", zap.String("backend", cfg.Store.Backend))

	index := kv.NewIndex(store)
	requestRepo := repository.NewRequestRepository(index)
	workerRepo := repository.NewWorkerRepository(index)
	sessionRepo := repository.NewSessionRepository(index)
	messageRepo := repository.NewMessageRepository(index)

	clk := clock.NewReal()
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	observability.RegisterEventCounters(dispatcher, metrics)

	waitQueue := queue.New()
	workerRegistry := registry.New(workerRepo)
	detector := crisis.NewPhraseDetector(cfg.Crisis.Phrases)

	sessionService := service.NewSessionService(service.SessionDependencies{
		SessionRepo: sessionRepo,
		MessageRepo: messageRepo,
		RequestRepo: requestRepo,
		Registry:    workerRegistry,
		Dispatcher:  dispatcher,
		Detector:    detector,
		Clock:       clk,
		Logger:      logger,
	})

	engine := matcher.NewEngine(matcher.Dependencies{
		Queue:       waitQueue,
		Registry:    workerRegistry,
		RequestRepo: requestRepo,
		SessionRepo: sessionRepo,
		WorkerRepo:  workerRepo,
		Sessions:    sessionService,
		Dispatcher:  dispatcher,
		Clock:       clk,
		Logger:      logger,
		Tick:        cfg.Matching.Tick(),
		AvgWindow:   cfg.Matching.AvgWindow,
		DefaultWait: time.Duration(cfg.Matching.DefaultWaitMinutes) * time.Minute,
	})

	supportService := service.NewSupportService(service.SupportDependencies{
		Queue:       waitQueue,
		RequestRepo: requestRepo,
		Engine:      engine,
		Detector:    detector,
		Dispatcher:  dispatcher,
		Clock:       clk,
		Logger:      logger,
	})
	workerService := service.NewWorkerService(service.WorkerDependencies{
		Registry:   workerRegistry,
		Dispatcher: dispatcher,
		Clock:      clk,
		Logger:     logger,
	})

	if err := engine.Reconcile(ctx); err != nil {
		logger.Fatal("failed to reconcile persisted state", zap.Error(err))
	}
	engine.RegisterHandlers(ctx)

	hub := stream.NewHub()
	hub.RegisterHandlers(dispatcher)

	escalationService := service.NewEscalationService(dispatcher, logger, cfg.Crisis)
	responderService := service.NewResponderService(sessionService, dispatcher, clk, logger, cfg.Responder)
	worker.StartEscalationWorker(escalationService, responderService)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.Store.Backend, pg, rd),
		Metrics:  handlers.NewMetricsHandler(metrics),
		Requests: handlers.NewRequestsHandler(supportService),
		Sessions: handlers.NewSessionsHandler(sessionService),
		Workers:  handlers.NewWorkersHandler(workerService),
		Stream:   handlers.NewStreamHandler(hub, sessionService),
	})

	engine.Run(ctx)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	engine.Stop()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
