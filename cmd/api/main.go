package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/market-service/internal/ai"
	httptransport "github.com/spec-kit/market-service/internal/api/http"
	"github.com/spec-kit/market-service/internal/api/http/handlers"
	"github.com/spec-kit/market-service/internal/api/ws"
	"github.com/spec-kit/market-service/internal/config"
	"github.com/spec-kit/market-service/internal/domain"
	"github.com/spec-kit/market-service/internal/events"
	"github.com/spec-kit/market-service/internal/observability"
	"github.com/spec-kit/market-service/internal/persistence"
	"github.com/spec-kit/market-service/internal/realtime"
	"github.com/spec-kit/market-service/internal/repository"
	"github.com/spec-kit/market-service/internal/scheduler"
	"github.com/spec-kit/market-service/internal/service"
	"github.com/spec-kit/market-service/internal/worker"
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

	var (
		userRepo        repository.UserRepository
		postRepo        repository.PostRepository
		appointmentRepo repository.AppointmentRepository
		messageRepo     repository.MessageRepository
	)
	if pg.Pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		userRepo = repository.NewUserRepository(pg.Pool)
		postRepo = repository.NewPostRepository(pg.Pool)
		appointmentRepo = repository.NewAppointmentRepository(pg.Pool)
		messageRepo = repository.NewMessageRepository(pg.Pool)
	} else {
		store := repository.NewMemoryStore(cfg.Storage.SnapshotPath, logger)
		userRepo = store.Users()
		postRepo = store.Posts()
		appointmentRepo = store.Appointments()
		messageRepo = store.Messages()
	}

	if err := userRepo.SeedIfEmpty(ctx, domain.SeedUsers()); err != nil {
		logger.Fatal("failed to seed users", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	hub := realtime.NewHub(logger, metrics)

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()
	if rdb.Ping(ctx) == nil {
		relay := realtime.NewRedisRelay(rdb.Client, logger)
		hub.SetRelay(relay)
		go relay.Run(ctx, hub)
	}

	reminders := scheduler.New(dispatcher, scheduler.SystemClock(), logger, metrics)
	worker.StartRoomNotifier(worker.NewRoomNotifier(hub, logger), dispatcher)

	locks := service.NewListingLocks()
	statusCoord := service.NewPostStatusCoordinator(postRepo)

	chatService := service.NewChatService(postRepo, messageRepo, userRepo, dispatcher, locks, logger)
	appointmentService := service.NewAppointmentService(service.AppointmentDependencies{
		PostRepo:        postRepo,
		AppointmentRepo: appointmentRepo,
		StatusCoord:     statusCoord,
		Reminders:       reminders,
		Dispatcher:      dispatcher,
		Locks:           locks,
		Logger:          logger,
	})
	postService := service.NewPostService(service.PostDependencies{
		PostRepo:        postRepo,
		AppointmentRepo: appointmentRepo,
		UserRepo:        userRepo,
		Chat:            chatService,
		Reminders:       reminders,
		Locks:           locks,
		Logger:          logger,
	})

	if err := reminders.Rehydrate(ctx, appointmentRepo); err != nil {
		logger.Fatal("failed to rehydrate reminders", zap.Error(err))
	}

	aiClient := ai.NewClient(cfg.AI, logger)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:       handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb),
		Posts:        handlers.NewPostsHandler(postService),
		Appointments: handlers.NewAppointmentsHandler(appointmentService),
		AI:           handlers.NewAIHandler(aiClient),
	})
	ws.NewHandler(hub, chatService, logger).Register(app)

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
