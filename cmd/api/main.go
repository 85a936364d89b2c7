package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/civic-kit/civic-issue-service/internal/api/http"
	"github.com/civic-kit/civic-issue-service/internal/api/http/handlers"
	"github.com/civic-kit/civic-issue-service/internal/auth"
	"github.com/civic-kit/civic-issue-service/internal/config"
	"github.com/civic-kit/civic-issue-service/internal/events"
	"github.com/civic-kit/civic-issue-service/internal/mail"
	"github.com/civic-kit/civic-issue-service/internal/observability"
	"github.com/civic-kit/civic-issue-service/internal/persistence"
	"github.com/civic-kit/civic-issue-service/internal/repository"
	"github.com/civic-kit/civic-issue-service/internal/service"
	"github.com/civic-kit/civic-issue-service/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisConn := persistence.NewRedis(cfg.Redis, logger)
	defer redisConn.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	workOrderRepo := repository.NewWorkOrderRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	var mailer mail.Mailer
	if cfg.Notification.SMTPAddr != "" {
		mailer = mail.NewSMTPMailer(
			cfg.Notification.SMTPAddr,
			cfg.Notification.EmailFrom,
			cfg.Notification.SMTPUsername,
			cfg.Notification.SMTPPassword,
		)
	} else {
		mailer = mail.NewLogMailer(logger)
	}

	notificationService := service.NewNotificationService(
		dispatcher,
		redisConn.ClientHandle(),
		mailer,
		logger,
		metrics,
		cfg.Notification,
	)
	notificationService.RegisterHandlers()

	notificationWorker := worker.NewNotificationWorker(
		redisConn.ClientHandle(),
		cfg.Notification.QueueKey,
		mailer,
		logger,
	)
	notificationWorker.Start(ctx)

	authService := service.NewAuthService(*cfg, userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
	})
	workOrderService := service.NewWorkOrderService(service.WorkOrderDependencies{
		WorkOrderRepo: workOrderRepo,
		UserRepo:      userRepo,
		Dispatcher:    dispatcher,
	})

	authMiddleware := auth.NewMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisConn),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		WorkOrders:     handlers.NewWorkOrdersHandler(workOrderService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	notificationWorker.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
