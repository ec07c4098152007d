// main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"hotel-booking/cmd"
	"hotel-booking/internal/data/repository"
	"hotel-booking/internal/jobs"
	"hotel-booking/internal/wire"
	"hotel-booking/pkg/broker"
	"hotel-booking/pkg/database"
	"hotel-booking/pkg/payment"
	"hotel-booking/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.InitDB(ctx, config.Database, config.App.Name)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Redis is optional: without it room policies are read uncached and
	// sweeps run unguarded, which is safe for a single replica.
	var locker jobs.Locker
	rdb, err := database.InitRedis(ctx, config.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, running without room cache and job lock", zap.Error(err))
	} else {
		defer rdb.Close()
		repos.Room = repository.NewCachedRoomRepository(repos.Room, rdb, config.Redis.RoomCacheTTL, logger)
		locker = jobs.NewRedisLocker(rdb, logger)
		logger.Info("Redis connected", zap.String("addr", config.Redis.Addr))
	}

	var publisher broker.Publisher = broker.NoopPublisher{}
	if config.Broker.URL != "" {
		rabbit, err := broker.NewRabbitPublisher(config.Broker.URL, config.Broker.Exchange, logger)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, domain events are dropped", zap.Error(err))
		} else {
			defer rabbit.Close()
			publisher = rabbit
			logger.Info("RabbitMQ connected", zap.String("exchange", config.Broker.Exchange))
		}
	}

	gateway := payment.NewStripeGateway(config.Payment.SecretKey, config.Payment.WebhookSecret)

	// Wire all dependencies
	app := wire.Wiring(repos, gateway, publisher, config, logger)

	scheduler := jobs.NewScheduler(locker, config.Jobs.LockTTL, logger)
	scheduler.Add(
		jobs.NewBookingExpirer(repos, app.Service.Booking, config.Jobs.BookingExpireAfter, config.Jobs.BatchSize, logger).
			Task(config.Jobs.BookingExpireInterval),
		jobs.NewPaymentExpirer(app.Service.Payment, config.Jobs.PaymentExpireAfter).
			Task(config.Jobs.PaymentExpireInterval),
		jobs.NewBookingReconciler(repos, app.Service.Booking, config.Jobs.ReconcileSafetyDelay, config.Jobs.BatchSize, logger).
			Task(config.Jobs.ReconcileInterval),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Start(ctx)
	})
	g.Go(func() error {
		return cmd.APIServer(ctx, app.Router, config.App.Port, logger)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application stopped with error", zap.Error(err))
		return
	}

	logger.Info("Application stopped")
}
