package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bookstore-service/config"
	"bookstore-service/consumers"
	"bookstore-service/database"
	"bookstore-service/idempotency"
	"bookstore-service/rabbitmq"
	"bookstore-service/repositories/memory"
	"bookstore-service/repositories/mysql"
	"bookstore-service/router"
	"bookstore-service/services"
	"bookstore-service/utils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store initialization failed", zap.Error(err))
	}
	defer closeStore()

	deps.Payments = services.NewMockGateway(services.WithDelay(cfg.MockPaymentDelay))
	deps.Logger = logger

	var rmq *rabbitmq.RabbitMQ
	if cfg.MessagingEnabled() {
		rmq, err = rabbitmq.NewRabbitMQ(cfg, logger)
		if err != nil {
			logger.Fatal("RabbitMQ initialization failed", zap.Error(err))
		}
		defer rmq.Close()

		if err := rmq.SetupQueues(); err != nil {
			logger.Fatal("failed to set up RabbitMQ queues", zap.Error(err))
		}
		deps.Events = rmq
		if rmq.DelayedEnabled() {
			deps.PaymentCheckDelay = cfg.PaymentCheckDelay
		} else {
			logger.Warn("delayed exchange unavailable, unpaid orders will not be auto-cancelled")
		}
	} else {
		logger.Info("RABBITMQ_URL not set, order events disabled")
	}

	orderService, err := services.NewOrderService(deps)
	if err != nil {
		logger.Fatal("order service initialization failed", zap.Error(err))
	}

	if rmq != nil {
		if err := consumers.NewOrderConsumer(orderService, logger).Start(ctx, rmq.Channel, cfg); err != nil {
			logger.Fatal("failed to start order consumer", zap.Error(err))
		}
	}

	idemStore, closeIdem := buildIdempotencyStore(cfg, logger)
	defer closeIdem()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: router.NewRouter(router.Deps{
			Orders:         orderService,
			Logger:         logger,
			JWTSecret:      cfg.JWTSecret,
			Idempotency:    idemStore,
			IdempotencyTTL: cfg.IdempotencyTTL,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("bookstore service starting", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (services.OrderServiceDeps, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		memory.SeedDemoCatalog(store)
		logger.Warn("using in-memory store, data is lost on restart")
		return services.OrderServiceDeps{
			Books:      memory.NewBookRepository(store),
			Orders:     memory.NewOrderRepository(store),
			Stats:      memory.NewStatsRepository(store),
			UnitOfWork: store,
		}, func() {}, nil

	case config.StoreDriverMySQL:
		db, err := database.Open(ctx, cfg)
		if err != nil {
			return services.OrderServiceDeps{}, nil, err
		}
		if err := database.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return services.OrderServiceDeps{}, nil, err
		}
		return services.OrderServiceDeps{
				Books:      mysql.NewBookRepository(db),
				Orders:     mysql.NewOrderRepository(db),
				Stats:      mysql.NewStatsRepository(db),
				UnitOfWork: mysql.NewUnitOfWork(db),
			}, func() {
				if err := db.Close(); err != nil {
					logger.Warn("close database", zap.Error(err))
				}
			}, nil

	default:
		return services.OrderServiceDeps{}, nil, errors.New("unknown STORE_DRIVER " + cfg.StoreDriver)
	}
}

func buildIdempotencyStore(cfg *config.Config, logger *zap.Logger) (idempotency.Store, func()) {
	if cfg.RedisAddr == "" {
		return idempotency.NewMemoryStore(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	return idempotency.NewRedisStore(client), func() {
		if err := client.Close(); err != nil {
			logger.Warn("close redis", zap.Error(err))
		}
	}
}
