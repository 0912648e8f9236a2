package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/teleclinic/telehealth-backend/internal/api"
	"github.com/teleclinic/telehealth-backend/internal/booking"
	"github.com/teleclinic/telehealth-backend/internal/config"
	"github.com/teleclinic/telehealth-backend/internal/db"
	"github.com/teleclinic/telehealth-backend/internal/logging"
	"github.com/teleclinic/telehealth-backend/internal/notify"
	"github.com/teleclinic/telehealth-backend/internal/redisclient"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	logger.Info("api-server starting",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("error closing redis", zap.Error(err))
		}
	}()
	logger.Info("connected to Redis")

	amqpConn, err := amqp091.Dial(cfg.AMQPURL)
	if err != nil {
		logger.Fatal("amqp connection error", zap.Error(err))
	}
	defer amqpConn.Close()
	logger.Info("connected to RabbitMQ")

	pusher, err := notify.NewAMQPPusher(amqpConn)
	if err != nil {
		logger.Fatal("amqp pusher init error", zap.Error(err))
	}
	defer pusher.Close()

	store := booking.NewPgStore(pgPool)
	tokens := notify.NewPgTokenRepository(pgPool)
	gateway := notify.NewGateway(tokens, pusher, logger)
	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)

	slotSvc := booking.NewSlotService(store, logger)
	consultSvc := booking.NewConsultationService(store, store, gateway, cfg.Timezone, logger)
	coordinator := booking.NewCoordinator(store, store, locker, gateway, cfg.Timezone, logger)

	receipts, err := notify.NewReceiptConsumer(amqpConn, gateway, logger)
	if err != nil {
		logger.Fatal("receipt consumer init error", zap.Error(err))
	}
	defer receipts.Close()

	go func() {
		if err := receipts.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("receipt consumer stopped", zap.Error(err))
		}
	}()

	router := api.NewRouter(api.RouterConfig{
		Handlers: &api.Handlers{
			Slots:       slotSvc,
			Consults:    consultSvc,
			Coordinator: coordinator,
			Tokens:      tokens,
			Log:         logger,
		},
		PgPool:  pgPool,
		Redis:   rdb,
		AMQP:    amqpConn,
		Log:     logger,
		Env:     cfg.Env,
		Version: version,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}
}
