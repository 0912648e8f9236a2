package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/teleclinic/telehealth-backend/internal/booking"
	"github.com/teleclinic/telehealth-backend/internal/config"
	"github.com/teleclinic/telehealth-backend/internal/db"
	"github.com/teleclinic/telehealth-backend/internal/logging"
	"github.com/teleclinic/telehealth-backend/internal/notify"
	"github.com/teleclinic/telehealth-backend/internal/redisclient"
)

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

	logger.Info("sweeper starting",
		zap.String("env", cfg.Env),
		zap.Duration("auto_complete_interval", cfg.AutoCompleteInterval),
		zap.Duration("reminder_interval", cfg.ReminderInterval))

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

	// The job lock doubles as the per-run deadline, so its TTL is the sweep
	// timeout rather than the short booking-lock TTL.
	jobLocker := redisclient.NewRedisLocker(rdb, cfg.SweepTimeout)

	completer := booking.NewAutoCompleter(store, jobLocker, cfg.AppointmentDuration, cfg.Timezone, logger)
	reminders := booking.NewReminderDispatcher(store, gateway, jobLocker, cfg.ReminderLead, cfg.ReminderGrace, cfg.Timezone, logger)

	// Both sweeps run once at startup, then on their own tickers.
	runAutoComplete(rootCtx, completer, logger)
	runReminders(rootCtx, reminders, logger)

	autoCompleteTicker := time.NewTicker(cfg.AutoCompleteInterval)
	defer autoCompleteTicker.Stop()
	reminderTicker := time.NewTicker(cfg.ReminderInterval)
	defer reminderTicker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping sweeper")
			return
		case <-autoCompleteTicker.C:
			runAutoComplete(rootCtx, completer, logger)
		case <-reminderTicker.C:
			runReminders(rootCtx, reminders, logger)
		}
	}
}

func runAutoComplete(ctx context.Context, completer *booking.AutoCompleter, logger *zap.Logger) {
	start := time.Now()
	if _, err := completer.Run(ctx); err != nil {
		logger.Error("auto-complete run error", zap.Error(err))
		return
	}
	logger.Info("auto-complete run complete", zap.Duration("took", time.Since(start)))
}

func runReminders(ctx context.Context, reminders *booking.ReminderDispatcher, logger *zap.Logger) {
	start := time.Now()
	if _, err := reminders.Run(ctx); err != nil {
		logger.Error("reminder run error", zap.Error(err))
		return
	}
	logger.Info("reminder run complete", zap.Duration("took", time.Since(start)))
}
