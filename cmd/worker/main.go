package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"smartattend/internal/config"
	"smartattend/internal/logger"
	"smartattend/internal/notify"
	"smartattend/internal/queue"
	"smartattend/internal/roster"
	"smartattend/internal/store"
)

// The worker drains queued absence notifications and performs outbound
// delivery, keeping the finalize transition fast.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "smartattend:notify")
	}

	notifRepo := notify.NewRepository(db.Client)
	rosterRepo := roster.NewRepository(db.Client, log)
	dispatcher := notify.NewDispatcher(notifRepo, rosterRepo, log)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("queue consume init failed")
	}

	log.Info().Msg("worker started, waiting for messages")
	for msg := range messages {
		if err := dispatcher.Handle(ctx, msg); err != nil {
			log.Error().Err(err).Str("type", msg.Type).Msg("dispatch failed")
		}
	}
	log.Info().Msg("worker stopped")
}
