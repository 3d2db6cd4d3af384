package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tanisingh134/carbon/internal/leaderboard"
	"github.com/tanisingh134/carbon/internal/logger"
	"github.com/tanisingh134/carbon/internal/queue"
	"github.com/tanisingh134/carbon/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer lg.Sync()

	if !cfg.Kafka.Enabled() || !cfg.Redis.Enabled() {
		lg.Fatal("Leaderboard writer needs KAFKA_BROKERS and REDIS_ADDR")
	}

	lg.Info("Starting leaderboard writer")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		lg.Fatal("Failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
	}
	lg.Info("Connected to redis", "addr", cfg.Redis.Addr)

	if err := queue.CreateTopic(ctx, cfg.Kafka.Brokers, cfg.Kafka.TopicActivities, cfg.Kafka.NumPartitions, 1); err != nil {
		lg.Warn("Topic creation failed", "topic", cfg.Kafka.TopicActivities, "error", err)
	}

	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicActivities, cfg.Kafka.ConsumerGroup)
	defer consumer.Close()

	writer := queue.NewLeaderboardWriter(
		consumer,
		leaderboard.NewRedisBoard(redisClient),
		cfg.Kafka.BatchSize,
		cfg.Kafka.FlushInterval,
		lg,
	)

	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := consumer.Stats()
				ws := writer.Stats()
				lg.Info("Leaderboard writer statistics",
					"messages", stats.Messages,
					"lag", stats.Lag,
					"consumer_errors", stats.Errors,
					"applied", ws.Applied,
					"skipped", ws.Skipped,
					"apply_failures", ws.Failures,
				)
			}
		}
	}()

	lg.Info("Consuming activity events",
		"topic", cfg.Kafka.TopicActivities,
		"group", cfg.Kafka.ConsumerGroup,
		"batch_size", cfg.Kafka.BatchSize,
		"flush_interval", cfg.Kafka.FlushInterval,
	)

	if err := writer.Run(ctx); err != nil {
		lg.Error("Leaderboard writer stopped", "error", err)
	}
	lg.Info("Leaderboard writer stopped")
}
