package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tanisingh134/carbon/internal/activity"
	"github.com/tanisingh134/carbon/internal/api"
	"github.com/tanisingh134/carbon/internal/auth"
	"github.com/tanisingh134/carbon/internal/carbon"
	"github.com/tanisingh134/carbon/internal/connection"
	"github.com/tanisingh134/carbon/internal/database"
	"github.com/tanisingh134/carbon/internal/leaderboard"
	"github.com/tanisingh134/carbon/internal/live"
	"github.com/tanisingh134/carbon/internal/logger"
	"github.com/tanisingh134/carbon/internal/queue"
	"github.com/tanisingh134/carbon/internal/timer"
	"github.com/tanisingh134/carbon/internal/weather"
	"github.com/tanisingh134/carbon/pkg/config"
)

// store is satisfied by both database.DB and database.MemoryStore
type store interface {
	api.Store
	CreateActivity(ctx context.Context, a *carbon.Activity) error
	CarbonTotals(ctx context.Context) ([]database.UserTotal, error)
	EmailsByID(ctx context.Context, ids []string) (map[string]string, error)
}

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

	lg.Info("Starting carbon tracker server", "store", cfg.Store.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, ping, closeStore, err := openStore(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("Failed to open store", "error", err)
	}
	defer closeStore()

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			lg.Fatal("Failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
		}
		lg.Info("Connected to redis", "addr", cfg.Redis.Addr)
	}

	// Weather impact, cached in redis when available so replicas share readings
	var weatherOpts []weather.Option
	if cfg.Weather.CacheTTL > 0 {
		var cache weather.ImpactCache = weather.NewMemoryCache()
		if redisClient != nil {
			cache = weather.NewRedisCache(redisClient, cfg.Weather.Location)
		}
		weatherOpts = append(weatherOpts, weather.WithCache(cache, cfg.Weather.CacheTTL))
	}
	if cfg.Weather.APIKey == "" {
		lg.Warn("WEATHER_API_KEY is not set; weather impact will stay neutral")
	}
	impact := weather.NewProvider(
		weather.NewOpenWeatherClient(cfg.Weather.BaseURL, cfg.Weather.APIKey, cfg.Weather.Timeout),
		cfg.Weather.Location,
		lg,
		weatherOpts...,
	)

	// Activity events feed the redis leaderboard when both kafka and redis are configured
	var events activity.EventPublisher
	var board leaderboard.Board = leaderboard.NewSQLBoard(st)
	if cfg.Kafka.Enabled() {
		if err := queue.CreateTopic(ctx, cfg.Kafka.Brokers, cfg.Kafka.TopicActivities, cfg.Kafka.NumPartitions, 1); err != nil {
			lg.Warn("Topic creation failed", "topic", cfg.Kafka.TopicActivities, "error", err)
		}
		producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicActivities)
		defer producer.Close()
		events = producer
		lg.Info("Kafka producer initialized", "topic", cfg.Kafka.TopicActivities)

		if redisClient != nil {
			board = leaderboard.NewRankedBoard(leaderboard.NewRedisBoard(redisClient), st)
		}
	}

	registry := connection.NewManager(cfg.Live.MaxSubscriptions)
	scheduler := timer.NewScheduler()
	scheduler.Start()
	defer scheduler.Stop()

	publisher := live.NewPublisher(st, impact, lg,
		live.WithInterval(cfg.Live.Interval),
		live.WithRegistry(registry),
		live.WithScheduler(scheduler),
	)

	router := api.NewRouter(api.Config{
		Store:          st,
		Activities:     activity.NewService(st, impact, events, lg),
		Publisher:      publisher,
		Leaderboard:    board,
		Issuer:         auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		Log:            lg,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Ready:          ping,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Address(),
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	go func() {
		lg.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("HTTP server failed", "error", err)
		}
	}()

	go logStats(ctx, lg, cfg.Live.StatsInterval, registry, scheduler)

	<-ctx.Done()
	lg.Info("Shutting down gracefully")

	// live streams never finish on their own, so close them before draining
	closed := registry.CloseAll()
	lg.Info("Closed live subscriptions", "count", closed)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("HTTP shutdown failed", "error", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config, lg *logger.Logger) (store, func(context.Context) error, func(), error) {
	if cfg.Store.Driver == "memory" {
		lg.Warn("Using in-memory store; data is lost on restart")
		return database.NewMemoryStore(), nil, func() {}, nil
	}

	db, err := database.Connect(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return nil, nil, nil, err
	}
	lg.Info("Connected to database", "host", cfg.Database.Host, "name", cfg.Database.DBName)

	if err := db.RunMigrations(ctx, cfg.Store.MigrationsDir, lg); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, db.PingContext, func() { db.Close() }, nil
}

func logStats(ctx context.Context, lg *logger.Logger, interval time.Duration, registry *connection.Manager, scheduler *timer.Scheduler) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := registry.Stats()
			timerStats := scheduler.Stats()
			lg.Info("Server statistics",
				"subscriptions", stats.TotalSubscriptions,
				"max_subscriptions", stats.MaxSubscriptions,
				"users", stats.UniqueUsers,
				"pending_expiries", timerStats.Pending,
				"expired", timerStats.Fired,
			)
		}
	}
}
