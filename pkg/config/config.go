package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingJWTSecret is returned when no signing secret is configured
var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

type Config struct {
	HTTP     HTTPConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Weather  WeatherConfig
	Live     LiveConfig
	Log      LogConfig
}

type HTTPConfig struct {
	Port           int
	AllowedOrigins []string
	ReadTimeout    time.Duration
	IdleTimeout    time.Duration
}

func (h HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", h.Port)
}

// StoreConfig selects the activity/user store backend ("postgres" or "memory")
type StoreConfig struct {
	Driver        string
	MigrationsDir string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// RedisConfig is disabled when Addr is empty
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// KafkaConfig is disabled when no brokers are configured
type KafkaConfig struct {
	Brokers         []string
	TopicActivities string
	NumPartitions   int
	ConsumerGroup   string
	BatchSize       int
	FlushInterval   time.Duration
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

type WeatherConfig struct {
	BaseURL  string
	APIKey   string
	Location string
	CacheTTL time.Duration
	Timeout  time.Duration
}

type LiveConfig struct {
	Interval         time.Duration
	MaxSubscriptions int
	StatsInterval    time.Duration
}

type LogConfig struct {
	Mode string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		HTTP: HTTPConfig{
			Port:           getEnvAsInt("HTTP_PORT", 3000),
			AllowedOrigins: getEnvAsList("HTTP_ALLOWED_ORIGINS", "http://localhost:3000"),
			ReadTimeout:    getEnvAsDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			IdleTimeout:    getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		},
		Store: StoreConfig{
			Driver:        strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "carbon_user"),
			Password: getEnv("DB_PASSWORD", "carbon_pass"),
			DBName:   getEnv("DB_NAME", "carbon_tracker"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:         getEnvAsList("KAFKA_BROKERS", ""),
			TopicActivities: getEnv("KAFKA_TOPIC_ACTIVITIES", "carbon.activities.recorded"),
			NumPartitions:   getEnvAsInt("KAFKA_NUM_PARTITIONS", 6),
			ConsumerGroup:   getEnv("KAFKA_CONSUMER_GROUP", "leaderboard-group"),
			BatchSize:       getEnvAsInt("KAFKA_BATCH_SIZE", 100),
			FlushInterval:   getEnvAsDuration("KAFKA_FLUSH_INTERVAL", 2*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", "carbon-tracker"),
			TokenTTL:  getEnvAsDuration("JWT_TTL", time.Hour),
		},
		Weather: WeatherConfig{
			BaseURL:  getEnv("WEATHER_BASE_URL", "https://api.openweathermap.org"),
			APIKey:   getEnv("WEATHER_API_KEY", ""),
			Location: getEnv("WEATHER_LOCATION", "Delhi"),
			CacheTTL: getEnvAsDuration("WEATHER_CACHE_TTL", 10*time.Second),
			Timeout:  getEnvAsDuration("WEATHER_TIMEOUT", 0),
		},
		Live: LiveConfig{
			Interval:         getEnvAsDuration("LIVE_INTERVAL", 5*time.Second),
			MaxSubscriptions: getEnvAsInt("LIVE_MAX_SUBSCRIPTIONS", 10000),
			StatsInterval:    getEnvAsDuration("LIVE_STATS_INTERVAL", 30*time.Second),
		},
		Log: LogConfig{
			Mode: getEnv("LOG_MODE", "development"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	switch c.Store.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Live.Interval <= 0 {
		return fmt.Errorf("LIVE_INTERVAL must be positive, got %s", c.Live.Interval)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key, defaultValue string) []string {
	parts := strings.Split(getEnv(key, defaultValue), ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
