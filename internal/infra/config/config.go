package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

var (
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config aggregates application settings from an optional config.yaml and the environment.
type Config struct {
	Env      string `mapstructure:"APP_ENV"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	StoreDriver  string `mapstructure:"STORE_DRIVER"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	MongoURI     string `mapstructure:"MONGO_URI"`
	MongoDB      string `mapstructure:"MONGO_DB"`
	FixturesPath string `mapstructure:"FIXTURES_PATH"`

	CacheDriver        string        `mapstructure:"CACHE_DRIVER"`
	CacheTTL           time.Duration `mapstructure:"CACHE_TTL"`
	CacheCapacity      int           `mapstructure:"CACHE_CAPACITY"`
	CacheSweepInterval time.Duration `mapstructure:"CACHE_SWEEP_INTERVAL"`
	RedisAddr          string        `mapstructure:"REDIS_ADDR"`
	RedisPassword      string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB            int           `mapstructure:"REDIS_DB"`

	QueryTimeout     time.Duration `mapstructure:"QUERY_TIMEOUT"`
	ProbeConcurrency int           `mapstructure:"PROBE_CONCURRENCY"`
	Timezone         string        `mapstructure:"TIMEZONE"`

	KafkaBrokersRaw  string   `mapstructure:"KAFKA_BROKERS"`
	KafkaBrokers     []string `mapstructure:"-"`
	KafkaTopicPrefix string   `mapstructure:"KAFKA_TOPIC_PREFIX"`
	KafkaGroupID     string   `mapstructure:"KAFKA_GROUP_ID"`

	AdminTokenHash  string `mapstructure:"ADMIN_TOKEN_HASH"`
	RateLimitPerMin int    `mapstructure:"RATE_LIMIT_PER_MIN"`

	OTelEnabled       bool    `mapstructure:"OTEL_ENABLED"`
	OTelEndpoint      string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelSamplingRatio float64 `mapstructure:"OTEL_SAMPLING_RATIO"`

	// Location is TIMEZONE resolved; "today" for searches is taken there.
	Location *time.Location `mapstructure:"-"`
}

var defaults = map[string]any{
	"APP_ENV":                     "dev",
	"HTTP_ADDR":                   ":8080",
	"STORE_DRIVER":                StoreMemory,
	"DATABASE_URL":                "",
	"MONGO_URI":                   "",
	"MONGO_DB":                    "equiprent",
	"FIXTURES_PATH":               "data/fixtures.json",
	"CACHE_DRIVER":                CacheMemory,
	"CACHE_TTL":                   "5m",
	"CACHE_CAPACITY":              1024,
	"CACHE_SWEEP_INTERVAL":        "1m",
	"REDIS_ADDR":                  "localhost:6379",
	"REDIS_PASSWORD":              "",
	"REDIS_DB":                    0,
	"QUERY_TIMEOUT":               "3s",
	"PROBE_CONCURRENCY":           4,
	"TIMEZONE":                    "UTC",
	"KAFKA_BROKERS":               "",
	"KAFKA_TOPIC_PREFIX":          "",
	"KAFKA_GROUP_ID":              "equiprent-availability",
	"ADMIN_TOKEN_HASH":            "",
	"RATE_LIMIT_PER_MIN":          120,
	"OTEL_ENABLED":                false,
	"OTEL_EXPORTER_OTLP_ENDPOINT": "localhost:4317",
	"OTEL_SAMPLING_RATIO":         1.0,
}

// Load reads config.yaml from "." or "./config" when present, then lets
// environment variables override every key.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.CacheDriver = strings.ToLower(strings.TrimSpace(cfg.CacheDriver))
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokersRaw)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("%w: TIMEZONE %q: %v", ErrInvalidConfig, cfg.Timezone, err)
	}
	cfg.Location = loc

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres store", ErrInvalidConfig)
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("%w: MONGO_URI is required for the mongo store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown STORE_DRIVER %q", ErrInvalidConfig, c.StoreDriver)
	}
	switch c.CacheDriver {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("%w: unknown CACHE_DRIVER %q", ErrInvalidConfig, c.CacheDriver)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("%w: CACHE_TTL must be positive", ErrInvalidConfig)
	}
	if c.CacheCapacity <= 0 {
		return fmt.Errorf("%w: CACHE_CAPACITY must be positive", ErrInvalidConfig)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("%w: QUERY_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if c.ProbeConcurrency <= 0 {
		return fmt.Errorf("%w: PROBE_CONCURRENCY must be positive", ErrInvalidConfig)
	}
	if c.OTelSamplingRatio < 0 || c.OTelSamplingRatio > 1 {
		return fmt.Errorf("%w: OTEL_SAMPLING_RATIO must be within [0,1]", ErrInvalidConfig)
	}
	return nil
}

// KafkaEnabled reports whether brokers were configured.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// ConsumerGroup picks the Kafka group for an instance. Every instance keeps its
// own memory cache and must see every event, so each joins a group of its own.
// With the shared redis cache one member applying an event is enough.
func (c Config) ConsumerGroup(instanceID string) string {
	if c.CacheDriver == CacheRedis || instanceID == "" {
		return c.KafkaGroupID
	}
	return c.KafkaGroupID + "-" + instanceID
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
