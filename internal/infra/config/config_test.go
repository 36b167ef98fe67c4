package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreDriver != StoreMemory || cfg.CacheDriver != CacheMemory {
		t.Fatalf("unexpected drivers %q %q", cfg.StoreDriver, cfg.CacheDriver)
	}
	if cfg.CacheTTL != 5*time.Minute || cfg.QueryTimeout != 3*time.Second {
		t.Fatalf("unexpected durations ttl=%s timeout=%s", cfg.CacheTTL, cfg.QueryTimeout)
	}
	if cfg.ProbeConcurrency != 4 || cfg.Location != time.UTC {
		t.Fatalf("unexpected engine settings %+v", cfg)
	}
	if cfg.KafkaEnabled() {
		t.Fatalf("kafka must be disabled without brokers")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CACHE_DRIVER", "Redis")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("TIMEZONE", "America/Toronto")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CacheDriver != CacheRedis || cfg.CacheTTL != 90*time.Second {
		t.Fatalf("unexpected cache config %q %s", cfg.CacheDriver, cfg.CacheTTL)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.Location.String() != "America/Toronto" {
		t.Fatalf("unexpected location %s", cfg.Location)
	}
}

func TestLoad_DriverRequirements(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "postgres")

	if _, err := Load(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig without DATABASE_URL, got %v", err)
	}
	t.Setenv("DATABASE_URL", "postgres://localhost/equiprent")
	if _, err := Load(); err != nil {
		t.Fatalf("expected valid postgres config, got %v", err)
	}
	t.Setenv("STORE_DRIVER", "sqlite")
	if _, err := Load(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected unknown driver to be rejected, got %v", err)
	}
}

func TestConsumerGroup_PerDriver(t *testing.T) {
	cfg := Config{KafkaGroupID: "equiprent-availability", CacheDriver: CacheMemory}
	if got := cfg.ConsumerGroup("a1"); got != "equiprent-availability-a1" {
		t.Fatalf("memory cache needs a per-instance group, got %q", got)
	}
	if cfg.ConsumerGroup("a1") == cfg.ConsumerGroup("b2") {
		t.Fatalf("two instances must not share a group with the memory cache")
	}
	cfg.CacheDriver = CacheRedis
	if got := cfg.ConsumerGroup("a1"); got != "equiprent-availability" {
		t.Fatalf("redis cache keeps the shared group, got %q", got)
	}
}
