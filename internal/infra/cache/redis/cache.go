package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"equiprent/internal/domain/availability"
)

const (
	DefaultPrefix = "equiprent:availability:"
	scanBatch     = 200
)

var tracer = otel.Tracer("equiprent/cache/redis")

// Cache shares verdicts between instances. Redis expires entries after TTL.
type Cache struct {
	Client *goredis.Client
	TTL    time.Duration
	Prefix string
}

func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
}

func NewCache(client *goredis.Client, ttl time.Duration) *Cache {
	return &Cache{Client: client, TTL: ttl, Prefix: DefaultPrefix}
}

func (c *Cache) Get(ctx context.Context, key string) (availability.Entry, bool, error) {
	ctx, span := tracer.Start(ctx, "cache.get", trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()
	raw, err := c.Client.Get(ctx, c.prefix()+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return availability.Entry{}, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return availability.Entry{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	entry, err := decodeEntry(raw)
	if err != nil {
		return availability.Entry{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return entry, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, entry availability.Entry) error {
	ctx, span := tracer.Start(ctx, "cache.set", trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()
	raw, err := encodeEntry(entry)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.Client.Set(ctx, c.prefix()+key, raw, c.TTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) InvalidateEquipment(ctx context.Context, equipmentID string) (int, error) {
	keys, err := c.scan(ctx)
	if err != nil {
		return 0, err
	}
	var doomed []string
	for _, key := range keys {
		if availability.MatchesEquipment(key, equipmentID) {
			doomed = append(doomed, c.prefix()+key)
		}
	}
	return c.del(ctx, doomed)
}

func (c *Cache) Clear(ctx context.Context) error {
	keys, err := c.scan(ctx)
	if err != nil {
		return err
	}
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, c.prefix()+key)
	}
	_, err = c.del(ctx, full)
	return err
}

func (c *Cache) Stats(ctx context.Context) (availability.Stats, error) {
	keys, err := c.scan(ctx)
	if err != nil {
		return availability.Stats{}, err
	}
	sort.Strings(keys)
	return availability.Stats{Size: len(keys), Keys: keys}, nil
}

// Ping backs the readiness probe.
func (c *Cache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// scan lists cache keys without the prefix.
func (c *Cache) scan(ctx context.Context) ([]string, error) {
	var (
		out    []string
		cursor uint64
	)
	prefix := c.prefix()
	for {
		batch, next, err := c.Client.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		for _, key := range batch {
			out = append(out, strings.TrimPrefix(key, prefix))
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}

func (c *Cache) del(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.Client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis del: %w", err)
	}
	return int(n), nil
}

func (c *Cache) prefix() string {
	if c.Prefix != "" {
		return c.Prefix
	}
	return DefaultPrefix
}

var _ availability.Cache = (*Cache)(nil)
