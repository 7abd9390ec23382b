package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis report backend.
type RedisConfig struct {
	// Address is the Redis server address (e.g., "localhost:6379")
	Address string

	// Password for Redis authentication (optional)
	Password string

	// Database number to use (default: 0)
	Database int

	// Prefix is prepended to all report keys
	Prefix string

	// TTL is the time-to-live for report keys (0 = no expiration)
	TTL time.Duration

	// Timeout for Redis operations
	Timeout time.Duration

	// PoolSize is the maximum number of connections
	PoolSize int
}

// DefaultRedisConfig returns sensible defaults.
func DefaultRedisConfig(address string) RedisConfig {
	return RedisConfig{
		Address:  address,
		Prefix:   "javelin:runs:",
		TTL:      7 * 24 * time.Hour,
		Timeout:  5 * time.Second,
		PoolSize: 10,
	}
}

// RedisBackend stores reports in Redis for low-latency access. A
// sorted set scored by creation time keeps List ordered without
// scanning keys.
type RedisBackend struct {
	cfg    RedisConfig
	client *redis.Client
}

// NewRedisBackend connects and pings the server.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "javelin:runs:"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("archive: connect to redis: %w", err)
	}

	return &RedisBackend{cfg: cfg, client: client}, nil
}

func (b *RedisBackend) key(id string) string {
	return b.cfg.Prefix + id
}

func (b *RedisBackend) indexKey() string {
	return b.cfg.Prefix + "index"
}

// Save persists a report and indexes it by creation time.
func (b *RedisBackend) Save(ctx context.Context, rep *RunReport) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("archive: marshal report: %w", err)
	}

	pipe := b.client.Pipeline()
	pipe.Set(ctx, b.key(rep.RunID), data, b.cfg.TTL)
	pipe.ZAdd(ctx, b.indexKey(), redis.Z{
		Score:  float64(rep.CreatedAt.UnixMilli()),
		Member: rep.RunID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("archive: save report to redis: %w", err)
	}
	return nil
}

// Load retrieves a report by run id.
func (b *RedisBackend) Load(ctx context.Context, id string) (*RunReport, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	data, err := b.client.Get(ctx, b.key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("archive: load report from redis: %w", err)
	}

	var rep RunReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("archive: unmarshal report: %w", err)
	}
	return &rep, nil
}

// Delete removes a report and its index entry.
func (b *RedisBackend) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	pipe := b.client.Pipeline()
	pipe.Del(ctx, b.key(id))
	pipe.ZRem(ctx, b.indexKey(), id)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns all reports, newest first. Index entries whose report
// key expired are cleaned up lazily.
func (b *RedisBackend) List(ctx context.Context) ([]*RunReport, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	ids, err := b.client.ZRevRange(ctx, b.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("archive: list reports from redis: %w", err)
	}

	reps := make([]*RunReport, 0, len(ids))
	for _, id := range ids {
		rep, err := b.Load(ctx, id)
		if err == ErrNotFound {
			b.client.ZRem(ctx, b.indexKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		reps = append(reps, rep)
	}
	return reps, nil
}

// Name returns "redis".
func (b *RedisBackend) Name() string { return "redis" }

// Close releases the connection pool.
func (b *RedisBackend) Close() error { return b.client.Close() }
