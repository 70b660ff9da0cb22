package counter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// RedisStore implements domain.CounterStore on Redis. Window counts use
// sorted sets where both member and score are the event timestamp in
// nanoseconds; range counts are ZCOUNT over [now-window, now]. Every key
// carries the 24 h TTL so the store self-prunes.
type RedisStore struct {
	client    *redis.Client
	windowTTL time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg domain.CounterConfig) (*RedisStore, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, windowTTL: cfg.WindowTTL}, nil
}

// RecordEvent inserts the event into every window key in one pipeline.
// Stale members are pruned on write so sets stay bounded even for hot users.
func (s *RedisStore) RecordEvent(ctx context.Context, tenantID, userID string, at time.Time) error {
	if tenantID == "" || userID == "" {
		return fmt.Errorf("tenantID and userID are required")
	}

	now := at.UnixNano()
	member := strconv.FormatInt(now, 10)

	pipe := s.client.TxPipeline()
	for _, w := range Windows {
		key := s.velocityKey(tenantID, userID, w)
		cutoff := at.Add(-w).UnixNano()
		pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff, 10))
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: member})
		pipe.Expire(ctx, key, s.windowTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// CountWindow returns the event count in [now-window, now].
func (s *RedisStore) CountWindow(ctx context.Context, tenantID, userID string, window time.Duration) (int64, error) {
	if tenantID == "" || userID == "" {
		return 0, fmt.Errorf("tenantID and userID are required")
	}

	now := time.Now()
	key := s.velocityKey(tenantID, userID, window)
	min := strconv.FormatInt(now.Add(-window).UnixNano(), 10)
	max := strconv.FormatInt(now.UnixNano(), 10)

	return s.client.ZCount(ctx, key, min, max).Result()
}

// TouchDevice adds the user to the device's account set and returns the
// distinct account count.
func (s *RedisStore) TouchDevice(ctx context.Context, tenantID, deviceHash, userID string) (int64, error) {
	if tenantID == "" || deviceHash == "" {
		return 0, fmt.Errorf("tenantID and deviceHash are required")
	}

	key := fmt.Sprintf("sentinel:%s:device:%s", tenantID, deviceHash)

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, userID)
	card := pipe.SCard(ctx, key)
	pipe.Expire(ctx, key, s.windowTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return card.Val(), nil
}

// SetLastLocation swaps the user's last known location.
func (s *RedisStore) SetLastLocation(ctx context.Context, tenantID, userID string, loc domain.Location) error {
	data, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("sentinel:%s:geo:%s", tenantID, userID)
	return s.client.Set(ctx, key, data, s.windowTTL).Err()
}

// GetLastLocation returns the user's last known location, or nil if none.
func (s *RedisStore) GetLastLocation(ctx context.Context, tenantID, userID string) (*domain.Location, error) {
	key := fmt.Sprintf("sentinel:%s:geo:%s", tenantID, userID)
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var loc domain.Location
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

// Ping checks Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) velocityKey(tenantID, userID string, w time.Duration) string {
	return fmt.Sprintf("sentinel:%s:velocity:%s:%s", tenantID, userID, windowLabel(w))
}
