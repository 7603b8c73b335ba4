package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/config"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

const keyPrefix = "beacon:owner"

// ownerEntry holds only what host checks need; balances are never cached.
type ownerEntry struct {
	Username  string `json:"username"`
	ChannelID string `json:"channel_id"`
}

type RedisOwnerCache struct {
	client *redis.Client
}

func NewRedisOwnerCache(cfg config.RedisConfig) (*RedisOwnerCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisOwnerCache{client: client}, nil
}

func buildKey(streamID string) string {
	return fmt.Sprintf("%s:%s", keyPrefix, streamID)
}

func (c *RedisOwnerCache) Get(ctx context.Context, streamID string) (*domain.Account, error) {
	data, err := c.client.Get(ctx, buildKey(streamID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var entry ownerEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return &domain.Account{Username: entry.Username, ChannelID: entry.ChannelID}, nil
}

func (c *RedisOwnerCache) Set(ctx context.Context, streamID string, owner *domain.Account, ttl time.Duration) error {
	data, err := json.Marshal(ownerEntry{Username: owner.Username, ChannelID: owner.ChannelID})
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, buildKey(streamID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *RedisOwnerCache) Delete(ctx context.Context, streamIDs ...string) error {
	if len(streamIDs) == 0 {
		return nil
	}
	keys := make([]string, len(streamIDs))
	for i, id := range streamIDs {
		keys[i] = buildKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

func (c *RedisOwnerCache) Close() error {
	return c.client.Close()
}
