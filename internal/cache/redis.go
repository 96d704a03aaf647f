package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Domenick1991/carrental/config"
	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/redis/go-redis/v9"
)

// releaseLock deletes the lock only if it still holds the caller's token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type RedisCache struct {
	client      *redis.Client
	listingsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, listingsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:      redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		listingsTTL: listingsTTL,
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetListings returns nil, nil on a cache miss.
func (c *RedisCache) GetListings(ctx context.Context) ([]domain.Listing, error) {
	data, err := c.client.Get(ctx, listingsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var listings []domain.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

func (c *RedisCache) SetListings(ctx context.Context, listings []domain.Listing) error {
	payload, err := json.Marshal(listings)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, listingsKey(), payload, c.listingsTTL).Err()
}

func (c *RedisCache) InvalidateListings(ctx context.Context) error {
	return c.client.Del(ctx, listingsKey()).Err()
}

func (c *RedisCache) AcquireListingLock(ctx context.Context, listingID, token string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, listingLockKey(listingID), token, ttl).Result()
}

func (c *RedisCache) ReleaseListingLock(ctx context.Context, listingID, token string) error {
	return releaseLock.Run(ctx, c.client, []string{listingLockKey(listingID)}, token).Err()
}

func listingsKey() string {
	return "cache:listings"
}

func listingLockKey(listingID string) string {
	return "lock:listing:" + listingID
}
