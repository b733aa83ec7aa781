package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const entryKeyPrefix = "cache:entry:"

// Conn opens and pings a Redis client.
func Conn(ctx context.Context, host, port, pass string, db int, timeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", host, port),
		DialTimeout: timeout,
		Password:    pass,
		DB:          db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed (%s:%s): %w", host, port, err)
	}
	return client, nil
}

// redisPersistence stores cache entries as JSON values in Redis.
type redisPersistence struct {
	client *redis.Client
	logger *log.Logger
}

// NewRedisPersistence builds the Redis-backed persistence collaborator.
func NewRedisPersistence(client *redis.Client) Persistence {
	return &redisPersistence{
		client: client,
		logger: log.New(log.Writer(), "[CACHE] ", log.LstdFlags),
	}
}

func (r *redisPersistence) LoadAll(ctx context.Context) ([]Entry, error) {
	keys, err := r.client.Keys(ctx, entryKeyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, key := range keys {
		val, err := r.client.Get(ctx, key).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, err
		}
		var e Entry
		if err := json.Unmarshal([]byte(val), &e); err != nil {
			// Corrupt entry: treat as a miss, drop it so the next fetch recreates it.
			r.logger.Printf("dropping corrupt entry %s: %v", key, err)
			_ = r.client.Del(ctx, key).Err()
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *redisPersistence) Save(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	// Keep the Redis copy a bit beyond the logical TTL so stale hits survive
	// restarts; freshness is decided by CreatedAt+TTL, never by Redis expiry.
	expiry := e.TTL * 2
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return r.client.Set(ctx, entryKeyPrefix+e.Key, data, expiry).Err()
}

func (r *redisPersistence) Delete(ctx context.Context, key string) error {
	err := r.client.Del(ctx, entryKeyPrefix+key).Err()
	if err == redis.Nil {
		return nil
	}
	return err
}

func (r *redisPersistence) Clear(ctx context.Context) (int, error) {
	keys, err := r.client.Keys(ctx, entryKeyPrefix+"*").Result()
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return 0, err
	}
	return len(keys), nil
}
