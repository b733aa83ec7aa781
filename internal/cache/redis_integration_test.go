package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mohammad-safakhou/polisight/internal/cache"
	"github.com/mohammad-safakhou/polisight/internal/item"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisPersistenceRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	redisC, err := tcRedis.RunContainer(ctx, testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")))
	if err != nil {
		t.Fatalf("redis container: %v", err)
	}
	defer func() { _ = redisC.Terminate(ctx) }()

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	defer func() { _ = client.Close() }()

	persist := cache.NewRedisPersistence(client)

	entry := cache.Entry{
		Key: "cabinet-approval",
		Items: []item.RawItem{
			{ID: "a1", SourceID: "media-1", URL: "https://example.com/a", Title: "Approval rises", Text: "cabinet approval rises"},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		TTL:       time.Hour,
		Tier:      cache.TierHot,
	}
	if err := persist.Save(ctx, entry); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := persist.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("LoadAll() returned %d entries, want 1", len(entries))
	}
	got := entries[0]
	if got.Key != entry.Key || got.Tier != entry.Tier || len(got.Items) != 1 || got.Items[0].ID != "a1" {
		t.Fatalf("LoadAll() entry = %+v", got)
	}
	if !got.CreatedAt.Equal(entry.CreatedAt) {
		t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, entry.CreatedAt)
	}

	// A warm cache built from persistence serves the entry without refetching.
	c, err := cache.New(ctx, persist)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	items, fresh, ok := c.Get(entry.Key)
	if !ok || !fresh || len(items) != 1 {
		t.Fatalf("Get() after reload = (ok=%v, fresh=%v, items=%d)", ok, fresh, len(items))
	}

	if err := persist.Delete(ctx, entry.Key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	entries, err = persist.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() after delete: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entry survived delete: %+v", entries)
	}
}

func TestRedisPersistenceDropsCorruptEntries(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	redisC, err := tcRedis.RunContainer(ctx, testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")))
	if err != nil {
		t.Fatalf("redis container: %v", err)
	}
	defer func() { _ = redisC.Terminate(ctx) }()

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	defer func() { _ = client.Close() }()

	persist := cache.NewRedisPersistence(client)
	if err := persist.Save(ctx, cache.Entry{Key: "good", TTL: time.Hour, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := client.Set(ctx, "cache:entry:bad", "{not json", time.Hour).Err(); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	entries, err := persist.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Key != "good" {
		t.Fatalf("LoadAll() = %+v, want only the good entry", entries)
	}

	// The corrupt key is dropped so the next fetch recreates it.
	exists, err := client.Exists(ctx, "cache:entry:bad").Result()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists != 0 {
		t.Fatal("corrupt entry not deleted")
	}

	n, err := persist.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("Clear() = %d, want 1", n)
	}
}
