// Package cache keeps short-lived read models in Redis. A Cache built without a
// client does nothing, so callers never branch on whether Redis is configured.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

type Options struct {
	Addr     string
	Password string
	DB       int
}

// Connect dials Redis and pings it. It returns nil when Redis is unreachable
// or no address is configured.
func Connect(opts Options) *redis.Client {
	if opts.Addr == "" {
		log.Println("REDIS_ADDR not set, earnings cache disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("Warning: Redis connection failed: %v", err)
		log.Println("Earnings cache will be disabled")
		_ = client.Close()
		return nil
	}
	log.Println("Connected to Redis")
	return client
}

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// GetJSON decodes the value under key into dest and reports whether it was found.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if !c.enabled() {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("cache get %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		log.Printf("cache decode %s: %v", key, err)
		return false
	}
	return true
}

func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}) {
	if !c.enabled() {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("cache encode %s: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Printf("cache set %s: %v", key, err)
	}
}

// Invalidate drops an agent's summary and every cached leaderboard.
func (c *Cache) Invalidate(ctx context.Context, agentID string) error {
	if !c.enabled() {
		return nil
	}
	keys := []string{EarningsKey(agentID)}
	iter := c.client.Scan(ctx, 0, topAgentsPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *Cache) Close() error {
	if !c.enabled() {
		return nil
	}
	return c.client.Close()
}

const topAgentsPrefix = "earnings:top:"

func EarningsKey(agentID string) string {
	return "earnings:agent:" + agentID
}

func TopAgentsKey(limit int) string {
	return fmt.Sprintf("%s%d", topAgentsPrefix, limit)
}
