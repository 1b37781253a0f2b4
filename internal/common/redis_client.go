package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"seafarer/bosun/internal/logging"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds the shared Redis client backing the sync request
// stream, the OAuth state marks and the health check. A failed startup
// ping is logged rather than fatal: the pool reconnects on first use.
func NewRedisClient() *redis.Client {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}

	dbIndex := 0
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			dbIndex = n
		} else {
			logging.Warn("Ignoring invalid REDIS_DB value", "value", raw)
		}
	}

	addr := fmt.Sprintf("%s:%s", host, port)
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           dbIndex,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logging.Warn("Redis ping failed, continuing with lazy reconnect",
			"addr", addr,
			"error", err.Error(),
		)
		return client
	}

	logging.Info("Connected to Redis", "addr", addr, "db", dbIndex)
	return client
}
