// Package redis carries change notifications between processes: a pub/sub
// change feed, its publisher, and SETNX-based redelivery dedup.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pingTimeout = 5 * time.Second
	// applies to commands only; pub/sub receives are bounded by their context
	readTimeout = 3 * time.Second
)

type Config struct {
	Addr     string
	Password string
	DB       int
	// PingTimeout bounds the startup connectivity check. Zero uses a default.
	PingTimeout time.Duration
}

func (c Config) options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		ReadTimeout:  readTimeout,
		WriteTimeout: readTimeout,
	}
}

// Connect opens a client and checks the broker answers. A failure here is not
// fatal to the service; callers fall back to polling.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = pingTimeout
	}

	client := redis.NewClient(cfg.options())

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}
