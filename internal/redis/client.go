// Package redis owns the go-redis dependency. Adapters take a Cmdable and
// never import go-redis themselves.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// Cmdable is the command interface adapters depend on.
type Cmdable = redis.Cmdable

// Pipeliner is the handle passed to Cmdable.TxPipelined callbacks.
type Pipeliner = redis.Pipeliner

// Nil is returned by reads of missing keys.
const Nil = redis.Nil

// Config holds connection parameters. Timeout bounds dialing and every
// read and write; zero keeps the go-redis defaults.
type Config struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
	// ReadyTimeout bounds Connect's wait for the first PING. Defaults to 15s.
	ReadyTimeout time.Duration
}

const (
	clientName          = "timetuner"
	readyInitialBackoff = 50 * time.Millisecond
	readyMaxBackoff     = time.Second
	defaultReadyTimeout = 15 * time.Second
)

// Client wraps a go-redis client. RDB is the Cmdable handed to adapters.
type Client struct {
	RDB          *redis.Client
	readyTimeout time.Duration
}

// NewClient configures a client without contacting the server.
func NewClient(cfg Config) *Client {
	ready := cfg.ReadyTimeout
	if ready <= 0 {
		ready = defaultReadyTimeout
	}
	return &Client{
		RDB: redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			ClientName:   clientName,
			DialTimeout:  cfg.Timeout,
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		}),
		readyTimeout: ready,
	}
}

// Connect creates a client and waits until it answers PING. The client is
// closed again when the server never becomes ready.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	c := NewClient(cfg)
	if err := c.WaitReady(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("connect %s: %w", cfg.Addr, err)
	}
	return c, nil
}

// Ping checks that the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.RDB.Ping(ctx).Err()
}

// WaitReady retries PING with exponential backoff until it succeeds, the
// ready timeout elapses or ctx is done.
func (c *Client) WaitReady(ctx context.Context) error {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(readyInitialBackoff),
		backoff.WithMaxInterval(readyMaxBackoff),
		backoff.WithMaxElapsedTime(c.readyTimeout),
	)
	if err := backoff.Retry(func() error { return c.Ping(ctx) }, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("redis not responding: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.RDB.Close()
}
