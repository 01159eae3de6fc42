package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConn is a Conn backed by go-redis. The target is a redis:// URL.
type RedisConn struct {
	client *redis.Client
}

// NewRedis creates a connect-then-ping strategy for Redis.
func NewRedis(timeout time.Duration) *ConnectThenPing {
	return NewConnectThenPing(&RedisConn{}, timeout)
}

// Connect parses target, opens a client and pings it once.
func (c *RedisConn) Connect(ctx context.Context, target string) error {
	opts, err := redis.ParseURL(target)
	if err != nil {
		return fmt.Errorf("probe: redis url: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts.DialTimeout = time.Until(deadline)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("probe: redis connect: %w", err)
	}
	c.client = client
	return nil
}

// Ping issues PING on the open client.
func (c *RedisConn) Ping(ctx context.Context) error {
	if c.client == nil {
		return ErrNotConnected
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("probe: redis ping: %w", err)
	}
	return nil
}

// Connected reports whether a client is open.
func (c *RedisConn) Connected() bool {
	return c.client != nil
}

// Close closes the client.
func (c *RedisConn) Close(context.Context) error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}
