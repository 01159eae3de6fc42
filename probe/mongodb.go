package probe

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoConn is a Conn backed by the official MongoDB driver. The target is
// a mongodb:// URI.
type MongoConn struct {
	client *mongo.Client
}

// NewMongo creates a connect-then-ping strategy for MongoDB.
func NewMongo(timeout time.Duration) *ConnectThenPing {
	return NewConnectThenPing(&MongoConn{}, timeout)
}

// Connect opens a client and pings the primary.
func (c *MongoConn) Connect(ctx context.Context, target string) error {
	opts := options.Client().ApplyURI(target)
	if deadline, ok := ctx.Deadline(); ok {
		opts.SetConnectTimeout(time.Until(deadline))
		opts.SetServerSelectionTimeout(time.Until(deadline))
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("probe: mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return fmt.Errorf("probe: mongodb ping: %w", err)
	}
	c.client = client
	return nil
}

// Ping pings the primary.
func (c *MongoConn) Ping(ctx context.Context) error {
	if c.client == nil {
		return ErrNotConnected
	}
	if err := c.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("probe: mongodb ping: %w", err)
	}
	return nil
}

// Connected reports whether a client is open.
func (c *MongoConn) Connected() bool {
	return c.client != nil
}

// Close disconnects the client.
func (c *MongoConn) Close(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	err := c.client.Disconnect(ctx)
	c.client = nil
	return err
}
