package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// PostgresPinger is a Pinger backed by pgx. The target is a postgres://
// connection string.
type PostgresPinger struct {
	conn *pgx.Conn
}

// NewPostgres creates a ping strategy for PostgreSQL.
func NewPostgres(timeout time.Duration) *Ping {
	return NewPing(&PostgresPinger{}, timeout)
}

// Ping connects when needed, then pings the server. A failed ping drops the
// connection.
func (p *PostgresPinger) Ping(ctx context.Context, target string) error {
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := pgx.Connect(ctx, target)
		if err != nil {
			return fmt.Errorf("probe: postgres connect: %w", err)
		}
		p.conn = conn
	}

	if err := p.conn.Ping(ctx); err != nil {
		_ = p.Close(ctx)
		return fmt.Errorf("probe: postgres ping: %w", err)
	}
	return nil
}

// Close closes the connection.
func (p *PostgresPinger) Close(ctx context.Context) error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close(ctx)
	p.conn = nil
	return err
}
