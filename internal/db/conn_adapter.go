package db

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vvka-141/pvsload/pkg/pvsload"
)

// ConnAdapter adapts *pgx.Conn to implement the pvsload.DBConn interface.
// This keeps pgx connection types out of the snapshot operations, which only
// see the narrow DBConn surface.
//
// Thread-Safety: NOT safe for concurrent use (pgx.Conn is not).
type ConnAdapter struct {
	conn    *pgx.Conn
	onClose func()
}

// NewConnAdapter wraps conn. onClose, if not nil, runs once after the
// connection is closed.
func NewConnAdapter(conn *pgx.Conn, onClose func()) *ConnAdapter {
	return &ConnAdapter{conn: conn, onClose: onClose}
}

// Exec executes a statement without returning any rows.
func (c *ConnAdapter) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return c.conn.Exec(ctx, sql, args...)
}

// QueryRow executes a query that is expected to return at most one row.
func (c *ConnAdapter) QueryRow(ctx context.Context, sql string, args ...any) pvsload.Row {
	return c.conn.QueryRow(ctx, sql, args...)
}

// CopyFrom streams r through the COPY sub-protocol.
func (c *ConnAdapter) CopyFrom(ctx context.Context, r io.Reader, sql string) (pgconn.CommandTag, error) {
	return c.conn.PgConn().CopyFrom(ctx, r, sql)
}

// Begin starts a transaction.
func (c *ConnAdapter) Begin(ctx context.Context) (pvsload.Tx, error) {
	return c.conn.Begin(ctx)
}

// Close terminates the connection.
func (c *ConnAdapter) Close(ctx context.Context) error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close(ctx)
	c.conn = nil
	if c.onClose != nil {
		c.onClose()
		c.onClose = nil
	}
	return err
}

// Verify ConnAdapter implements DBConn at compile time
var _ pvsload.DBConn = (*ConnAdapter)(nil)
