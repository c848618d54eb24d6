package pvsload

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5/pgconn"
)

// Connector opens one database connection per call.
// Every snapshot step acquires its own connection through a Connector and
// closes it before returning, so pooling or grouping steps on a shared
// connection can be introduced behind this interface alone.
type Connector interface {
	Connect(ctx context.Context) (DBConn, error)
}

// ConnectorFactory builds a Connector from INI connection parameters.
type ConnectorFactory func(params ConnectionParams, logger Logger) (Connector, error)

// DBConn is a single, non-pooled database connection.
//
// Thread-Safety: NOT safe for concurrent use.
type DBConn interface {
	// Exec executes a statement without returning rows.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// CopyFrom streams r to the server for a COPY ... FROM STDIN statement.
	CopyFrom(ctx context.Context, r io.Reader, sql string) (pgconn.CommandTag, error)

	// Begin starts a transaction on this connection.
	Begin(ctx context.Context) (Tx, error)

	// Close terminates the connection. Safe to call more than once.
	Close(ctx context.Context) error
}

// Row is the result of DBConn.QueryRow.
type Row interface {
	Scan(dest ...any) error
}

// Tx is a transaction started by DBConn.Begin.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
