package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/pvsload/pkg/pvsload"
)

// Manager runs snapshot operations, one connection per call.
// Stateless apart from its dependencies and safe for sequential reuse.
type Manager struct {
	connector      pvsload.Connector
	referenceTable string
	logger         pvsload.Logger
}

// NewManager creates a Manager that copies table structure from referenceTable.
func NewManager(connector pvsload.Connector, referenceTable string, logger pvsload.Logger) *Manager {
	if connector == nil {
		panic("connector cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Manager{
		connector:      connector,
		referenceTable: referenceTable,
		logger:         logger,
	}
}

// QuoteIdentifier quotes a possibly schema-qualified name for use in SQL.
func QuoteIdentifier(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

// withConn opens a connection, runs fn and always closes the connection.
func (m *Manager) withConn(ctx context.Context, op, object string, fn func(conn pvsload.DBConn) error) (err error) {
	conn, err := m.connector.Connect(ctx)
	if err != nil {
		return pvsload.NewOperationError(op, object, err)
	}
	defer func() {
		if closeErr := conn.Close(context.WithoutCancel(ctx)); closeErr != nil {
			m.logger.Verbose("closing connection after %s %s: %v", op, object, closeErr)
		}
	}()

	if err := fn(conn); err != nil {
		return pvsload.NewOperationError(op, object, err)
	}
	return nil
}

// exec runs one statement on its own connection.
func (m *Manager) exec(ctx context.Context, op, object, sql string) error {
	return m.withConn(ctx, op, object, func(conn pvsload.DBConn) error {
		m.logger.Verbose("%s", sql)
		_, err := conn.Exec(ctx, sql)
		return err
	})
}

// CreateTable creates an empty table with the reference table's columns.
func (m *Manager) CreateTable(ctx context.Context, table string) error {
	sql := fmt.Sprintf("CREATE TABLE %s AS (SELECT * FROM %s) WITH NO DATA",
		QuoteIdentifier(table), QuoteIdentifier(m.referenceTable))
	return m.exec(ctx, "create table", table, sql)
}

// CopyData streams csvPath into table with COPY FROM STDIN, using the text
// format with a comma delimiter. The file's columns must match the table's
// column order. Returns the number of rows copied.
func (m *Manager) CopyData(ctx context.Context, table, csvPath string) (int64, error) {
	var copied int64
	err := m.withConn(ctx, "copy", table, func(conn pvsload.DBConn) error {
		f, err := os.Open(csvPath)
		if err != nil {
			return err
		}
		defer f.Close()

		sql := fmt.Sprintf("COPY %s FROM STDIN WITH (FORMAT text, DELIMITER '%s')",
			QuoteIdentifier(table), pvsload.CopyDelimiter)
		m.logger.Verbose("%s < %s", sql, csvPath)

		tag, err := conn.CopyFrom(ctx, f, sql)
		if err != nil {
			return err
		}
		copied = tag.RowsAffected()
		return nil
	})
	return copied, err
}

// DropView drops view if it exists. Dropping a missing view is not an error.
func (m *Manager) DropView(ctx context.Context, view string) error {
	return m.exec(ctx, "drop view", view, dropViewSQL(view))
}

// CreateView creates view as a passthrough select over source. The view
// reads source live; it is not a copy.
func (m *Manager) CreateView(ctx context.Context, view, source string) error {
	return m.exec(ctx, "create view", view, createViewSQL(view, source))
}

// ReplaceView drops and recreates view over source in one transaction, so
// readers never observe the view missing. On failure the previous view is
// left in place.
func (m *Manager) ReplaceView(ctx context.Context, view, source string) error {
	return m.withConn(ctx, "replace view", view, func(conn pvsload.DBConn) error {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return err
		}

		for _, sql := range []string{dropViewSQL(view), createViewSQL(view, source)} {
			m.logger.Verbose("%s", sql)
			if _, err := tx.Exec(ctx, sql); err != nil {
				if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
					return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
				}
				return err
			}
		}
		return tx.Commit(ctx)
	})
}

func dropViewSQL(view string) string {
	return fmt.Sprintf("DROP VIEW IF EXISTS %s", QuoteIdentifier(view))
}

func createViewSQL(view, source string) string {
	return fmt.Sprintf("CREATE VIEW %s AS (SELECT * FROM %s)", QuoteIdentifier(view), QuoteIdentifier(source))
}
