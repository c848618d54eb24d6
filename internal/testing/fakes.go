package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vvka-141/pvsload/pkg/pvsload"
)

// FakeConnector hands out FakeConns that record every statement into a
// shared journal. Errors can be injected per statement prefix.
type FakeConnector struct {
	mu sync.Mutex

	// ConnectErr fails every Connect call when set.
	ConnectErr error
	// FailOn maps a statement prefix (e.g. "CREATE TABLE") to the error returned for it.
	FailOn map[string]error
	// CopyRows is the row count reported by CopyFrom.
	CopyRows int64
	// ReturnVMName is scanned by QueryRow; defaults to the first argument's vm_name.
	ReturnVMName string

	connects   int
	open       int
	statements []string
	copied     []string
}

var _ pvsload.Connector = (*FakeConnector)(nil)

// NewFakeConnector creates a FakeConnector with no injected failures.
func NewFakeConnector() *FakeConnector {
	return &FakeConnector{FailOn: map[string]error{}}
}

func (f *FakeConnector) Connect(_ context.Context) (pvsload.DBConn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connects++
	if f.ConnectErr != nil {
		return nil, f.ConnectErr
	}
	f.open++
	return &FakeConn{parent: f}, nil
}

// Statements returns every statement run so far, in order.
func (f *FakeConnector) Statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.statements...)
}

// Copied returns the payloads streamed through CopyFrom.
func (f *FakeConnector) Copied() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.copied...)
}

// Connects reports how many connections were requested.
func (f *FakeConnector) Connects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

// OpenConns reports connections handed out and not yet closed.
func (f *FakeConnector) OpenConns() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *FakeConnector) record(sql string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statements = append(f.statements, sql)
	for prefix, err := range f.FailOn {
		if strings.HasPrefix(sql, prefix) {
			return err
		}
	}
	return nil
}

// FakeConn is a connection handed out by FakeConnector.
type FakeConn struct {
	parent *FakeConnector
	closed bool
}

func (c *FakeConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	if err := c.parent.record(sql); err != nil {
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag(strings.SplitN(sql, " ", 2)[0]), nil
}

func (c *FakeConn) QueryRow(_ context.Context, sql string, args ...any) pvsload.Row {
	return &fakeRow{err: c.parent.record(sql), args: args, name: c.parent.ReturnVMName}
}

func (c *FakeConn) CopyFrom(_ context.Context, r io.Reader, sql string) (pgconn.CommandTag, error) {
	if err := c.parent.record(sql); err != nil {
		return pgconn.CommandTag{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return pgconn.CommandTag{}, err
	}

	c.parent.mu.Lock()
	c.parent.copied = append(c.parent.copied, string(data))
	rows := c.parent.CopyRows
	c.parent.mu.Unlock()

	return pgconn.NewCommandTag(fmt.Sprintf("COPY %d", rows)), nil
}

func (c *FakeConn) Begin(_ context.Context) (pvsload.Tx, error) {
	if err := c.parent.record("BEGIN"); err != nil {
		return nil, err
	}
	return &fakeTx{conn: c}, nil
}

func (c *FakeConn) Close(_ context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true

	c.parent.mu.Lock()
	c.parent.open--
	c.parent.mu.Unlock()
	return nil
}

type fakeTx struct {
	conn *FakeConn
	done bool
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return tx.conn.Exec(ctx, sql, args...)
}

func (tx *fakeTx) Commit(_ context.Context) error {
	if tx.done {
		return errors.New("tx is closed")
	}
	tx.done = true
	return tx.conn.parent.record("COMMIT")
}

func (tx *fakeTx) Rollback(_ context.Context) error {
	if tx.done {
		return errors.New("tx is closed")
	}
	tx.done = true
	return tx.conn.parent.record("ROLLBACK")
}

type fakeRow struct {
	err  error
	args []any
	name string
}

// Scan writes the vm_name argument (fifth column) into a *string destination.
func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	name := r.name
	if name == "" {
		values := r.args
		if len(values) > 0 {
			if _, isMode := values[0].(pgx.QueryExecMode); isMode {
				values = values[1:]
			}
		}
		if len(values) > 4 {
			name = fmt.Sprint(values[4])
		}
	}
	if len(dest) != 1 {
		return fmt.Errorf("expected 1 destination, got %d", len(dest))
	}
	p, ok := dest[0].(*string)
	if !ok {
		return fmt.Errorf("unsupported destination %T", dest[0])
	}
	*p = name
	return nil
}

// RecordingLogger keeps every message for assertions.
type RecordingLogger struct {
	mu      sync.Mutex
	verbose []string
	info    []string
	errors  []string
}

var _ pvsload.Logger = (*RecordingLogger)(nil)

func (l *RecordingLogger) Verbose(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = append(l.verbose, fmt.Sprintf(format, args...))
}

func (l *RecordingLogger) Info(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.info = append(l.info, fmt.Sprintf(format, args...))
}

func (l *RecordingLogger) Error(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

// Infos returns the Info messages in order.
func (l *RecordingLogger) Infos() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.info...)
}

// Errors returns the Error messages in order.
func (l *RecordingLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

// Verboses returns the Verbose messages in order.
func (l *RecordingLogger) Verboses() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.verbose...)
}
