package testing

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/pvsload/internal/db"
	"github.com/vvka-141/pvsload/internal/logging"
	"github.com/vvka-141/pvsload/internal/testinfra"
	"github.com/vvka-141/pvsload/pkg/pvsload"
)

// ReferenceTableDDL creates an all_vms reference table in schema %s.
const ReferenceTableDDL = `CREATE TABLE %s.all_vms (
	ibm_cloud_id   text,
	ibm_cloud_name text,
	pvs_name       text,
	vm_id          text,
	vm_name        text,
	vm_age         integer,
	vm_os          text,
	vm_processor   numeric,
	vm_memory      integer
)`

var (
	testContainerOnce sync.Once
	testContainerConn string
	testContainerErr  error

	schemaSeq atomic.Int64
)

func getOrStartTestContainer() (string, error) {
	testContainerOnce.Do(func() {
		ctx := context.Background()
		container, err := testinfra.StartSimplePostgres(ctx)
		if err != nil {
			testContainerErr = err
			return
		}
		testContainerConn = container.ConnString
	})
	return testContainerConn, testContainerErr
}

// GetTestConnectionString returns the test database connection string.
// Priority: PVSLOAD_TEST_CONN env var > auto-started testcontainer > skip test.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv("PVSLOAD_TEST_CONN"); connString != "" {
		return connString
	}

	connString, err := getOrStartTestContainer()
	if err != nil {
		t.Skipf("PVSLOAD_TEST_CONN not set and Docker unavailable: %v", err)
	}
	return connString
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase combines SkipIfShort and GetTestConnectionString for convenience.
func RequireDatabase(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// NewTestConnector returns a standard connector for connString that logs nothing.
func NewTestConnector(t *testing.T, connString string) pvsload.Connector {
	t.Helper()
	return db.NewStandardConnector(connString, logging.NewNullLogger())
}

// CreateTestSchema creates a uniquely named schema holding an empty all_vms
// reference table and drops it with everything in it when the test ends.
func CreateTestSchema(t *testing.T, connString string) string {
	t.Helper()

	schema := fmt.Sprintf("pvsload_test_%d_%d", time.Now().UnixNano(), schemaSeq.Add(1))
	ExecSQL(t, connString, fmt.Sprintf("CREATE SCHEMA %s", schema))
	ExecSQL(t, connString, fmt.Sprintf(ReferenceTableDDL, schema))

	t.Cleanup(func() {
		ctx := context.Background()
		conn, err := pgx.Connect(ctx, connString)
		if err != nil {
			t.Logf("Warning: Failed to connect for cleanup: %v", err)
			return
		}
		defer conn.Close(ctx)

		if _, err := conn.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema)); err != nil {
			t.Logf("Warning: Failed to drop schema %s: %v", schema, err)
		}
	})
	return schema
}

// ExecSQL runs a statement on a fresh connection and fails the test on error.
func ExecSQL(t *testing.T, connString, sql string, args ...any) {
	t.Helper()

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, sql, args...); err != nil {
		t.Fatalf("Failed to execute %q: %v", sql, err)
	}
}

// QueryColumn returns the first column of every row as text.
func QueryColumn(t *testing.T, connString, sql string, args ...any) []string {
	t.Helper()

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		t.Fatalf("Failed to query %q: %v", sql, err)
	}
	values, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var v *string
		if err := row.Scan(&v); err != nil {
			return "", err
		}
		if v == nil {
			return "", nil
		}
		return *v, nil
	})
	if err != nil {
		t.Fatalf("Failed to read rows of %q: %v", sql, err)
	}
	return values
}

// ConnectionParams converts connString into INI-style connection parameters.
func ConnectionParams(t *testing.T, connString string) pvsload.ConnectionParams {
	t.Helper()

	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}
	return pvsload.ConnectionParams{
		"host":     cfg.Host,
		"port":     strconv.Itoa(int(cfg.Port)),
		"user":     cfg.User,
		"password": cfg.Password,
		"dbname":   cfg.Database,
		"sslmode":  "disable",
	}
}
