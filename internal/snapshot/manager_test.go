package snapshot_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/pvsload/internal/snapshot"
	testhelpers "github.com/vvka-141/pvsload/internal/testing"
	"github.com/vvka-141/pvsload/pkg/pvsload"
)

const sampleRow = "ibm1,Name1,pvsA,vm1,VM1,10,linux,2,4096\n"

func newManager(t *testing.T) (*snapshot.Manager, *testhelpers.FakeConnector) {
	t.Helper()
	fc := testhelpers.NewFakeConnector()
	return snapshot.NewManager(fc, pvsload.DefaultReferenceTable, &testhelpers.RecordingLogger{}), fc
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), pvsload.DefaultInputFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewManager_PanicsOnNilDependencies(t *testing.T) {
	assert.Panics(t, func() {
		snapshot.NewManager(nil, "all_vms", &testhelpers.RecordingLogger{})
	})
	assert.Panics(t, func() {
		snapshot.NewManager(testhelpers.NewFakeConnector(), "all_vms", nil)
	})
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"all_vms", `"all_vms"`},
		{"inventory.all_vms", `"inventory"."all_vms"`},
		{`odd"name`, `"odd""name"`},
		{"MixedCase", `"MixedCase"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, snapshot.QuoteIdentifier(tt.in))
		})
	}
}

func TestCreateTable(t *testing.T) {
	m, fc := newManager(t)

	err := m.CreateTable(context.Background(), "all_vms_20240102_030405")
	require.NoError(t, err)

	assert.Equal(t, []string{
		`CREATE TABLE "all_vms_20240102_030405" AS (SELECT * FROM "all_vms") WITH NO DATA`,
	}, fc.Statements())
	assert.Equal(t, 1, fc.Connects())
	assert.Zero(t, fc.OpenConns(), "connection must be closed")
}

func TestCreateTable_Failure(t *testing.T) {
	m, fc := newManager(t)
	fc.FailOn["CREATE TABLE"] = errors.New(`relation "all_vms_x" already exists`)

	err := m.CreateTable(context.Background(), "all_vms_x")
	require.Error(t, err)
	assert.ErrorIs(t, err, pvsload.ErrDatabaseOperation)

	var opErr *pvsload.DatabaseOperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "create table", opErr.Op)
	assert.Equal(t, "all_vms_x", opErr.Object)
	assert.Contains(t, err.Error(), "already exists")
	assert.Zero(t, fc.OpenConns())
}

func TestOperations_ConnectFailure(t *testing.T) {
	m, fc := newManager(t)
	fc.ConnectErr = pvsload.ErrConnectionFailed

	err := m.CreateTable(context.Background(), "t")
	assert.ErrorIs(t, err, pvsload.ErrConnectionFailed)
	assert.ErrorIs(t, err, pvsload.ErrDatabaseOperation)
	assert.Equal(t, pvsload.ExitConnectionError, pvsload.ExitCodeForError(err))

	err = m.DropView(context.Background(), "v")
	assert.ErrorIs(t, err, pvsload.ErrConnectionFailed)
	assert.Empty(t, fc.Statements())
}

func TestCopyData(t *testing.T) {
	m, fc := newManager(t)
	fc.CopyRows = 3
	content := sampleRow + "ibm2,Name2,pvsB,vm2,VM2,20,aix,4,8192\nibm3,Name3,pvsC,vm3,VM3,30,ibmi,1,2048\n"
	path := writeCSV(t, content)

	n, err := m.CopyData(context.Background(), "all_vms_20240102_030405", path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	assert.Equal(t, []string{
		`COPY "all_vms_20240102_030405" FROM STDIN WITH (FORMAT text, DELIMITER ',')`,
	}, fc.Statements())
	assert.Equal(t, []string{content}, fc.Copied())
	assert.Zero(t, fc.OpenConns())
}

func TestCopyData_MissingFile(t *testing.T) {
	m, fc := newManager(t)

	_, err := m.CopyData(context.Background(), "t", filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorIs(t, err, pvsload.ErrDatabaseOperation)
	assert.Empty(t, fc.Statements())
	assert.Zero(t, fc.OpenConns())
}

func TestCopyData_ServerRejectsData(t *testing.T) {
	m, fc := newManager(t)
	fc.FailOn["COPY"] = errors.New("invalid input syntax for type integer")

	_, err := m.CopyData(context.Background(), "t", writeCSV(t, sampleRow))

	var opErr *pvsload.DatabaseOperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "copy", opErr.Op)
	assert.Equal(t, pvsload.ExitOperationFailed, pvsload.ExitCodeForError(err))
}

func TestDropAndCreateView(t *testing.T) {
	m, fc := newManager(t)
	ctx := context.Background()

	require.NoError(t, m.DropView(ctx, "pvsdata_all_vms"))
	require.NoError(t, m.CreateView(ctx, "pvsdata_all_vms", "all_vms_20240102_030405"))

	assert.Equal(t, []string{
		`DROP VIEW IF EXISTS "pvsdata_all_vms"`,
		`CREATE VIEW "pvsdata_all_vms" AS (SELECT * FROM "all_vms_20240102_030405")`,
	}, fc.Statements())
	assert.Equal(t, 2, fc.Connects(), "each operation uses its own connection")
	assert.Zero(t, fc.OpenConns())
}

func TestReplaceView(t *testing.T) {
	m, fc := newManager(t)

	require.NoError(t, m.ReplaceView(context.Background(), "pvsdata_all_vms", "all_vms_1"))

	assert.Equal(t, []string{
		"BEGIN",
		`DROP VIEW IF EXISTS "pvsdata_all_vms"`,
		`CREATE VIEW "pvsdata_all_vms" AS (SELECT * FROM "all_vms_1")`,
		"COMMIT",
	}, fc.Statements())
	assert.Equal(t, 1, fc.Connects())
	assert.Zero(t, fc.OpenConns())
}

func TestReplaceView_RollsBackOnFailure(t *testing.T) {
	m, fc := newManager(t)
	fc.FailOn["CREATE VIEW"] = errors.New(`relation "all_vms_1" does not exist`)

	err := m.ReplaceView(context.Background(), "pvsdata_all_vms", "all_vms_1")
	require.Error(t, err)

	var opErr *pvsload.DatabaseOperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "replace view", opErr.Op)

	stmts := fc.Statements()
	require.NotEmpty(t, stmts)
	assert.Equal(t, "ROLLBACK", stmts[len(stmts)-1])
	assert.NotContains(t, stmts, "COMMIT")
	assert.Zero(t, fc.OpenConns())
}

func TestInsertRow(t *testing.T) {
	m, fc := newManager(t)
	rec := pvsload.VMRecord{
		IBMCloudID: "ibm1", IBMCloudName: "Name1", PVSName: "pvsA", VMID: "vm1", VMName: "VM1",
		VMAge: "10", VMOS: "linux", VMProcessor: "2", VMMemory: "4096",
	}

	name, err := m.InsertRow(context.Background(), "all_vms_1", rec)
	require.NoError(t, err)
	assert.Equal(t, "VM1", name)

	stmts := fc.Statements()
	require.Len(t, stmts, 1)
	assert.True(t, strings.HasPrefix(stmts[0], `INSERT INTO "all_vms_1" (`+strings.Join(pvsload.VMColumns, ",")+")"), stmts[0])
	assert.Contains(t, stmts[0], "VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)")
	assert.True(t, strings.HasSuffix(stmts[0], "RETURNING vm_name"), stmts[0])
	assert.Zero(t, fc.OpenConns())
}

func TestInsertRow_Failure(t *testing.T) {
	m, fc := newManager(t)
	fc.FailOn["INSERT"] = errors.New("permission denied")

	_, err := m.InsertRow(context.Background(), "all_vms_1", pvsload.VMRecord{VMName: "VM1"})

	var opErr *pvsload.DatabaseOperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "insert", opErr.Op)
}

func TestInsertFile(t *testing.T) {
	m, fc := newManager(t)
	path := writeCSV(t, sampleRow+"ibm2,Name2,pvsB,vm2,VM2,20,aix,4,8192\n")

	n, err := m.InsertFile(context.Background(), "all_vms_1", path)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Len(t, fc.Statements(), 2)
	assert.Equal(t, 2, fc.Connects(), "one connection per row")
	assert.Zero(t, fc.OpenConns())
}

func TestInsertFile_StopsAtFirstFailure(t *testing.T) {
	m, fc := newManager(t)
	fc.FailOn["INSERT"] = errors.New("duplicate key")
	path := writeCSV(t, sampleRow+sampleRow)

	n, err := m.InsertFile(context.Background(), "all_vms_1", path)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Contains(t, err.Error(), "line 1")
	assert.Len(t, fc.Statements(), 1)
}

func TestReadRecords(t *testing.T) {
	t.Run("file order", func(t *testing.T) {
		recs, err := snapshot.ReadRecords(strings.NewReader(sampleRow + "ibm2,Name2,pvsB,vm2,VM2,20,aix,4,8192\n"))
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, pvsload.VMRecord{
			IBMCloudID: "ibm1", IBMCloudName: "Name1", PVSName: "pvsA", VMID: "vm1", VMName: "VM1",
			VMAge: "10", VMOS: "linux", VMProcessor: "2", VMMemory: "4096",
		}, recs[0])
		assert.Equal(t, "VM2", recs[1].VMName)
	})

	t.Run("quoted field", func(t *testing.T) {
		recs, err := snapshot.ReadRecords(strings.NewReader(`ibm1,"Name, Inc",pvsA,vm1,VM1,10,linux,2,4096` + "\n"))
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "Name, Inc", recs[0].IBMCloudName)
	})

	t.Run("empty input", func(t *testing.T) {
		recs, err := snapshot.ReadRecords(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("wrong field count", func(t *testing.T) {
		_, err := snapshot.ReadRecords(strings.NewReader("a,b,c\n"))
		assert.Error(t, err)
	})
}
