package snapshot

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jszwec/csvutil"
	"github.com/vvka-141/pvsload/pkg/pvsload"
)

// InsertRow inserts one record into table and returns the stored vm_name.
//
// The statement runs over the simple protocol so every field is sent as a
// string literal and the server coerces it to the column's declared type.
func (m *Manager) InsertRow(ctx context.Context, table string, rec pvsload.VMRecord) (string, error) {
	query, args, err := sq.Insert(QuoteIdentifier(table)).
		Columns(pvsload.VMColumns...).
		Values(rec.Values()...).
		Suffix("RETURNING vm_name").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return "", pvsload.NewOperationError("insert", table, err)
	}

	var vmName string
	err = m.withConn(ctx, "insert", table, func(conn pvsload.DBConn) error {
		queryArgs := append([]any{pgx.QueryExecModeSimpleProtocol}, args...)
		return conn.QueryRow(ctx, query, queryArgs...).Scan(&vmName)
	})
	return vmName, err
}

// InsertFile reads csvPath as headerless CSV in pvsload.VMColumns order and
// inserts each record with InsertRow. It stops at the first failure and
// returns how many rows were inserted before it.
func (m *Manager) InsertFile(ctx context.Context, table, csvPath string) (int64, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return 0, pvsload.NewOperationError("insert", table, err)
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		return 0, pvsload.NewOperationError("insert", table, fmt.Errorf("%s: %w", csvPath, err))
	}

	var inserted int64
	for i, rec := range records {
		vmName, err := m.InsertRow(ctx, table, rec)
		if err != nil {
			return inserted, fmt.Errorf("%s line %d: %w", csvPath, i+1, err)
		}
		m.logger.Verbose("inserted %s into %s", vmName, table)
		inserted++
	}
	return inserted, nil
}

// ReadRecords decodes headerless inventory CSV into records.
func ReadRecords(r io.Reader) ([]pvsload.VMRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(pvsload.VMColumns)

	dec, err := csvutil.NewDecoder(reader, pvsload.VMColumns...)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	var records []pvsload.VMRecord
	for {
		var rec pvsload.VMRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("record %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
