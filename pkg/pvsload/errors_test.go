package pvsload_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vvka-141/pvsload/pkg/pvsload"
)

func TestExitCodeForError(t *testing.T) {
	opErr := pvsload.NewOperationError("create table", "all_vms_x", errors.New(`relation "all_vms" does not exist`))

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, pvsload.ExitSuccess},
		{"general error", errors.New("something went wrong"), pvsload.ExitGeneralError},
		{"missing input", fmt.Errorf("all.csv: %w", pvsload.ErrInputNotFound), pvsload.ExitGeneralError},
		{"invalid config", pvsload.ErrInvalidConfig, pvsload.ExitConfigError},
		{"missing section", fmt.Errorf("database.ini: %w", pvsload.ErrConfigSectionNotFound), pvsload.ExitConfigError},
		{"unsupported auth", pvsload.ErrUnsupportedAuthMethod, pvsload.ExitConfigError},
		{"connection failed", pvsload.ErrConnectionFailed, pvsload.ExitConnectionError},
		{"connection refused text", errors.New("dial tcp: connection refused"), pvsload.ExitConnectionError},
		{"operation error", opErr, pvsload.ExitOperationFailed},
		{"wrapped operation error", fmt.Errorf("snapshot: %w", opErr), pvsload.ExitOperationFailed},
		{"unknown flag", errors.New("unknown flag: --foo"), pvsload.ExitUsageError},
		{"accepts args", errors.New("accepts 1 arg(s), received 0"), pvsload.ExitUsageError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pvsload.ExitCodeForError(tt.err); got != tt.want {
				t.Errorf("ExitCodeForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestDatabaseOperationError(t *testing.T) {
	cause := errors.New("duplicate table")
	err := pvsload.NewOperationError("create table", "all_vms_20260101_000000", cause)

	assert.Equal(t, "create table all_vms_20260101_000000: duplicate table", err.Error())
	assert.ErrorIs(t, err, pvsload.ErrDatabaseOperation)
	assert.ErrorIs(t, err, cause)

	var target *pvsload.DatabaseOperationError
	wrapped := fmt.Errorf("run: %w", err)
	if assert.ErrorAs(t, wrapped, &target) {
		assert.Equal(t, "create table", target.Op)
		assert.Equal(t, "all_vms_20260101_000000", target.Object)
	}
}

func TestErrConfigSectionNotFound_IsInvalidConfig(t *testing.T) {
	assert.ErrorIs(t, pvsload.ErrConfigSectionNotFound, pvsload.ErrInvalidConfig)
}
