package pvsload_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/pvsload/pkg/pvsload"
)

func TestRunConfig_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		cfg := pvsload.DefaultRunConfig()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("empty config reports every field", func(t *testing.T) {
		cfg := pvsload.RunConfig{}
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, pvsload.ErrInvalidConfig))
		for _, field := range []string{"ConfigFile", "ConfigSection", "InputFile", "ReferenceTable", "TablePrefix", "ViewName"} {
			assert.Contains(t, err.Error(), field)
		}
	})

	t.Run("bad load mode", func(t *testing.T) {
		cfg := pvsload.DefaultRunConfig()
		cfg.LoadMode = "bulk"
		assert.ErrorIs(t, cfg.Validate(), pvsload.ErrInvalidConfig)
	})

	t.Run("negative timeout", func(t *testing.T) {
		cfg := pvsload.DefaultRunConfig()
		cfg.Timeout = -time.Second
		assert.ErrorIs(t, cfg.Validate(), pvsload.ErrInvalidConfig)
	})
}

func TestSnapshotTableName(t *testing.T) {
	ts := time.Date(2026, time.October, 17, 9, 5, 3, 0, time.Local)
	assert.Equal(t, "all_vms_20261017_090503", pvsload.SnapshotTableName(pvsload.DefaultTablePrefix, ts))
}

func TestParseAuthMethod(t *testing.T) {
	tests := []struct {
		input   string
		want    pvsload.AuthMethod
		wantErr bool
	}{
		{"", pvsload.AuthMethodStandard, false},
		{"standard", pvsload.AuthMethodStandard, false},
		{"AWS-IAM", pvsload.AuthMethodAWSIAM, false},
		{"google-iam", pvsload.AuthMethodGoogleIAM, false},
		{"azure", pvsload.AuthMethodAzureEntraID, false},
		{"kerberos", pvsload.AuthMethodStandard, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := pvsload.ParseAuthMethod(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, pvsload.ErrUnsupportedAuthMethod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLoadMode(t *testing.T) {
	mode, err := pvsload.ParseLoadMode("")
	require.NoError(t, err)
	assert.Equal(t, pvsload.LoadModeCopy, mode)

	mode, err = pvsload.ParseLoadMode("INSERT")
	require.NoError(t, err)
	assert.Equal(t, pvsload.LoadModeInsert, mode)

	_, err = pvsload.ParseLoadMode("upsert")
	assert.ErrorIs(t, err, pvsload.ErrInvalidConfig)
}

func TestVMRecord_ValuesFollowColumnOrder(t *testing.T) {
	rec := pvsload.VMRecord{
		IBMCloudID:   "ibm1",
		IBMCloudName: "Name1",
		PVSName:      "pvsA",
		VMID:         "vm1",
		VMName:       "VM1",
		VMAge:        "10",
		VMOS:         "linux",
		VMProcessor:  "2",
		VMMemory:     "4096",
	}

	values := rec.Values()
	require.Len(t, values, len(pvsload.VMColumns))
	assert.Equal(t, []any{"ibm1", "Name1", "pvsA", "vm1", "VM1", "10", "linux", "2", "4096"}, values)
}
