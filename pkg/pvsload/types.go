package pvsload

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ConnectionParams maps INI option names to their raw string values.
// Keys are consumed verbatim as libpq connection keywords, except for the
// reserved keys listed in ReservedParamKeys.
type ConnectionParams map[string]string

// Reserved connection parameter keys. They configure pvsload itself and are
// never sent to the server.
const (
	ParamAuthMethod        = "auth_method"
	ParamAWSRegion         = "aws_region"
	ParamAzureTenantID     = "azure_tenant_id"
	ParamAzureClientID     = "azure_client_id"
	ParamAzureClientSecret = "azure_client_secret"
	ParamGoogleInstance    = "google_instance"
)

// ReservedParamKeys lists the keys stripped from ConnectionParams before the
// remaining keys are turned into a connection string.
var ReservedParamKeys = []string{
	ParamAuthMethod,
	ParamAWSRegion,
	ParamAzureTenantID,
	ParamAzureClientID,
	ParamAzureClientSecret,
	ParamGoogleInstance,
}

// AuthMethod returns the authentication method named by the auth_method key.
// A missing key means AuthMethodStandard.
func (p ConnectionParams) AuthMethod() (AuthMethod, error) {
	return ParseAuthMethod(p[ParamAuthMethod])
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password (or .pgpass)
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// ParseAuthMethod maps an auth_method value to an AuthMethod.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return AuthMethodStandard, nil
	case "aws", "aws-iam", "aws_iam":
		return AuthMethodAWSIAM, nil
	case "google", "google-iam", "google_iam":
		return AuthMethodGoogleIAM, nil
	case "azure", "azure-entra-id", "entra":
		return AuthMethodAzureEntraID, nil
	default:
		return AuthMethodStandard, fmt.Errorf("auth_method %q: %w", s, ErrUnsupportedAuthMethod)
	}
}

// LoadMode selects how the input file reaches the snapshot table.
type LoadMode string

const (
	// LoadModeCopy streams the whole file with COPY FROM STDIN.
	LoadModeCopy LoadMode = "copy"

	// LoadModeInsert inserts one row per statement, returning each VM name.
	LoadModeInsert LoadMode = "insert"
)

// ParseLoadMode validates a --mode value.
func ParseLoadMode(s string) (LoadMode, error) {
	switch LoadMode(strings.ToLower(s)) {
	case "", LoadModeCopy:
		return LoadModeCopy, nil
	case LoadModeInsert:
		return LoadModeInsert, nil
	default:
		return "", fmt.Errorf("load mode %q must be %q or %q: %w", s, LoadModeCopy, LoadModeInsert, ErrInvalidConfig)
	}
}

// VMColumns is the column order of the inventory CSV and of the snapshot tables.
var VMColumns = []string{
	"ibm_cloud_id",
	"ibm_cloud_name",
	"pvs_name",
	"vm_id",
	"vm_name",
	"vm_age",
	"vm_os",
	"vm_processor",
	"vm_memory",
}

// VMRecord is one inventory row. Numeric columns stay strings so the server
// coerces them to whatever type the reference table declares.
type VMRecord struct {
	IBMCloudID   string `csv:"ibm_cloud_id"`
	IBMCloudName string `csv:"ibm_cloud_name"`
	PVSName      string `csv:"pvs_name"`
	VMID         string `csv:"vm_id"`
	VMName       string `csv:"vm_name"`
	VMAge        string `csv:"vm_age"`
	VMOS         string `csv:"vm_os"`
	VMProcessor  string `csv:"vm_processor"`
	VMMemory     string `csv:"vm_memory"`
}

// Values returns the record fields in VMColumns order.
func (r VMRecord) Values() []any {
	return []any{
		r.IBMCloudID,
		r.IBMCloudName,
		r.PVSName,
		r.VMID,
		r.VMName,
		r.VMAge,
		r.VMOS,
		r.VMProcessor,
		r.VMMemory,
	}
}

// RunConfig contains all parameters needed for one snapshot run.
type RunConfig struct {
	// ConfigFile is the INI file with connection parameters
	ConfigFile string

	// ConfigSection is the INI section to read
	ConfigSection string

	// InputFile is the inventory CSV to load
	InputFile string

	// ReferenceTable supplies the column structure of each snapshot
	ReferenceTable string

	// TablePrefix is prepended to the timestamp to name the snapshot table
	TablePrefix string

	// ViewName is the view republished over the new snapshot
	ViewName string

	// LoadMode selects COPY or row-wise INSERT
	LoadMode LoadMode

	// ContinueOnError logs failed SQL steps and keeps going instead of aborting
	ContinueOnError bool

	// Timeout bounds the whole run; zero means no deadline
	Timeout time.Duration

	// Verbose enables detailed logging
	Verbose bool
}

// DefaultRunConfig returns a RunConfig populated with the built-in names.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		ConfigFile:     DefaultConfigFile,
		ConfigSection:  DefaultConfigSection,
		InputFile:      DefaultInputFile,
		ReferenceTable: DefaultReferenceTable,
		TablePrefix:    DefaultTablePrefix,
		ViewName:       DefaultViewName,
		LoadMode:       LoadModeCopy,
	}
}

// Validate checks if the RunConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *RunConfig) Validate() error {
	var errs []error

	if c.ConfigFile == "" {
		errs = append(errs, fmt.Errorf("ConfigFile is required: %w", ErrInvalidConfig))
	}
	if c.ConfigSection == "" {
		errs = append(errs, fmt.Errorf("ConfigSection is required: %w", ErrInvalidConfig))
	}
	if c.InputFile == "" {
		errs = append(errs, fmt.Errorf("InputFile is required: %w", ErrInvalidConfig))
	}
	if c.ReferenceTable == "" {
		errs = append(errs, fmt.Errorf("ReferenceTable is required: %w", ErrInvalidConfig))
	}
	if c.TablePrefix == "" {
		errs = append(errs, fmt.Errorf("TablePrefix is required: %w", ErrInvalidConfig))
	}
	if c.ViewName == "" {
		errs = append(errs, fmt.Errorf("ViewName is required: %w", ErrInvalidConfig))
	}
	if _, err := ParseLoadMode(string(c.LoadMode)); err != nil {
		errs = append(errs, err)
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// SnapshotTableName names the snapshot table for a run started at t.
func SnapshotTableName(prefix string, t time.Time) string {
	return prefix + t.Format(SnapshotTimestampLayout)
}
