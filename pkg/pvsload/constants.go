package pvsload

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Snapshot completed (or failures were tolerated)
	ExitGeneralError    = 1  // Unknown error, or the input CSV is missing
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration file or section
	ExitConnectionError = 11 // Failed to connect to database
	ExitOperationFailed = 13 // SQL operation failed
)

const (
	// DefaultConfigFile is the INI file holding connection parameters.
	DefaultConfigFile = "database.ini"

	// DefaultConfigSection is the INI section read from DefaultConfigFile.
	DefaultConfigSection = "postgresql"

	// DefaultInputFile is the inventory CSV expected in the working directory.
	DefaultInputFile = "all.csv"

	// DefaultReferenceTable is the table whose columns every snapshot copies.
	DefaultReferenceTable = "all_vms"

	// DefaultTablePrefix is prepended to the run timestamp to name a snapshot.
	DefaultTablePrefix = "all_vms_"

	// DefaultViewName is the stable view republished over the newest snapshot.
	DefaultViewName = "pvsdata_all_vms"

	// SnapshotTimestampLayout formats the snapshot suffix as YYYYMMDD_HHMMSS.
	SnapshotTimestampLayout = "20060102_150405"

	// CopyDelimiter separates fields in the bulk-loaded text file.
	CopyDelimiter = ","

	// MissingInputMessage is printed verbatim when the input CSV is absent.
	MissingInputMessage = "ERROR: could not locate the required .csv file"
)
