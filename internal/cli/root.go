package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/vvka-141/pvsload/pkg/pvsload"
)

var rootCmd = &cobra.Command{
	Use:   "pvsload",
	Short: "Load PowerVS VM inventory snapshots into PostgreSQL",
	Long: `pvsload loads the PowerVS virtual-machine inventory exported to all.csv into
PostgreSQL as a new snapshot table, then republishes the pvsdata_all_vms view
over that snapshot.

A run performs, each on its own connection:
  1. CREATE TABLE all_vms_<YYYYMMDD_HHMMSS> AS (SELECT * FROM all_vms) WITH NO DATA
  2. COPY the CSV into the new table
  3. Drop and recreate pvsdata_all_vms over the new table in one transaction

Connection parameters come from the [postgresql] section of database.ini.
Every key is passed to the driver as a libpq keyword, except auth_method,
aws_region, azure_tenant_id, azure_client_id, azure_client_secret and
google_instance, which select cloud IAM authentication.

Exit Codes:
  0  - Success
  1  - General error, or the input .csv file is missing
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration
  11 - Database connection failed
  13 - SQL operation failed`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSnapshot,
}

// Execute runs the root command and reports any error it returns.
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout)
		return nil
	}
	err := rootCmd.Execute()
	reportError(os.Stdout, os.Stderr, err)
	return err
}

// reportError prints err for the user. A missing input file gets the fixed
// one-line message on stdout; everything else goes to stderr.
func reportError(stdout, stderr io.Writer, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, pvsload.ErrInputNotFound) {
		fmt.Fprintln(stdout, pvsload.MissingInputMessage)
		return
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
	registerRunFlags(rootCmd)
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
