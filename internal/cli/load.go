package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vvka-141/pvsload/internal/services"
	"github.com/vvka-141/pvsload/internal/snapshot"
	"github.com/vvka-141/pvsload/pkg/pvsload"
)

var copyCmd = &cobra.Command{
	Use:   "copy <table>",
	Short: "Bulk-load the input CSV into an existing table with COPY",
	Long: `Copy streams the input CSV into <table> with
COPY <table> FROM STDIN WITH (FORMAT text, DELIMITER ',').

The file has no header and its columns must be in table order. The COPY is a
single statement, so a bad row loads nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: runCopy,
}

var insertCmd = &cobra.Command{
	Use:   "insert <table>",
	Short: "Load the input CSV into an existing table one INSERT per row",
	Long: `Insert loads each CSV record with its own INSERT ... RETURNING vm_name,
each on its own connection. It stops at the first row that fails.

With --row only that one record is inserted and the input file is not read.

Examples:
  pvsload insert all_vms_20240309_140507
  pvsload insert all_vms_20240309_140507 --row "ibm1,Name1,pvsA,vm1,VM1,10,linux,2,4096"`,
	Args: cobra.ExactArgs(1),
	RunE: runInsert,
}

var insertRow string

func init() {
	insertCmd.Flags().StringVar(&insertRow, "row", "",
		"Insert this single CSV record ("+strings.Join(pvsload.VMColumns, ",")+")")

	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(insertCmd)
}

func runCopy(cmd *cobra.Command, args []string) error {
	env, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer env.flush()

	if err := services.CheckInput(env.cfg.InputFile); err != nil {
		return err
	}
	manager, err := env.runner.OpenManager(env.cfg)
	if err != nil {
		return err
	}

	ctx, cancel := runContext(env.cfg.Timeout)
	defer cancel()

	rows, err := manager.CopyData(ctx, args[0], env.cfg.InputFile)
	if err != nil {
		return err
	}
	env.logger.Info("Loaded %d rows into %s", rows, args[0])
	return nil
}

func runInsert(cmd *cobra.Command, args []string) error {
	env, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer env.flush()

	table := args[0]
	if insertRow != "" {
		records, err := snapshot.ReadRecords(strings.NewReader(insertRow))
		if err != nil {
			return fmt.Errorf("invalid --row: %w: %w", pvsload.ErrInvalidConfig, err)
		}
		if len(records) != 1 {
			return fmt.Errorf("invalid --row: expected one record, got %d: %w", len(records), pvsload.ErrInvalidConfig)
		}

		manager, err := env.runner.OpenManager(env.cfg)
		if err != nil {
			return err
		}
		ctx, cancel := runContext(env.cfg.Timeout)
		defer cancel()

		vmName, err := manager.InsertRow(ctx, table, records[0])
		if err != nil {
			return err
		}
		env.logger.Info("Inserted %s into %s", vmName, table)
		return nil
	}

	if err := services.CheckInput(env.cfg.InputFile); err != nil {
		return err
	}
	manager, err := env.runner.OpenManager(env.cfg)
	if err != nil {
		return err
	}

	ctx, cancel := runContext(env.cfg.Timeout)
	defer cancel()

	rows, err := manager.InsertFile(ctx, table, env.cfg.InputFile)
	if err != nil {
		return err
	}
	env.logger.Info("Inserted %d rows into %s", rows, table)
	return nil
}
