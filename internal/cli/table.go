package cli

import (
	"github.com/spf13/cobra"
	"github.com/vvka-141/pvsload/pkg/pvsload"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Manage snapshot tables",
}

var tableCreateCmd = &cobra.Command{
	Use:   "create [table]",
	Short: "Create an empty snapshot table from the reference table",
	Long: `Create runs CREATE TABLE <table> AS (SELECT * FROM <reference>) WITH NO DATA.

Without an argument the table is named <table-prefix><YYYYMMDD_HHMMSS> from the
current local time, the same name a full run would use.

Examples:
  pvsload table create
  pvsload table create all_vms_backfill --reference-table inventory.all_vms`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTableCreate,
}

func init() {
	tableCmd.AddCommand(tableCreateCmd)
	rootCmd.AddCommand(tableCmd)
}

func runTableCreate(cmd *cobra.Command, args []string) error {
	env, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer env.flush()

	table := pvsload.SnapshotTableName(env.cfg.TablePrefix, clock())
	if len(args) == 1 {
		table = args[0]
	}

	manager, err := env.runner.OpenManager(env.cfg)
	if err != nil {
		return err
	}

	ctx, cancel := runContext(env.cfg.Timeout)
	defer cancel()

	if err := manager.CreateTable(ctx, table); err != nil {
		return err
	}
	env.logger.Info("Created table %s", table)
	return nil
}
