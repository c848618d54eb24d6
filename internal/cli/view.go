package cli

import (
	"github.com/spf13/cobra"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Manage the published inventory view",
	Long: `View commands operate on the view named by --view (default pvsdata_all_vms).`,
}

var viewDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the view if it exists",
	Args:  cobra.NoArgs,
	RunE:  runViewDrop,
}

var viewCreateCmd = &cobra.Command{
	Use:   "create <source-table>",
	Short: "Create the view as SELECT * FROM <source-table>",
	Args:  cobra.ExactArgs(1),
	RunE:  runViewCreate,
}

var viewReplaceCmd = &cobra.Command{
	Use:   "replace <source-table>",
	Short: "Drop and recreate the view over <source-table> in one transaction",
	Args:  cobra.ExactArgs(1),
	RunE:  runViewReplace,
}

func init() {
	viewCmd.AddCommand(viewDropCmd, viewCreateCmd, viewReplaceCmd)
	rootCmd.AddCommand(viewCmd)
}

func runViewDrop(cmd *cobra.Command, _ []string) error {
	env, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer env.flush()

	manager, err := env.runner.OpenManager(env.cfg)
	if err != nil {
		return err
	}
	ctx, cancel := runContext(env.cfg.Timeout)
	defer cancel()

	if err := manager.DropView(ctx, env.cfg.ViewName); err != nil {
		return err
	}
	env.logger.Info("Dropped view %s", env.cfg.ViewName)
	return nil
}

func runViewCreate(cmd *cobra.Command, args []string) error {
	env, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer env.flush()

	manager, err := env.runner.OpenManager(env.cfg)
	if err != nil {
		return err
	}
	ctx, cancel := runContext(env.cfg.Timeout)
	defer cancel()

	if err := manager.CreateView(ctx, env.cfg.ViewName, args[0]); err != nil {
		return err
	}
	env.logger.Info("Created view %s over %s", env.cfg.ViewName, args[0])
	return nil
}

func runViewReplace(cmd *cobra.Command, args []string) error {
	env, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer env.flush()

	manager, err := env.runner.OpenManager(env.cfg)
	if err != nil {
		return err
	}
	ctx, cancel := runContext(env.cfg.Timeout)
	defer cancel()

	if err := manager.ReplaceView(ctx, env.cfg.ViewName, args[0]); err != nil {
		return err
	}
	env.logger.Info("View %s now selects from %s", env.cfg.ViewName, args[0])
	return nil
}
