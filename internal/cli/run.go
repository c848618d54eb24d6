package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vvka-141/pvsload/internal/config"
	"github.com/vvka-141/pvsload/internal/db"
	"github.com/vvka-141/pvsload/internal/logging"
	"github.com/vvka-141/pvsload/internal/services"
	"github.com/vvka-141/pvsload/pkg/pvsload"
)

const (
	logFormatConsole = "console"
	logFormatJSON    = "json"
)

type runFlagValues struct {
	project         string
	configFile      string
	section         string
	input           string
	referenceTable  string
	tablePrefix     string
	view            string
	mode            string
	logFormat       string
	continueOnError bool
	timeout         time.Duration
}

var runFlags runFlagValues

// Swapped by tests.
var (
	loadConnectionParams services.ParamsLoader    = config.LoadConnectionParams
	connectorFactory     pvsload.ConnectorFactory = db.NewConnector
	logOutput            io.Writer                = os.Stdout
	clock                                         = time.Now
)

func registerRunFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringVar(&runFlags.project, "project", "",
		"Project settings file (default: ./"+config.ProjectFileName+" if present)")
	flags.StringVarP(&runFlags.configFile, "config", "c", pvsload.DefaultConfigFile,
		"INI file holding the connection parameters")
	flags.StringVarP(&runFlags.section, "section", "s", pvsload.DefaultConfigSection,
		"INI section to read connection parameters from")
	flags.StringVarP(&runFlags.input, "input", "i", pvsload.DefaultInputFile,
		"Inventory CSV file to load")
	flags.StringVar(&runFlags.referenceTable, "reference-table", pvsload.DefaultReferenceTable,
		"Table whose columns every snapshot copies")
	flags.StringVar(&runFlags.tablePrefix, "table-prefix", pvsload.DefaultTablePrefix,
		"Snapshot table name prefix, followed by YYYYMMDD_HHMMSS")
	flags.StringVar(&runFlags.view, "view", pvsload.DefaultViewName,
		"View republished over the newest snapshot")
	flags.StringVar(&runFlags.mode, "mode", string(pvsload.LoadModeCopy),
		"Load mode: copy (COPY FROM STDIN) or insert (one INSERT per row)")
	flags.StringVar(&runFlags.logFormat, "log-format", logFormatConsole,
		"Log output format: console or json")
	flags.BoolVar(&runFlags.continueOnError, "continue-on-error", false,
		"Log failed SQL steps and keep going instead of aborting the run")
	flags.DurationVar(&runFlags.timeout, "timeout", 0,
		"Abort the run after this long (default 0, no deadline)\n"+
			"Examples: 30s, 5m")
}

// loadProject reads the project settings file. Without --project a missing
// ./pvsload.yaml means built-in defaults.
func loadProject(path string) (*config.ProjectConfig, error) {
	if path == "" {
		project, err := config.Load(".")
		if errors.Is(err, config.ErrConfigNotFound) {
			return config.DefaultProject(), nil
		}
		return project, err
	}

	project, err := config.LoadFile(path)
	if errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmt.Errorf("project file %s: %w: %w", path, pvsload.ErrInvalidConfig, err)
	}
	return project, err
}

// buildRunConfig layers the RunConfig: built-in defaults, then pvsload.yaml,
// then flags the user set explicitly.
func buildRunConfig(cmd *cobra.Command) (pvsload.RunConfig, error) {
	_ = godotenv.Load()

	project, err := loadProject(runFlags.project)
	if err != nil {
		return pvsload.RunConfig{}, err
	}
	cfg, err := project.RunConfig()
	if err != nil {
		return pvsload.RunConfig{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("config") {
		cfg.ConfigFile = runFlags.configFile
	}
	if flags.Changed("section") {
		cfg.ConfigSection = runFlags.section
	}
	if flags.Changed("input") {
		cfg.InputFile = runFlags.input
	}
	if flags.Changed("reference-table") {
		cfg.ReferenceTable = runFlags.referenceTable
	}
	if flags.Changed("table-prefix") {
		cfg.TablePrefix = runFlags.tablePrefix
	}
	if flags.Changed("view") {
		cfg.ViewName = runFlags.view
	}
	if flags.Changed("mode") {
		mode, err := pvsload.ParseLoadMode(runFlags.mode)
		if err != nil {
			return pvsload.RunConfig{}, err
		}
		cfg.LoadMode = mode
	}
	if flags.Changed("continue-on-error") {
		cfg.ContinueOnError = runFlags.continueOnError
	}
	if flags.Changed("timeout") {
		cfg.Timeout = runFlags.timeout
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if err := cfg.Validate(); err != nil {
		return pvsload.RunConfig{}, err
	}
	return cfg, nil
}

// newLogger returns the logger selected by --log-format and a flush func to
// call before exit.
func newLogger(format string, verbose bool) (pvsload.Logger, func(), error) {
	switch format {
	case "", logFormatConsole:
		return logging.NewConsoleLoggerTo(logOutput, verbose), func() {}, nil
	case logFormatJSON:
		logger := logging.NewZapLogger(logOutput, verbose)
		return logger, func() { _ = logger.Sync() }, nil
	default:
		return nil, nil, fmt.Errorf("invalid --log-format %q (want %s or %s): %w",
			format, logFormatConsole, logFormatJSON, pvsload.ErrInvalidConfig)
	}
}

// runContext returns a context canceled on SIGINT/SIGTERM and, when timeout
// is positive, after timeout.
func runContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\n[INTERRUPT] Received interrupt signal, cancelling run...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// commandEnv is what every command needs once flags are resolved.
type commandEnv struct {
	cfg    pvsload.RunConfig
	logger pvsload.Logger
	runner *services.SnapshotRunner
	flush  func()
}

func prepare(cmd *cobra.Command) (*commandEnv, error) {
	cfg, err := buildRunConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, flush, err := newLogger(runFlags.logFormat, cfg.Verbose)
	if err != nil {
		return nil, err
	}
	runner := services.NewSnapshotRunner(loadConnectionParams, connectorFactory, logger).WithClock(clock)
	return &commandEnv{cfg: cfg, logger: logger, runner: runner, flush: flush}, nil
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	env, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer env.flush()

	ctx, cancel := runContext(env.cfg.Timeout)
	defer cancel()

	result, err := env.runner.Run(ctx, env.cfg)
	if err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		env.logger.Info("Snapshot run finished with %d failed step(s)", len(result.Failed))
		return nil
	}
	env.logger.Verbose("Snapshot %s published as %s", result.Table, result.View)
	return nil
}
