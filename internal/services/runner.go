package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/vvka-141/pvsload/internal/snapshot"
	"github.com/vvka-141/pvsload/pkg/pvsload"
)

// ParamsLoader reads connection parameters from an INI file section.
type ParamsLoader func(filename, section string) (pvsload.ConnectionParams, error)

// RunResult describes what a snapshot run did.
type RunResult struct {
	Table string
	View  string
	Rows  int64

	// Failed holds step errors tolerated under ContinueOnError.
	Failed []error
}

// SnapshotRunner drives one snapshot run: create the table, load the CSV,
// republish the view.
// Thread-Safety: NOT safe for concurrent Run() calls on the same instance.
type SnapshotRunner struct {
	loadParams       ParamsLoader
	connectorFactory pvsload.ConnectorFactory
	logger           pvsload.Logger
	now              func() time.Time
}

// NewSnapshotRunner creates a SnapshotRunner. Panics on nil dependencies.
func NewSnapshotRunner(loadParams ParamsLoader, connectorFactory pvsload.ConnectorFactory, logger pvsload.Logger) *SnapshotRunner {
	if loadParams == nil {
		panic("loadParams cannot be nil")
	}
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &SnapshotRunner{
		loadParams:       loadParams,
		connectorFactory: connectorFactory,
		logger:           logger,
		now:              time.Now,
	}
}

// WithClock replaces the clock used to name snapshot tables.
func (r *SnapshotRunner) WithClock(now func() time.Time) *SnapshotRunner {
	r.now = now
	return r
}

// OpenManager loads connection parameters for cfg and returns a Manager bound to them.
func (r *SnapshotRunner) OpenManager(cfg pvsload.RunConfig) (*snapshot.Manager, error) {
	params, err := r.loadParams(cfg.ConfigFile, cfg.ConfigSection)
	if err != nil {
		return nil, err
	}

	method, err := params.AuthMethod()
	if err != nil {
		return nil, err
	}
	r.logger.Verbose("Connecting with %s authentication", method)

	connector, err := r.connectorFactory(params, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}
	return snapshot.NewManager(connector, cfg.ReferenceTable, r.logger), nil
}

// CheckInput verifies that path names a regular file.
func CheckInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, pvsload.ErrInputNotFound)
		}
		return fmt.Errorf("%s: %w: %w", path, pvsload.ErrInputNotFound, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory: %w", path, pvsload.ErrInputNotFound)
	}
	return nil
}

// Run executes a snapshot run. The input file is checked before anything
// else, so a missing CSV never touches the configuration or the database.
//
// Each SQL step runs on its own connection. The first failing step aborts the
// run unless cfg.ContinueOnError is set, in which case failures are logged,
// collected in RunResult.Failed, and the remaining steps still run.
func (r *SnapshotRunner) Run(ctx context.Context, cfg pvsload.RunConfig) (RunResult, error) {
	if err := cfg.Validate(); err != nil {
		return RunResult{}, err
	}
	if err := CheckInput(cfg.InputFile); err != nil {
		return RunResult{}, err
	}

	manager, err := r.OpenManager(cfg)
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{
		Table: pvsload.SnapshotTableName(cfg.TablePrefix, r.now()),
		View:  cfg.ViewName,
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"create table", func() error {
			if err := manager.CreateTable(ctx, result.Table); err != nil {
				return err
			}
			r.logger.Info("Created table %s", result.Table)
			return nil
		}},
		{"load data", func() error {
			rows, err := r.load(ctx, manager, cfg, result.Table)
			result.Rows = rows
			if err != nil {
				return err
			}
			r.logger.Info("Loaded %d rows into %s", rows, result.Table)
			return nil
		}},
		{"republish view", func() error {
			if err := manager.ReplaceView(ctx, cfg.ViewName, result.Table); err != nil {
				return err
			}
			r.logger.Info("View %s now selects from %s", cfg.ViewName, result.Table)
			return nil
		}},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("%s: %w", step.name, err)
		}
		err := step.fn()
		if err == nil {
			continue
		}
		if !cfg.ContinueOnError {
			return result, err
		}
		r.logger.Error("%v", err)
		result.Failed = append(result.Failed, err)
	}
	return result, nil
}

func (r *SnapshotRunner) load(ctx context.Context, manager *snapshot.Manager, cfg pvsload.RunConfig, table string) (int64, error) {
	if cfg.LoadMode == pvsload.LoadModeInsert {
		return manager.InsertFile(ctx, table, cfg.InputFile)
	}
	return manager.CopyData(ctx, table, cfg.InputFile)
}
