package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"backupmgr/internal/backup"
	"backupmgr/internal/config"
	"backupmgr/internal/executor"
	"backupmgr/internal/registry"
	"backupmgr/internal/retention"
)

func (g *globals) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.NewConfig(ctx, g.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openRegistry opens an existing registry. Commands other than `db create`
// never create one implicitly.
func openRegistry(ctx context.Context, cfg *config.Config) (*registry.Store, error) {
	ok, err := registry.Exists(cfg.Database)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("registry %s does not exist, create it with `backupmgr db create`", cfg.Database)
	}
	return registry.Open(ctx, cfg.Database)
}

// orchestrator bundles everything one run needs.
type orchestrator struct {
	store    *registry.Store
	executor *executor.Executor
	logger   zerolog.Logger
}

func newOrchestrator(ctx context.Context, cfg *config.Config, logger zerolog.Logger, recorder executor.Recorder) (*orchestrator, error) {
	pruner, err := retention.New(cfg.Retention, logger)
	if err != nil {
		return nil, err
	}

	dispatcher := backup.NewDispatcher(
		backup.FileStrategy{},
		&backup.DatabaseStrategy{
			Runner:    backup.ExecRunner{},
			MSSQLPath: cfg.Path.MSSQL,
			MySQLPath: cfg.Path.MySQL,
		},
		backup.NewS3Strategy(),
	)

	exec, err := executor.New(executor.Options{
		Strategies:  dispatcher,
		Pruner:      pruner,
		Recorder:    recorder,
		MaxParallel: cfg.MaxParallel,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	store, err := openRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &orchestrator{store: store, executor: exec, logger: logger}, nil
}

// run snapshots the active jobs and executes one orchestration run.
func (o *orchestrator) run(ctx context.Context) (*executor.Report, error) {
	jobs, err := o.store.ListActive(ctx)
	if err != nil {
		o.logger.Error().Err(err).Msg("failed to load jobs")
		return nil, err
	}
	return o.executor.Run(ctx, jobs, backup.NewRunContext(time.Now())), nil
}

func (o *orchestrator) Close() error { return o.store.Close() }
