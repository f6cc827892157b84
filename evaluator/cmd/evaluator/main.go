package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/chatdc/chatdc/evaluator/internal/config"
	"github.com/chatdc/chatdc/evaluator/internal/exporter"
	"github.com/chatdc/chatdc/evaluator/internal/pipeline"
	"github.com/chatdc/chatdc/evaluator/internal/store"
	"github.com/chatdc/chatdc/evaluator/internal/watch"
)

func main() {
	opts := registerFlags(flag.CommandLine)
	flag.Parse()

	cfg, req, logger, err := loadConfig(opts.configPath, opts.dirs, os.Stderr)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deps, closeDeps, err := buildDeps(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise sinks", "err", err)
		os.Exit(1)
	}
	defer closeDeps()

	if !opts.watch {
		_, err := pipeline.New(cfg.Evaluator, deps).Run(ctx, req)
		if err != nil {
			slog.Error("evaluation failed", "err", err)
			closeDeps()
			os.Exit(1)
		}
		return
	}

	if err := runWatch(ctx, opts, cfg, req, deps); err != nil {
		slog.Error("watch stopped", "err", err)
		closeDeps()
		os.Exit(1)
	}
	slog.Info("evaluator shutting down")
}
// buildDeps constructs the optional metrics exporter and run-history store.
// The returned func releases whatever was opened.
func buildDeps(ctx context.Context, cfg *config.Config) (pipeline.Deps, func(), error) {
	deps := pipeline.Deps{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: slog.Default(),
	}
	closeFn := func() {}

	if cfg.Metrics.Textfile != "" || cfg.Metrics.Push.URL() != "" {
		deps.Metrics = exporter.New(cfg.Metrics)
		slog.Info("metrics export enabled",
			"textfile", cfg.Metrics.Textfile,
			"push", cfg.Metrics.Push.URL() != "",
		)
	}

	if cfg.Store.Backend == "postgres" {
		dsn := cfg.Store.DSN()
		if dsn == "" {
			return deps, closeFn, fmt.Errorf("store: environment variable %s is empty", cfg.Store.DSNEnv)
		}
		if err := store.Migrate(dsn); err != nil {
			return deps, closeFn, err
		}
		s, err := store.Open(ctx, dsn)
		if err != nil {
			return deps, closeFn, err
		}
		deps.Recorder = s
		closeFn = s.Close
		slog.Info("run history enabled", "backend", cfg.Store.Backend)
	}

	return deps, closeFn, nil
}

// runWatch evaluates once, then again whenever an input file or the config
// file changes, until ctx is cancelled. Failed runs are logged and the loop
// continues. A config change reloads logging and the directories too; the
// metrics and history sinks keep their startup settings.
func runWatch(ctx context.Context, opts *options, cfg *config.Config, req pipeline.Request, deps pipeline.Deps) error {
	configPath := opts.configPath
	evaluate := func() {
		if _, err := pipeline.New(cfg.Evaluator, deps).Run(ctx, req); err != nil {
			slog.Error("evaluation failed", "err", err)
		}
	}
	evaluate()

	for ctx.Err() == nil {
		paths := watchPaths(configPath, cfg, req)
		watchCtx, stop := context.WithCancel(ctx)

		err := watch.Watch(watchCtx, paths, watch.DefaultDelay, func(changed []string) {
			slog.Info("inputs changed", "files", changed)
			if configPath != "" && slices.Contains(changed, absPath(configPath)) {
				updated, updatedReq, logger, err := loadConfig(configPath, opts.dirs, os.Stderr)
				if err != nil {
					slog.Error("config reload failed; keeping previous config", "err", err)
				} else {
					cfg, req = updated, updatedReq
					slog.SetDefault(logger)
					deps.Logger = logger
					slog.Info("config hot-reloaded", "metric_key", cfg.Evaluator.MetricKey)
					// Directories or file names may have changed; re-arm the watcher.
					if !slices.Equal(paths, watchPaths(configPath, cfg, req)) {
						stop()
					}
				}
			}
			evaluate()
		})
		stop()
		if err != nil {
			return err
		}
	}
	return nil
}

func watchPaths(configPath string, cfg *config.Config, req pipeline.Request) []string {
	paths := []string{
		absPath(filepath.Join(req.TruthDir, cfg.Evaluator.TruthFile)),
		absPath(filepath.Join(req.PredictionsDir, cfg.Evaluator.PredictionsFile)),
	}
	if configPath != "" {
		paths = append(paths, absPath(configPath))
	}
	return paths
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}
