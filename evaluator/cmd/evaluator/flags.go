package main

import (
	"flag"
	"io"
	"log/slog"

	"github.com/chatdc/chatdc/evaluator/internal/config"
	"github.com/chatdc/chatdc/evaluator/internal/logging"
	"github.com/chatdc/chatdc/evaluator/internal/pipeline"
)

// options holds the parsed command line.
type options struct {
	// dirs holds only what was given on the command line; config values
	// are merged in by resolveRequest.
	dirs       pipeline.Request
	configPath string
	watch      bool
}

// registerFlags binds the evaluator flags to fs. Each directory has a short
// and a long name writing to the same field.
func registerFlags(fs *flag.FlagSet) *options {
	o := &options{}
	fs.StringVar(&o.dirs.PredictionsDir, "p", "", "directory containing predictions.csv")
	fs.StringVar(&o.dirs.PredictionsDir, "predictions", "", "directory containing predictions.csv (alias of -p)")
	fs.StringVar(&o.dirs.TruthDir, "t", "", "directory containing truth.csv")
	fs.StringVar(&o.dirs.TruthDir, "truth", "", "directory containing truth.csv (alias of -t)")
	fs.StringVar(&o.dirs.OutputDir, "o", "", "directory receiving evaluation.prototext")
	fs.StringVar(&o.dirs.OutputDir, "output", "", "directory receiving evaluation.prototext (alias of -o)")
	fs.StringVar(&o.configPath, "config", "", "optional path to config file")
	fs.BoolVar(&o.watch, "watch", false, "re-run whenever an input or the config file changes")
	return o
}

// resolveRequest lets the command-line directories override the config
// file. The config values are used when a flag is absent.
func resolveRequest(cfg *config.Config, flags pipeline.Request) pipeline.Request {
	req := flags
	if req.TruthDir == "" {
		req.TruthDir = cfg.Evaluator.TruthDir
	}
	if req.PredictionsDir == "" {
		req.PredictionsDir = cfg.Evaluator.PredictionsDir
	}
	if req.OutputDir == "" {
		req.OutputDir = cfg.Evaluator.OutputDir
	}
	return req
}

// loadConfig reads the config at path and derives the run request and the
// logger from it. It is used at startup and on every hot-reload.
func loadConfig(path string, flags pipeline.Request, logOut io.Writer) (*config.Config, pipeline.Request, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, pipeline.Request{}, nil, err
	}
	logger := logging.New(logOut, cfg.Logging.Level, cfg.Logging.Format)
	return cfg, resolveRequest(cfg, flags), logger, nil
}
