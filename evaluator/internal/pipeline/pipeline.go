package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chatdc/chatdc/evaluator/internal/compute"
	"github.com/chatdc/chatdc/evaluator/internal/config"
	"github.com/chatdc/chatdc/evaluator/internal/exporter"
	"github.com/chatdc/chatdc/evaluator/internal/loader"
	"github.com/chatdc/chatdc/evaluator/internal/merge"
	"github.com/chatdc/chatdc/evaluator/internal/report"
	"github.com/chatdc/chatdc/evaluator/internal/store"
	"github.com/chatdc/chatdc/pkg/types"
)

// MetricsSink receives run telemetry. *exporter.Exporter implements it.
type MetricsSink interface {
	Observe(obs exporter.Observation)
	Export(ctx context.Context, runID string) error
}

// RunRecorder persists finished runs. *store.Store implements it.
type RunRecorder interface {
	RecordRun(ctx context.Context, run store.Run) error
}

var (
	_ MetricsSink = (*exporter.Exporter)(nil)
	_ RunRecorder = (*store.Store)(nil)
)

// Request names the directories of one run.
type Request struct {
	TruthDir       string
	PredictionsDir string
	OutputDir      string
}

// Result describes a finished run.
type Result struct {
	RunID       string
	Measurement types.Measurement
	Score       compute.Output
	Warnings    []merge.Warning

	TruthRows     int
	PredictedRows int
	JoinedRows    int

	StartedAt  time.Time
	FinishedAt time.Time
}

// Deps wires the pipeline's writers and optional sinks.
type Deps struct {
	Stdout   io.Writer
	Stderr   io.Writer
	Metrics  MetricsSink // optional
	Recorder RunRecorder // optional
	Logger   *slog.Logger
}

// Pipeline evaluates submissions against the truth table.
type Pipeline struct {
	cfg      config.EvaluatorConfig
	stdout   io.Writer
	stderr   io.Writer
	metrics  MetricsSink
	recorder RunRecorder
	logger   *slog.Logger

	now   func() time.Time // injectable for deterministic tests
	newID func() string
}

// New builds a Pipeline for cfg.
func New(cfg config.EvaluatorConfig, deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stdout, stderr := deps.Stdout, deps.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return &Pipeline{
		cfg:      cfg,
		stdout:   stdout,
		stderr:   stderr,
		metrics:  deps.Metrics,
		recorder: deps.Recorder,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Run performs one evaluation.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	res := &Result{RunID: p.newID(), StartedAt: p.now()}
	log := p.logger.With("run_id", res.RunID)

	truth, err := loader.Load(req.TruthDir, p.cfg.TruthFile)
	if err != nil {
		return nil, fmt.Errorf("load truth: %w", err)
	}
	predicted, err := loader.Load(req.PredictionsDir, p.cfg.PredictionsFile)
	if err != nil {
		return nil, fmt.Errorf("load predictions: %w", err)
	}
	log.Debug("tables loaded", "truth_rows", len(truth), "predicted_rows", len(predicted))

	joined := merge.Join(truth, predicted)
	res.TruthRows, res.PredictedRows, res.JoinedRows = len(truth), len(predicted), len(joined)

	res.Warnings = merge.Validate(res.TruthRows, res.PredictedRows, res.JoinedRows)
	for _, w := range res.Warnings {
		fmt.Fprintln(p.stderr, w.Message)
		log.Debug("row count mismatch", "stage", w.Stage, "want", w.Want, "got", w.Got)
	}

	res.Score, err = compute.Score(joined, p.cfg.PositiveLabel)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	if res.Score.PrecisionUndefined {
		log.Warn("precision is ill-defined, no predicted positives; reported as 0", "rows", res.JoinedRows)
	}
	if res.Score.RecallUndefined {
		log.Warn("recall is ill-defined, no positive rows in truth; reported as 0", "rows", res.JoinedRows)
	}

	res.Measurement = types.Measurement{
		Key:   p.cfg.MetricKey,
		Value: compute.FormatValue(res.Score.F1),
	}
	if err := report.New(p.stdout, req.OutputDir, p.cfg.OutputFile).Write(res.Measurement); err != nil {
		return nil, fmt.Errorf("write measurement: %w", err)
	}
	res.FinishedAt = p.now()

	log.Info("evaluation finished",
		"metric", res.Measurement.Key,
		"value", res.Measurement.Value,
		"joined_rows", res.JoinedRows,
		"warnings", len(res.Warnings),
	)

	if p.metrics != nil {
		p.metrics.Observe(exporter.Observation{
			MetricKey:     res.Measurement.Key,
			Score:         res.Score,
			TruthRows:     res.TruthRows,
			PredictedRows: res.PredictedRows,
			JoinedRows:    res.JoinedRows,
			Warnings:      len(res.Warnings),
			Finished:      res.FinishedAt,
		})
		if err := p.metrics.Export(ctx, res.RunID); err != nil {
			return res, fmt.Errorf("export metrics: %w", err)
		}
	}

	if p.recorder != nil {
		if err := p.recorder.RecordRun(ctx, res.storeRun(req)); err != nil {
			return res, fmt.Errorf("record run: %w", err)
		}
	}

	return res, nil
}

func (r Request) validate() error {
	switch {
	case r.TruthDir == "":
		return fmt.Errorf("truth directory is required (-t/--truth)")
	case r.PredictionsDir == "":
		return fmt.Errorf("predictions directory is required (-p/--predictions)")
	case r.OutputDir == "":
		return fmt.Errorf("output directory is required (-o/--output)")
	}
	return nil
}

func (r *Result) storeRun(req Request) store.Run {
	return store.Run{
		ID:             r.RunID,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		TruthDir:       req.TruthDir,
		PredictionsDir: req.PredictionsDir,
		OutputDir:      req.OutputDir,
		MetricKey:      r.Measurement.Key,
		MetricValue:    r.Measurement.Value,
		Score:          r.Score.F1,
		TruthRows:      r.TruthRows,
		PredictedRows:  r.PredictedRows,
		JoinedRows:     r.JoinedRows,
		Warnings:       len(r.Warnings),
	}
}
