package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/prometheus/common/expfmt"

	"github.com/chatdc/chatdc/evaluator/internal/compute"
	"github.com/chatdc/chatdc/evaluator/internal/config"
)

const namespace = "chatdc_evaluation"

// Observation is everything the exporter reports about one run.
type Observation struct {
	MetricKey     string
	Score         compute.Output
	TruthRows     int
	PredictedRows int
	JoinedRows    int
	Warnings      int
	Finished      time.Time
}

// Exporter holds the metrics of the most recent run.
type Exporter struct {
	cfg    config.MetricsConfig
	reg    *prometheus.Registry
	client *http.Client

	score     *prometheus.GaugeVec
	precision prometheus.Gauge
	recall    prometheus.Gauge
	rows      *prometheus.GaugeVec
	confusion *prometheus.GaugeVec
	warnings  prometheus.Gauge
	lastRun   prometheus.Gauge
}

// New builds an Exporter and registers its collectors.
func New(cfg config.MetricsConfig) *Exporter {
	e := &Exporter{
		cfg:    cfg,
		reg:    prometheus.NewRegistry(),
		client: buildHTTPClient(cfg.Push),
		score: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "score",
			Help:      "Score reported in the measure block of the last run.",
		}, []string{"metric"}),
		precision: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "precision",
			Help:      "Precision of the positive class in the last run.",
		}),
		recall: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recall",
			Help:      "Recall of the positive class in the last run.",
		}),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows",
			Help:      "Row counts of the truth, predictions and joined tables.",
		}, []string{"table"}),
		confusion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "confusion",
			Help:      "Confusion matrix counts for the positive class.",
		}, []string{"outcome"}),
		warnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "warnings",
			Help:      "Validation warnings raised by the last run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	e.reg.MustRegister(e.score, e.precision, e.recall, e.rows, e.confusion, e.warnings, e.lastRun)
	return e
}

// Registry exposes the exporter's collectors, mainly for tests.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.reg
}

// Observe replaces the exported values with those of obs.
func (e *Exporter) Observe(obs Observation) {
	e.score.Reset()
	e.score.WithLabelValues(obs.MetricKey).Set(obs.Score.F1)
	e.precision.Set(obs.Score.Precision)
	e.recall.Set(obs.Score.Recall)

	e.rows.WithLabelValues("truth").Set(float64(obs.TruthRows))
	e.rows.WithLabelValues("predictions").Set(float64(obs.PredictedRows))
	e.rows.WithLabelValues("joined").Set(float64(obs.JoinedRows))

	c := obs.Score.Confusion
	e.confusion.WithLabelValues("tp").Set(float64(c.TP))
	e.confusion.WithLabelValues("fp").Set(float64(c.FP))
	e.confusion.WithLabelValues("fn").Set(float64(c.FN))
	e.confusion.WithLabelValues("tn").Set(float64(c.TN))

	e.warnings.Set(float64(obs.Warnings))
	if !obs.Finished.IsZero() {
		e.lastRun.Set(float64(obs.Finished.Unix()))
	}
}

// Export writes the textfile and pushes to the Pushgateway, each only
// when configured.
func (e *Exporter) Export(ctx context.Context, runID string) error {
	if e.cfg.Textfile != "" {
		if err := e.WriteTextfile(e.cfg.Textfile); err != nil {
			return err
		}
		slog.Debug("exporter: textfile written", "path", e.cfg.Textfile)
	}
	if url := e.cfg.Push.URL(); url != "" {
		if err := e.Push(ctx, url, runID); err != nil {
			return err
		}
		slog.Debug("exporter: pushed metrics", "job", e.cfg.Push.Job, "run_id", runID)
	}
	return nil
}

// WriteTextfile renders the registry in the Prometheus text format to path.
// The file is written next to path and renamed into place so a concurrent
// scrape never sees a partial file.
func (e *Exporter) WriteTextfile(path string) error {
	mfs, err := e.reg.Gather()
	if err != nil {
		return fmt.Errorf("exporter: gather: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("exporter: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(tmp, mf); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("exporter: encode %s: %w", mf.GetName(), err)
		}
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("exporter: chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("exporter: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("exporter: rename textfile: %w", err)
	}
	return nil
}

// Push sends the registry to the Pushgateway at url under the configured
// job, grouped by run_id.
func (e *Exporter) Push(ctx context.Context, url, runID string) error {
	pusher := push.New(url, e.cfg.Push.Job).
		Gatherer(e.reg).
		Client(e.client)
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("exporter: push to %s: %w", url, err)
	}
	return nil
}
