package exporter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/chatdc/chatdc/evaluator/internal/compute"
	"github.com/chatdc/chatdc/evaluator/internal/config"
)

// sampleObservation is the worked example: two joined rows, one false positive.
func sampleObservation() Observation {
	return Observation{
		MetricKey: "f1",
		Score: compute.Output{
			Confusion: compute.Confusion{TP: 1, FP: 1},
			Precision: 0.5,
			Recall:    1,
			F1:        2.0 / 3.0,
		},
		TruthRows:     2,
		PredictedRows: 2,
		JoinedRows:    2,
		Finished:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestObserve(t *testing.T) {
	e := New(config.MetricsConfig{})
	e.Observe(sampleObservation())

	if got := testutil.ToFloat64(e.score.WithLabelValues("f1")); got != 2.0/3.0 {
		t.Errorf("score = %v, want 2/3", got)
	}
	if got := testutil.ToFloat64(e.precision); got != 0.5 {
		t.Errorf("precision = %v, want 0.5", got)
	}
	if got := testutil.ToFloat64(e.rows.WithLabelValues("joined")); got != 2 {
		t.Errorf("rows{joined} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(e.confusion.WithLabelValues("fp")); got != 1 {
		t.Errorf("confusion{fp} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.lastRun); got != 1767225600 {
		t.Errorf("last_run = %v, want 1767225600", got)
	}
}

func TestObserve_ReplacesMetricLabel(t *testing.T) {
	e := New(config.MetricsConfig{})
	e.Observe(sampleObservation())

	obs := sampleObservation()
	obs.MetricKey = "f1_unsubscribed"
	e.Observe(obs)

	if n := testutil.CollectAndCount(e.score); n != 1 {
		t.Errorf("score series = %d, want 1 after relabel", n)
	}
}

func TestWriteTextfile(t *testing.T) {
	e := New(config.MetricsConfig{})
	e.Observe(sampleObservation())

	path := filepath.Join(t.TempDir(), "chatdc.prom")
	if err := e.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	mfs := readTextfile(t, path)

	mf, ok := mfs["chatdc_evaluation_score"]
	if !ok {
		t.Fatalf("chatdc_evaluation_score missing; got %d families", len(mfs))
	}
	m := mf.GetMetric()[0]
	if got := m.GetGauge().GetValue(); got != 2.0/3.0 {
		t.Errorf("score = %v, want 2/3", got)
	}
	if lbl := m.GetLabel()[0]; lbl.GetName() != "metric" || lbl.GetValue() != "f1" {
		t.Errorf("label = %s=%s, want metric=f1", lbl.GetName(), lbl.GetValue())
	}
	if _, ok := mfs["chatdc_evaluation_confusion"]; !ok {
		t.Error("chatdc_evaluation_confusion missing")
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("dir holds %d entries, want only the textfile", len(entries))
	}
}

// readTextfile parses a text exposition file the way the textfile collector does.
func readTextfile(t *testing.T, path string) map[string]*dto.MetricFamily {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open textfile: %v", err)
	}
	defer f.Close()

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(f)
	if err != nil {
		t.Fatalf("parse textfile: %v", err)
	}
	return mfs
}

func TestWriteTextfile_MissingDir(t *testing.T) {
	e := New(config.MetricsConfig{})
	if err := e.WriteTextfile(filepath.Join(t.TempDir(), "absent", "x.prom")); err == nil {
		t.Fatal("expected error for missing directory, got nil")
	}
}

// pushRecorder is a minimal Pushgateway stand-in.
type pushRecorder struct {
	mu     sync.Mutex
	method string
	path   string
	auth   string
	apiKey string
}

func (p *pushRecorder) handler(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.method = r.Method
	p.path = r.URL.Path
	p.auth = r.Header.Get("Authorization")
	p.apiKey = r.Header.Get("X-Api-Key")
	w.WriteHeader(http.StatusOK)
}

func TestPush(t *testing.T) {
	rec := &pushRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	t.Setenv("TEST_PUSH_TOKEN", "tok")
	e := New(config.MetricsConfig{Push: config.PushConfig{
		Job:  "chatdc_evaluator",
		Auth: config.AuthConfig{Mode: "bearer", TokenEnv: "TEST_PUSH_TOKEN"},
	}})
	e.Observe(sampleObservation())

	if err := e.Push(context.Background(), srv.URL, "run-1"); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.method != http.MethodPut {
		t.Errorf("method = %s, want PUT", rec.method)
	}
	if rec.path != "/metrics/job/chatdc_evaluator/run_id/run-1" {
		t.Errorf("path = %s", rec.path)
	}
	if rec.auth != "Bearer tok" {
		t.Errorf("Authorization = %q, want %q", rec.auth, "Bearer tok")
	}
}

func TestPush_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := New(config.MetricsConfig{Push: config.PushConfig{Job: "chatdc_evaluator"}})
	err := e.Push(context.Background(), srv.URL, "run-1")
	if err == nil {
		t.Fatal("expected error on 500, got nil")
	}
	if !strings.Contains(err.Error(), "exporter: push") {
		t.Errorf("error %q not wrapped", err)
	}
}

func TestExport_UsesConfiguredTargets(t *testing.T) {
	rec := &pushRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	t.Setenv("TEST_PUSHGATEWAY_URL", srv.URL)
	t.Setenv("TEST_PUSH_KEY", "k")
	path := filepath.Join(t.TempDir(), "chatdc.prom")

	e := New(config.MetricsConfig{
		Textfile: path,
		Push: config.PushConfig{
			URLEnv: "TEST_PUSHGATEWAY_URL",
			Job:    "nightly",
			Auth:   config.AuthConfig{Mode: "apikey", Header: "X-Api-Key", KeyEnv: "TEST_PUSH_KEY"},
		},
	})
	e.Observe(sampleObservation())

	if err := e.Export(context.Background(), "run-2"); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("textfile not written: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.path != "/metrics/job/nightly/run_id/run-2" {
		t.Errorf("push path = %q", rec.path)
	}
	if rec.apiKey != "k" {
		t.Errorf("X-Api-Key = %q, want k", rec.apiKey)
	}
}

func TestExport_NothingConfigured(t *testing.T) {
	e := New(config.MetricsConfig{})
	if err := e.Export(context.Background(), "run-3"); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
}

func TestAuthRoundTripper_Basic(t *testing.T) {
	var gotUser, gotPass string
	var ok bool
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, ok = r.BasicAuth()
	}))
	defer srv.Close()

	t.Setenv("TEST_PUSH_PASSWORD", "secret")
	client := buildHTTPClient(config.PushConfig{
		Auth: config.AuthConfig{Mode: "basic", Username: "scorer", PasswordEnv: "TEST_PUSH_PASSWORD"},
	})
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()

	if !ok || gotUser != "scorer" || gotPass != "secret" {
		t.Errorf("basic auth = %q/%q (ok=%v)", gotUser, gotPass, ok)
	}
}
