package config

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultTruthFile       = "truth.csv"
	DefaultPredictionsFile = "predictions.csv"
	DefaultOutputFile      = "evaluation.prototext"
	DefaultMetricKey       = "f1"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultPushJob         = "chatdc_evaluator"
	DefaultDSNEnv          = "EVALUATOR_DATABASE_URL"
)

// Config is the top-level evaluator configuration.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Evaluator EvaluatorConfig `yaml:"evaluator"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Store     StoreConfig     `yaml:"store"`
}

// EvaluatorConfig describes where the inputs live and how the score is reported.
type EvaluatorConfig struct {
	// TruthDir and PredictionsDir are usually set from -t and -p.
	TruthDir       string `yaml:"truth_dir"`
	PredictionsDir string `yaml:"predictions_dir"`

	// OutputDir receives OutputFile; usually set from -o.
	OutputDir string `yaml:"output_dir"`

	TruthFile       string `yaml:"truth_file"`
	PredictionsFile string `yaml:"predictions_file"`
	OutputFile      string `yaml:"output_file"`

	// MetricKey is the key written into the measure block.
	MetricKey string `yaml:"metric_key"`

	// PositiveLabel is the label value scored as the positive class.
	// The challenge scores "not subscribed" users, hence false.
	PositiveLabel bool `yaml:"positive_label"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: text | json.
	Format string `yaml:"format"`
}

// MetricsConfig controls the optional Prometheus export of run telemetry.
type MetricsConfig struct {
	// Textfile is the path of a node_exporter textfile-collector file.
	// Empty disables the textfile export.
	Textfile string `yaml:"textfile"`

	Push PushConfig `yaml:"push"`
}

// PushConfig describes the Pushgateway target.
type PushConfig struct {
	// URLEnv is the name of the environment variable holding the Pushgateway URL.
	URLEnv string `yaml:"url_env"`

	// Job is the Pushgateway job label.
	Job string `yaml:"job"`

	Auth AuthConfig `yaml:"auth"`
	TLS  TLSConfig  `yaml:"tls"`
}

// URL returns the Pushgateway URL resolved from the environment.
func (p PushConfig) URL() string {
	if p.URLEnv == "" {
		return ""
	}
	return os.Getenv(p.URLEnv)
}

// AuthConfig specifies how requests to the Pushgateway are authenticated.
type AuthConfig struct {
	// Mode is one of: apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// Header is the HTTP header the API key is sent in (Mode == "apikey").
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv is the name of the environment variable that holds the bearer token.
	TokenEnv string `yaml:"token_env"`

	// Username is the literal basic-auth username.
	Username string `yaml:"username"`
	// PasswordEnv is the name of the environment variable that holds the password.
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// TLSConfig holds TLS dial options for the Pushgateway.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// StoreConfig configures the optional run-history backend.
type StoreConfig struct {
	// Backend selects the storage implementation: "" (disabled) | postgres.
	Backend string `yaml:"backend"`

	// DSNEnv is the name of the environment variable holding the connection string.
	DSNEnv string `yaml:"dsn_env"`
}

// DSN returns the connection string resolved from the environment.
func (s StoreConfig) DSN() string {
	if s.DSNEnv == "" {
		return ""
	}
	return os.Getenv(s.DSNEnv)
}

// Load reads and parses the YAML config file at path.
// An empty path yields the defaults. Missing optional fields are filled
// with defaults either way.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Evaluator: EvaluatorConfig{
			TruthFile:       DefaultTruthFile,
			PredictionsFile: DefaultPredictionsFile,
			OutputFile:      DefaultOutputFile,
			MetricKey:       DefaultMetricKey,
			PositiveLabel:   false,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metrics: MetricsConfig{
			Push: PushConfig{Job: DefaultPushJob},
		},
		Store: StoreConfig{DSNEnv: DefaultDSNEnv},
	}
}

// validate checks required fields and structural constraints.
// The input/output directories are checked by the pipeline since they
// normally arrive from flags after Load returns.
func validate(cfg *Config) error {
	ev := cfg.Evaluator
	if ev.TruthFile == "" {
		return fmt.Errorf("evaluator.truth_file must not be empty")
	}
	if ev.PredictionsFile == "" {
		return fmt.Errorf("evaluator.predictions_file must not be empty")
	}
	if ev.OutputFile == "" {
		return fmt.Errorf("evaluator.output_file must not be empty")
	}
	if ev.MetricKey == "" {
		return fmt.Errorf("evaluator.metric_key must not be empty")
	}
	if strings.ContainsFunc(ev.MetricKey, func(r rune) bool {
		return r == '"' || r == '\\' || !unicode.IsPrint(r)
	}) {
		return fmt.Errorf("evaluator.metric_key %q: quotes, backslashes and control characters are not allowed", ev.MetricKey)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format: unknown format %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Push.URLEnv != "" && cfg.Metrics.Push.Job == "" {
		return fmt.Errorf("metrics.push.job is required when metrics.push.url_env is set")
	}
	switch cfg.Metrics.Push.Auth.Mode {
	case "apikey":
		if cfg.Metrics.Push.Auth.Header == "" {
			return fmt.Errorf("metrics.push.auth.header is required for apikey mode")
		}
	case "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("metrics.push.auth: unknown mode %q", cfg.Metrics.Push.Auth.Mode)
	}

	switch cfg.Store.Backend {
	case "":
	case "postgres":
		if cfg.Store.DSNEnv == "" {
			return fmt.Errorf("store.dsn_env is required for the postgres backend")
		}
	default:
		return fmt.Errorf("store: unknown backend %q", cfg.Store.Backend)
	}
	return nil
}
