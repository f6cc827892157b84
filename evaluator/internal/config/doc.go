// Package config loads the evaluator configuration file.
//
// Top-level types:
//   - Config{Evaluator, Logging, Metrics, Store}: full config tree parsed from YAML
//   - EvaluatorConfig: input/output directories, file names, metric key and
//     the label value scored as the positive class (false by default)
//   - MetricsConfig: optional Prometheus textfile path and Pushgateway target;
//     PushConfig.URL() and AuthConfig.Key/Token/Password() resolve secrets from
//     environment variables
//   - StoreConfig: optional postgres run history; DSN() resolves from the environment
//
// Load(path) applies defaults (truth.csv, predictions.csv, evaluation.prototext,
// key "f1", info/text logging), overlays the YAML file when path is non-empty,
// then validates enums and required fields.
package config
