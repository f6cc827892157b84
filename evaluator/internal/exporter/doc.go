// Package exporter publishes run telemetry as Prometheus metrics.
//
// Each Exporter owns a private registry (nothing is added to the default
// registry) holding the score, precision, recall, table sizes, confusion
// counts and warning count of the last observed run.
//
// Two outputs are supported, both optional:
//   - WriteTextfile renders the registry in the text exposition format and
//     atomically replaces the target file, for the node_exporter textfile
//     collector.
//   - Push sends the registry to a Pushgateway, grouped by run_id. The HTTP
//     client injects API key, bearer or basic credentials via the shared
//     authRoundTripper in client.go.
package exporter
