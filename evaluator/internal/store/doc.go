// Package store keeps a history of evaluation runs in Postgres.
//
// The schema lives in migrations/ and is embedded into the binary; Migrate
// applies it with golang-migrate. RecordRun inserts one row per run, keyed
// by the run ID that also tags the run's log lines and pushed metrics.
//
// The store is optional: it is only opened when store.backend is postgres.
package store
