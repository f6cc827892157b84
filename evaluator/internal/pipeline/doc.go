// Package pipeline runs one evaluation: load both tables, join and
// validate them, score the joined rows, write the measure block, then hand
// the run to the optional metrics and history sinks.
//
// Validation warnings go to the configured stderr writer as plain lines and
// never stop the run. Every other failure is returned, wrapped with the
// step that produced it.
package pipeline
