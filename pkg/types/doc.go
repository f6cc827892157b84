// Package types defines the records that flow through the evaluator:
// truth/prediction rows, the rows produced by joining them, and the
// Measurement written to evaluation.prototext.
package types
