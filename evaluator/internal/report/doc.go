// Package report writes measure blocks to standard output and appends them
// to the evaluation file in the output directory.
package report
