// Package compute scores joined truth/prediction rows.
//
// score.go provides the pure Score(rows, positive) function. It counts the
// confusion matrix for the label value treated as the positive class and
// derives precision, recall and F1:
//
//	precision = tp / (tp + fp)
//	recall    = tp / (tp + fn)
//	f1        = 2 * precision * recall / (precision + recall)
//
// A zero denominator yields 0 for that ratio and flags it in Output so the
// caller can log it; F1 is 0 when precision and recall are both 0. Scoring zero rows is an error (ErrNoData).
//
// format.go renders a score the way the challenge platform has always
// received it: shortest round-trip digits with a mandatory decimal point.
package compute
