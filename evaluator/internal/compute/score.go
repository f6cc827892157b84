package compute

import (
	"errors"

	"github.com/chatdc/chatdc/pkg/types"
)

// ErrNoData is returned when there are no joined rows to score.
var ErrNoData = errors.New("no data to score")

// Confusion counts predictions against truth for one positive label.
type Confusion struct {
	TP int // predicted positive, truly positive
	FP int // predicted positive, truly negative
	FN int // predicted negative, truly positive
	TN int // predicted negative, truly negative
}

// Total returns the number of scored rows.
func (c Confusion) Total() int {
	return c.TP + c.FP + c.FN + c.TN
}

// Output is the result of scoring one joined table.
type Output struct {
	Confusion Confusion

	Precision float64
	Recall    float64
	F1        float64

	// PrecisionUndefined and RecallUndefined are set when that ratio had
	// a zero denominator and was reported as 0. Undefined is either.
	PrecisionUndefined bool
	RecallUndefined    bool
	Undefined          bool
}

// Tally builds the confusion matrix for rows, counting positive as the
// positive class.
func Tally(rows []types.JoinedRecord, positive bool) Confusion {
	var c Confusion
	for _, r := range rows {
		actual := r.SubscribedTarget == positive
		predicted := r.SubscribedPred == positive
		switch {
		case actual && predicted:
			c.TP++
		case !actual && predicted:
			c.FP++
		case actual && !predicted:
			c.FN++
		default:
			c.TN++
		}
	}
	return c
}

// Score computes binary precision, recall and F1 over rows with positive
// as the positive class.
func Score(rows []types.JoinedRecord, positive bool) (Output, error) {
	if len(rows) == 0 {
		return Output{}, ErrNoData
	}
	return FromConfusion(Tally(rows, positive)), nil
}

// FromConfusion derives the ratios from an already tallied matrix.
func FromConfusion(c Confusion) Output {
	out := Output{Confusion: c}

	var ok bool
	out.Precision, ok = ratio(c.TP, c.TP+c.FP)
	out.PrecisionUndefined = !ok
	out.Recall, ok = ratio(c.TP, c.TP+c.FN)
	out.RecallUndefined = !ok
	out.Undefined = out.PrecisionUndefined || out.RecallUndefined

	if out.Precision+out.Recall > 0 {
		out.F1 = 2 * out.Precision * out.Recall / (out.Precision + out.Recall)
	}
	return out
}

// ratio returns num/den, or (0, false) when den is zero.
func ratio(num, den int) (float64, bool) {
	if den == 0 {
		return 0, false
	}
	return float64(num) / float64(den), true
}
