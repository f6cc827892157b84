package merge

import "github.com/chatdc/chatdc/pkg/types"

// MissingPredictions is the message reported for every row-count mismatch.
const MissingPredictions = "Invalid output file, predictions for some users are missing."

// Validation stages.
const (
	StageBeforeJoin = "before_join"
	StageAfterJoin  = "after_join"
)

// Warning is a non-fatal validation finding.
type Warning struct {
	Stage   string
	Message string
	Want    int // truth rows
	Got     int // prediction rows (before_join) or joined rows (after_join)
}

// Join returns one JoinedRecord per matching (truth, prediction) pair, in
// truth order. A key that appears k times in predicted yields k rows for
// each truth row carrying it; truth rows without a prediction are dropped.
func Join(truth, predicted []types.Record) []types.JoinedRecord {
	byKey := make(map[types.Key][]bool, len(predicted))
	for _, p := range predicted {
		byKey[p.Key()] = append(byKey[p.Key()], p.Subscribed)
	}

	joined := make([]types.JoinedRecord, 0, len(truth))
	for _, t := range truth {
		for _, pred := range byKey[t.Key()] {
			joined = append(joined, types.JoinedRecord{
				Channel:          t.Channel,
				User:             t.User,
				SubscribedTarget: t.Subscribed,
				SubscribedPred:   pred,
			})
		}
	}
	return joined
}

// Validate compares the table sizes around the join. It reports a
// before_join warning when the prediction count differs from the truth
// count and an after_join warning when the joined count does, so a
// submission missing rows gets both.
func Validate(truthRows, predictedRows, joinedRows int) []Warning {
	var warnings []Warning
	if predictedRows != truthRows {
		warnings = append(warnings, Warning{
			Stage:   StageBeforeJoin,
			Message: MissingPredictions,
			Want:    truthRows,
			Got:     predictedRows,
		})
	}
	if joinedRows != truthRows {
		warnings = append(warnings, Warning{
			Stage:   StageAfterJoin,
			Message: MissingPredictions,
			Want:    truthRows,
			Got:     joinedRows,
		})
	}
	return warnings
}
