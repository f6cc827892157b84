// Package merge inner-joins truth and predictions on (channel, user) and
// checks that every truth row received a prediction.
//
// Join keeps truth order and pairs each truth row with every prediction
// carrying its key. Validate compares the row counts before and after the
// join; each mismatch yields a Warning with the MissingPredictions message.
package merge
