package types

import "fmt"

// Record is one row of truth.csv or predictions.csv.
type Record struct {
	Channel    string
	User       string
	Subscribed bool
}

// Key identifies the (channel, user) pair a record belongs to.
type Key struct {
	Channel string
	User    string
}

// Key returns the join key of r.
func (r Record) Key() Key {
	return Key{Channel: r.Channel, User: r.User}
}

// JoinedRecord pairs the true and the predicted label for one (channel, user).
type JoinedRecord struct {
	Channel          string
	User             string
	SubscribedTarget bool
	SubscribedPred   bool
}

// Measurement is one named scalar reported by the evaluator.
type Measurement struct {
	Key   string
	Value string
}

// Text renders m in the measure block format consumed by the challenge
// platform. The returned string ends with a single newline.
//
// Key and Value are written verbatim between the quotes, without escaping;
// keys are restricted at config load so the block stays well-formed.
func (m Measurement) Text() string {
	return fmt.Sprintf("measure{\n  key: \"%s\"\n  value: \"%s\"\n}\n", m.Key, m.Value)
}
