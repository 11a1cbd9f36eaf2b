package models

import "time"

// RoundStats summarizes one fetch-classify-notify round. Consumed by the
// scheduler to pick the next delay and mirrored to the activity sink.
type RoundStats struct {
	StartedAt      time.Time
	Duration       time.Duration
	Candidates     int
	Prefiltered    int
	SnapshotMisses int
	Suppressed     int
	MidNotified    int
	HighNotified   int
	NotifyFailed   int
}

// Notified is the number of tokens that transitioned to a notification this
// round, any tier.
func (r RoundStats) Notified() int {
	return r.MidNotified + r.HighNotified
}
