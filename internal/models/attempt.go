package models

import "time"

// Attempt is one stage execution within a run, in the order it happened.
type Attempt struct {
	ID          int64
	RecordID    int64
	SequenceNum int
	Stage       string
	Status      Status
	RetryCount  int
	NextState   string
	Error       string
	StartedAt   time.Time
	CompletedAt time.Time
}

func (a *Attempt) Duration() time.Duration {
	return a.CompletedAt.Sub(a.StartedAt)
}
