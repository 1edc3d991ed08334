package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/pondelion/mplm/internal/orchestrator"
)

const TypeTransition = "transition"

// Event is the wire form of an orchestrator transition.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	RunID      string    `json:"run_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Status     string    `json:"status"`
	RetryCount int       `json:"retry_count"`
	Exhausted  bool      `json:"exhausted"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func FromTransition(t orchestrator.Transition) Event {
	ts := t.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       TypeTransition,
		RunID:      t.RunID,
		From:       string(t.From),
		To:         string(t.To),
		Status:     string(t.Status),
		RetryCount: t.RetryCount,
		Exhausted:  t.Exhausted,
		Error:      t.Error,
		Timestamp:  ts.UTC(),
	}
}

func (e Event) MinimalValidate() bool {
	return e.ID != "" && e.Type != "" && e.RunID != "" && e.From != "" && e.To != ""
}

// Terminal reports whether the event ends its run.
func (e Event) Terminal() bool {
	return orchestrator.State(e.To).Terminal()
}
