package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pondelion/mplm/internal/models"
)

// Stage is one step of the build workflow. A stage reports a retryable
// failure through rc.Status; a returned error is fatal.
type Stage interface {
	Name() string
	Run(ctx context.Context, rc *models.RunContext) error
}

// Observer is notified after every transition.
type Observer interface {
	Observe(ctx context.Context, t Transition)
}

// Transition describes one completed stage and where the run goes next.
type Transition struct {
	RunID      string
	From       State
	To         State
	Status     models.Status
	RetryCount int
	Exhausted  bool
	Error      string
	At         time.Time
}

// Outcome summarizes a finished run.
type Outcome struct {
	State    State
	Attempts []models.Attempt
}

func (o Outcome) Succeeded() bool {
	return o.State == StateTerminalSuccess
}

type Orchestrator struct {
	stages    map[State]Stage
	table     Table
	maxRetry  int
	log       logrus.FieldLogger
	observers []Observer
}

type Option func(*Orchestrator)

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs) }
}

// WithTable replaces the default transition table.
func WithTable(t Table) Option {
	return func(o *Orchestrator) { o.table = t }
}

// New builds an orchestrator for the given stages. The transition table is
// validated against the registered stages before any run starts.
func New(stages map[State]Stage, maxRetry int, opts ...Option) (*Orchestrator, error) {
	if maxRetry < 0 {
		return nil, fmt.Errorf("max retry must not be negative, got %d", maxRetry)
	}
	o := &Orchestrator{
		stages:   stages,
		table:    DefaultTable(),
		maxRetry: maxRetry,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.table.Validate(stages); err != nil {
		return nil, err
	}
	return o, nil
}

// Next returns the state following the given one.
func (o *Orchestrator) Next(state State, status models.Status, exhausted bool) State {
	return o.table.Next(state, status, exhausted)
}

// Run drives rc through the state machine until a terminal state. Exhausting
// the retry budget is a normal outcome; an error is returned only for fatal
// conditions such as cancellation or a broken stage contract.
func (o *Orchestrator) Run(ctx context.Context, rc *models.RunContext) (Outcome, error) {
	var out Outcome
	if err := rc.Validate(); err != nil {
		return out, fmt.Errorf("invalid run context: %w", err)
	}

	log := o.log.WithField("run_id", rc.RunID)
	log.WithFields(logrus.Fields{
		"target_column": rc.TargetColumn,
		"rows":          rc.Dataset.Len(),
		"max_retry":     o.maxRetry,
	}).Info("run started")

	state := StateSummary
	for !state.Terminal() {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("run %s stopped before %s: %w", rc.RunID, state, err)
		}

		stage := o.stages[state]
		before := snapshot(rc)
		started := time.Now()

		rc.Status = models.StatusUnset
		if err := stage.Run(ctx, rc); err != nil {
			return out, fmt.Errorf("%s stage: %w", state, err)
		}
		if err := checkInvariants(state, before, rc); err != nil {
			return out, err
		}

		exhausted := rc.RetryCount >= o.maxRetry
		next := o.Next(state, rc.Status, exhausted)
		t := Transition{
			RunID:      rc.RunID,
			From:       state,
			To:         next,
			Status:     rc.Status,
			RetryCount: rc.RetryCount,
			Exhausted:  exhausted,
			Error:      lastError(state, before, rc),
			At:         time.Now(),
		}
		out.Attempts = append(out.Attempts, models.Attempt{
			SequenceNum: len(out.Attempts) + 1,
			Stage:       string(state),
			Status:      rc.Status,
			RetryCount:  rc.RetryCount,
			NextState:   string(next),
			Error:       t.Error,
			StartedAt:   started,
			CompletedAt: t.At,
		})
		o.notify(ctx, log, t)
		state = next
	}

	if state == StateTerminalFailure && rc.Status == models.StatusUnset {
		rc.Status = models.StatusFailed
	}
	out.State = state
	log.WithFields(logrus.Fields{
		"state":    state,
		"attempts": len(out.Attempts),
	}).Info("run finished")
	return out, nil
}

func (o *Orchestrator) notify(ctx context.Context, log logrus.FieldLogger, t Transition) {
	entry := log.WithFields(logrus.Fields{
		"from":        t.From,
		"to":          t.To,
		"status":      t.Status,
		"retry_count": t.RetryCount,
		"exhausted":   t.Exhausted,
	})
	if t.Error != "" {
		entry = entry.WithField("error", t.Error)
	}
	entry.Info("transition")

	for _, obs := range o.observers {
		obs.Observe(ctx, t)
	}
}

// lastError returns the error text a failed stage appended, if any.
func lastError(state State, before counters, rc *models.RunContext) string {
	if rc.Status != models.StatusFailed {
		return ""
	}
	history := rc.TrainingErrors
	n := before.trainingErrors
	if state == StateSummary {
		history, n = rc.SummaryErrors, before.summaryErrors
	}
	if len(history) > n {
		return history[len(history)-1]
	}
	return ""
}
