package orchestrator

import (
	"fmt"

	"github.com/pondelion/mplm/internal/models"
)

// InvariantError reports a stage that broke the run context contract.
type InvariantError struct {
	Stage  State
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated after %s stage: %s", e.Stage, e.Reason)
}

type counters struct {
	retryCount     int
	summaryErrors  int
	trainingErrors int
}

func snapshot(rc *models.RunContext) counters {
	return counters{
		retryCount:     rc.RetryCount,
		summaryErrors:  len(rc.SummaryErrors),
		trainingErrors: len(rc.TrainingErrors),
	}
}

func checkInvariants(state State, before counters, rc *models.RunContext) error {
	fail := func(format string, args ...any) error {
		return &InvariantError{Stage: state, Reason: fmt.Sprintf(format, args...)}
	}

	summaryReset := state == StateSummary && rc.Status == models.StatusOK
	if summaryReset {
		if rc.RetryCount != 0 {
			return fail("retry count %d not reset by successful summary", rc.RetryCount)
		}
		if len(rc.SummaryErrors) != 0 {
			return fail("summary errors not cleared by successful summary")
		}
	} else {
		if rc.RetryCount < before.retryCount {
			return fail("retry count decreased from %d to %d", before.retryCount, rc.RetryCount)
		}
		if len(rc.SummaryErrors) < before.summaryErrors {
			return fail("summary errors shrank from %d to %d", before.summaryErrors, len(rc.SummaryErrors))
		}
	}
	if len(rc.TrainingErrors) < before.trainingErrors {
		return fail("training errors shrank from %d to %d", before.trainingErrors, len(rc.TrainingErrors))
	}
	if rc.Status == models.StatusFailed && rc.RetryCount <= before.retryCount {
		return fail("failed attempt did not advance the retry count")
	}

	switch rc.Status {
	case models.StatusOK:
		if state == StateSummary && rc.SummaryResult == nil {
			return fail("summary reported ok without a result")
		}
		if state != StateSummary && rc.TrainingResult == nil {
			return fail("%s reported ok without a training result", state)
		}
	case models.StatusFailed:
		if state != StateSummary && rc.PreviousCode == nil {
			return fail("%s failed without recording previous code", state)
		}
	}
	return nil
}
