package models

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pondelion/mplm/internal/dataset"
)

type Status string

const (
	StatusUnset  Status = ""
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// RunContext is the mutable record threaded through every stage of one run.
// Only the stage currently executing writes to it.
type RunContext struct {
	RunID        string
	Dataset      *dataset.Table
	TargetColumn string
	Seed         int64

	Status     Status
	RetryCount int

	SummaryErrors  []string
	TrainingErrors []string

	SummaryResult  *SummaryResult
	TrainingResult *TrainResult

	// PreviousCode is the last training or repair code attempted. It is set
	// (possibly to "") whenever a training-family stage fails.
	PreviousCode *string
	FixedCode    *string

	UseFixedSummary bool
	ModelOutputPath string
}

func NewRunContext(ds *dataset.Table, targetColumn string) *RunContext {
	return &RunContext{
		RunID:        uuid.NewString(),
		Dataset:      ds,
		TargetColumn: targetColumn,
	}
}

// Fail records a failed attempt: the error text joins the given history and
// the retry counter advances.
func (rc *RunContext) Fail(history *[]string, err error) {
	rc.Status = StatusFailed
	*history = append(*history, err.Error())
	rc.RetryCount++
}

// Validate checks the inputs a run cannot proceed without.
func (rc *RunContext) Validate() error {
	if rc.Dataset == nil {
		return fmt.Errorf("run %s has no dataset", rc.RunID)
	}
	if rc.Dataset.Len() == 0 {
		return fmt.Errorf("run %s has an empty dataset", rc.RunID)
	}
	if err := dataset.CheckSplittable(rc.Dataset.Len()); err != nil {
		return fmt.Errorf("run %s: %w", rc.RunID, err)
	}
	if _, ok := rc.Dataset.Column(rc.TargetColumn); !ok {
		return fmt.Errorf("target column %q not found in dataset", rc.TargetColumn)
	}
	return nil
}
