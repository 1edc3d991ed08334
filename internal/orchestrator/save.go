package orchestrator

import (
	"fmt"
	"time"

	"github.com/pondelion/mplm/internal/models"
)

// RecordStore persists successful runs.
type RecordStore interface {
	CreateRunRecord(rec *models.RunRecord) (int64, time.Time, error)
}

// Save persists a finished run. It refuses anything but a successful
// training result.
func Save(store RecordStore, rc *models.RunContext, out Outcome) (*models.RunRecord, error) {
	if !out.Succeeded() || rc.Status != models.StatusOK || rc.TrainingResult == nil {
		return nil, fmt.Errorf("run %s did not succeed (state %s, status %q)", rc.RunID, out.State, rc.Status)
	}

	rec := models.NewRunRecord(rc)
	rec.Attempts = out.Attempts
	id, createdAt, err := store.CreateRunRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to save run record: %w", err)
	}
	rec.ID = id
	rec.CreatedAt = createdAt
	return rec, nil
}
