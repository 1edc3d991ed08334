package models

import "time"

// RunRecord is what gets persisted for a successful run.
type RunRecord struct {
	ID                 int64
	CreatedAt          time.Time
	LLMName            string
	DatasetSummary     string
	DatasetSummaryCode *string
	TrainCode          string
	ModelName          string
	ModelPath          string
	AccuracyVal        float64
	AccuracyTest       float64

	Attempts []Attempt
}

// NewRunRecord collects the persisted fields from a finished run context.
func NewRunRecord(rc *RunContext) *RunRecord {
	rec := &RunRecord{}
	if s := rc.SummaryResult; s != nil {
		rec.DatasetSummary = s.SummaryText
		rec.DatasetSummaryCode = s.SummaryCode
	}
	if tr := rc.TrainingResult; tr != nil {
		rec.TrainCode = tr.Code
		rec.ModelName = tr.ModelName
		rec.ModelPath = tr.ModelPath
		rec.AccuracyVal = tr.AccuracyVal
		rec.AccuracyTest = tr.AccuracyTest
		rec.LLMName = tr.LLMName
	}
	if rec.LLMName == "" {
		rec.LLMName = "unknown"
	}
	return rec
}
