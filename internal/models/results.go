package models

type SummaryResult struct {
	SummaryText string
	SummaryCode *string // nil when the deterministic summary was used
}

type TrainResult struct {
	AccuracyVal  float64
	AccuracyTest float64
	Code         string
	Model        any
	ModelName    string
	ModelPath    string
	LLMName      string
}
