package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

var exportHeader = []string{
	"id", "llm_name", "dataset_summary_code", "dataset_summary", "train_code",
	"model_name", "model_path", "accuracy_val", "accuracy_test", "created_at",
}

// ExportCSV writes every run record, oldest first, as CSV.
func (s *Storage) ExportCSV(w io.Writer) (int, error) {
	records, err := s.ListRunRecords(0)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		summaryCode := ""
		if rec.DatasetSummaryCode != nil {
			summaryCode = *rec.DatasetSummaryCode
		}
		row := []string{
			strconv.FormatInt(rec.ID, 10),
			rec.LLMName,
			summaryCode,
			rec.DatasetSummary,
			rec.TrainCode,
			rec.ModelName,
			rec.ModelPath,
			strconv.FormatFloat(rec.AccuracyVal, 'f', -1, 64),
			strconv.FormatFloat(rec.AccuracyTest, 'f', -1, 64),
			rec.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(records), cw.Error()
}

func (s *Storage) ExportCSVFile(path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	n, err := s.ExportCSV(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}
