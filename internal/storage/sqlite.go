package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pondelion/mplm/internal/models"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("run record not found")

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS run_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		llm_name TEXT NOT NULL,
		dataset_summary_code TEXT,
		dataset_summary TEXT NOT NULL,
		train_code TEXT NOT NULL,
		model_name TEXT NOT NULL,
		model_path TEXT,
		accuracy_val REAL NOT NULL,
		accuracy_test REAL NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id INTEGER NOT NULL REFERENCES run_records(id),
		sequence_num INTEGER NOT NULL,
		stage TEXT NOT NULL,
		status TEXT NOT NULL,
		retry_count INTEGER NOT NULL,
		next_state TEXT NOT NULL,
		error TEXT,
		started_at TIMESTAMP,
		completed_at TIMESTAMP,
		UNIQUE(record_id, sequence_num)
	);

	CREATE INDEX IF NOT EXISTS idx_records_created ON run_records(created_at);
	CREATE INDEX IF NOT EXISTS idx_attempts_record ON attempts(record_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateRunRecord inserts rec and its attempts in one transaction and returns
// the new id with the database-assigned creation time.
func (s *Storage) CreateRunRecord(rec *models.RunRecord) (int64, time.Time, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, time.Time{}, err
	}
	defer tx.Rollback()

	var modelPath *string
	if rec.ModelPath != "" {
		modelPath = &rec.ModelPath
	}
	result, err := tx.Exec(
		`INSERT INTO run_records (llm_name, dataset_summary_code, dataset_summary, train_code, model_name, model_path, accuracy_val, accuracy_test)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.LLMName, rec.DatasetSummaryCode, rec.DatasetSummary, rec.TrainCode,
		rec.ModelName, modelPath, rec.AccuracyVal, rec.AccuracyTest,
	)
	if err != nil {
		return 0, time.Time{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, time.Time{}, err
	}

	for _, a := range rec.Attempts {
		var errText *string
		if a.Error != "" {
			errText = &a.Error
		}
		_, err := tx.Exec(
			`INSERT INTO attempts (record_id, sequence_num, stage, status, retry_count, next_state, error, started_at, completed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, a.SequenceNum, a.Stage, string(a.Status), a.RetryCount, a.NextState, errText, a.StartedAt, a.CompletedAt,
		)
		if err != nil {
			return 0, time.Time{}, fmt.Errorf("failed to insert attempt %d: %w", a.SequenceNum, err)
		}
	}

	var createdAt time.Time
	if err := tx.QueryRow(`SELECT created_at FROM run_records WHERE id = ?`, id).Scan(&createdAt); err != nil {
		return 0, time.Time{}, err
	}

	return id, createdAt, tx.Commit()
}

const recordColumns = `id, created_at, llm_name, dataset_summary_code, dataset_summary, train_code, model_name, model_path, accuracy_val, accuracy_test`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.RunRecord, error) {
	var rec models.RunRecord
	var summaryCode, modelPath sql.NullString

	err := row.Scan(
		&rec.ID, &rec.CreatedAt, &rec.LLMName, &summaryCode, &rec.DatasetSummary,
		&rec.TrainCode, &rec.ModelName, &modelPath, &rec.AccuracyVal, &rec.AccuracyTest,
	)
	if err != nil {
		return nil, err
	}

	if summaryCode.Valid {
		rec.DatasetSummaryCode = &summaryCode.String
	}
	if modelPath.Valid {
		rec.ModelPath = modelPath.String
	}
	return &rec, nil
}

// GetRunRecord loads one record with its attempts.
func (s *Storage) GetRunRecord(id int64) (*models.RunRecord, error) {
	row := s.db.QueryRow(`SELECT `+recordColumns+` FROM run_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rec.Attempts, err = s.GetAttempts(id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRunRecords returns records newest first. A limit <= 0 returns all.
func (s *Storage) ListRunRecords(limit int) ([]*models.RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT `+recordColumns+` FROM run_records ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.RunRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (s *Storage) GetAttempts(recordID int64) ([]models.Attempt, error) {
	rows, err := s.db.Query(
		`SELECT id, record_id, sequence_num, stage, status, retry_count, next_state, error, started_at, completed_at
		 FROM attempts WHERE record_id = ? ORDER BY sequence_num`, recordID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []models.Attempt
	for rows.Next() {
		var a models.Attempt
		var status string
		var errText sql.NullString
		var startedAt, completedAt sql.NullTime

		err := rows.Scan(
			&a.ID, &a.RecordID, &a.SequenceNum, &a.Stage, &status,
			&a.RetryCount, &a.NextState, &errText, &startedAt, &completedAt,
		)
		if err != nil {
			return nil, err
		}

		a.Status = models.Status(status)
		if errText.Valid {
			a.Error = errText.String
		}
		if startedAt.Valid {
			a.StartedAt = startedAt.Time
		}
		if completedAt.Valid {
			a.CompletedAt = completedAt.Time
		}
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}

func (s *Storage) DeleteRunRecord(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM attempts WHERE record_id = ?`, id); err != nil {
		return err
	}
	result, err := tx.Exec(`DELETE FROM run_records WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	return tx.Commit()
}

// Helper to format time for display
func FormatTimeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("Jan 2")
	}
}
