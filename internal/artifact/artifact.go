package artifact

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Model is the on-disk form of a trained model handle.
type Model struct {
	RunID   string    `json:"run_id"`
	Name    string    `json:"model_name"`
	Model   any       `json:"model"`
	Code    string    `json:"code"`
	SavedAt time.Time `json:"saved_at"`
}

// Store writes model artifacts. Relative paths resolve against its directory.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// PathFor returns the default artifact path for a run.
func (s *Store) PathFor(runID string) string {
	return filepath.Join(s.Dir, fmt.Sprintf("model-%s.json", runID))
}

func (s *Store) resolve(path string) string {
	if filepath.IsAbs(path) || s.Dir == "" {
		return path
	}
	return filepath.Join(s.Dir, path)
}

// SaveModel writes m to path and returns the path actually written.
func (s *Store) SaveModel(path string, m *Model) (string, error) {
	path = s.resolve(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	if m.SavedAt.IsZero() {
		m.SavedAt = time.Now().UTC()
	}
	out := *m
	out.Model = jsonSafe(m.Model)
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal model: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write model: %w", err)
	}
	return path, nil
}

// jsonSafe replaces NaN and infinities, which JSON cannot carry, with their
// string forms ("NaN", "+Inf", "-Inf").
func jsonSafe(v any) any {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return strconv.FormatFloat(val, 'g', -1, 64)
		}
		return val
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = jsonSafe(item)
		}
		return m
	case []any:
		list := make([]any, len(val))
		for i, item := range val {
			list[i] = jsonSafe(item)
		}
		return list
	default:
		return v
	}
}

func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("model file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return &m, nil
}
