package tui

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pondelion/mplm/internal/models"
)

type memSource struct {
	records []*models.RunRecord
	deleted []int64
}

func (m *memSource) ListRunRecords(limit int) ([]*models.RunRecord, error) {
	return m.records, nil
}

func (m *memSource) GetRunRecord(id int64) (*models.RunRecord, error) {
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *memSource) DeleteRunRecord(id int64) error {
	m.deleted = append(m.deleted, id)
	var kept []*models.RunRecord
	for _, r := range m.records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	m.records = kept
	return nil
}

func newSource() *memSource {
	code := `summary_text = "x"`
	return &memSource{records: []*models.RunRecord{
		{
			ID: 2, ModelName: "naive_bayes", LLMName: "qwen/qwen3-coder",
			AccuracyVal: 0.82, AccuracyTest: 0.79, TrainCode: "model = {kind = 'nb'}",
			DatasetSummary: "Rows: 10", DatasetSummaryCode: &code, CreatedAt: time.Now(),
			Attempts: []models.Attempt{
				{SequenceNum: 1, Stage: "summary", Status: models.StatusOK, NextState: "training"},
				{SequenceNum: 2, Stage: "training", Status: models.StatusFailed, RetryCount: 1, NextState: "repair", Error: "Execution failed: boom\nstack"},
			},
		},
		{ID: 1, ModelName: "stump", LLMName: "llama3", AccuracyVal: 0.5, AccuracyTest: 0.4, CreatedAt: time.Now().Add(-2 * time.Hour)},
	}}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs any command it returns through Update.
func press(t *testing.T, a *App, k string) {
	t.Helper()
	_, cmd := a.Update(key(k))
	if cmd != nil {
		if msg := cmd(); msg != nil {
			a.Update(msg)
		}
	}
}

func loadedApp(t *testing.T, src *memSource) *App {
	t.Helper()
	a := NewApp(src)
	a.Update(a.Init()())
	return a
}

func TestListShowsRecordsAndChart(t *testing.T) {
	a := loadedApp(t, newSource())

	out := a.View()
	assert.Contains(t, out, "naive_bayes")
	assert.Contains(t, out, "stump")
	assert.Contains(t, out, "0.820")
	assert.Contains(t, out, "█")
}

func TestEmptyList(t *testing.T) {
	a := loadedApp(t, &memSource{})

	assert.Contains(t, a.View(), "No records yet")
}

func TestOpenDetailAndCode(t *testing.T) {
	a := loadedApp(t, newSource())

	press(t, a, "enter")
	require.Equal(t, ViewRecordDetail, a.view)
	detail := a.View()
	assert.Contains(t, detail, "Record #2: naive_bayes")
	assert.Contains(t, detail, "qwen/qwen3-coder")
	assert.Contains(t, detail, "Execution failed: boom")
	assert.NotContains(t, detail, "stack")

	press(t, a, "c")
	require.Equal(t, ViewText, a.view)
	assert.Contains(t, a.View(), "kind = 'nb'")

	press(t, a, "esc")
	assert.Equal(t, ViewRecordDetail, a.view)
	press(t, a, "g")
	assert.Contains(t, a.View(), `summary_text = "x"`)

	press(t, a, "esc")
	press(t, a, "esc")
	assert.Equal(t, ViewRecordList, a.view)
	assert.Nil(t, a.selected)
}

func TestCursorMovesAndDeletes(t *testing.T) {
	src := newSource()
	a := loadedApp(t, src)

	press(t, a, "down")
	require.Equal(t, int64(1), a.current().ID)

	press(t, a, "d")
	assert.Equal(t, []int64{1}, src.deleted)
	a.Update(a.loadRecords())
	assert.Len(t, a.records, 1)
	assert.Equal(t, int64(2), a.current().ID)
}

func TestAccuracyBar(t *testing.T) {
	bar := accuracyBar(0.5, 10)
	assert.Equal(t, 5, strings.Count(bar, "█"))
	assert.Equal(t, 5, strings.Count(bar, "░"))
	assert.Contains(t, bar, "0.500")

	assert.Equal(t, 10, strings.Count(accuracyBar(1.7, 10), "█"))
	assert.Equal(t, 10, strings.Count(accuracyBar(-1, 10), "░"))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "12s", formatDuration(12*time.Second))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
}

func TestTruncateKeepsRunes(t *testing.T) {
	cut := truncate("модель не обучена", 8)
	assert.Equal(t, "модел...", cut)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, "short", truncate("short", 8))
}
