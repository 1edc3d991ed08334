package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pondelion/mplm/internal/models"
)

// RecordSource is the read side of run record storage.
type RecordSource interface {
	ListRunRecords(limit int) ([]*models.RunRecord, error)
	GetRunRecord(id int64) (*models.RunRecord, error)
	DeleteRunRecord(id int64) error
}

type View int

const (
	ViewRecordList View = iota
	ViewRecordDetail
	ViewText
)

const listLimit = 100

type App struct {
	source RecordSource

	view     View
	records  []*models.RunRecord
	table    table.Model
	selected *models.RunRecord
	textView viewport.Model
	title    string

	width  int
	height int
	err    error
}

func NewApp(source RecordSource) *App {
	t := table.New(
		table.WithColumns(recordColumns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Selected = selectedStyle
	t.SetStyles(styles)

	return &App{
		source:   source,
		view:     ViewRecordList,
		table:    t,
		textView: viewport.New(80, 20),
	}
}

func (a *App) Init() tea.Cmd {
	return a.loadRecords
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.table.SetColumns(recordColumns(msg.Width))
		a.table.SetHeight(max(5, msg.Height/2-4))
		a.textView.Width = msg.Width
		a.textView.Height = max(5, msg.Height-4)
		return a, nil

	case recordsLoadedMsg:
		a.records = msg.records
		a.err = msg.err
		a.table.SetRows(recordRows(a.records))
		if a.table.Cursor() >= len(a.records) {
			a.table.SetCursor(max(0, len(a.records)-1))
		}
		return a, nil

	case recordDetailMsg:
		a.err = msg.err
		if msg.err == nil {
			a.selected = msg.record
			a.view = ViewRecordDetail
		}
		return a, nil

	case recordDeletedMsg:
		a.err = msg.err
		return a, a.loadRecords
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.view {
	case ViewRecordList:
		return a.handleListKey(msg)
	case ViewRecordDetail:
		return a.handleDetailKey(msg)
	case ViewText:
		return a.handleTextKey(msg)
	}
	return a, nil
}

func (a *App) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "enter":
		if rec := a.current(); rec != nil {
			return a, a.loadRecordDetail(rec.ID)
		}
		return a, nil

	case "r":
		return a, a.loadRecords

	case "d":
		if rec := a.current(); rec != nil {
			return a, a.deleteRecord(rec.ID)
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.table, cmd = a.table.Update(msg)
	return a, cmd
}

func (a *App) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rec := a.selected
	switch msg.String() {
	case "q", "esc":
		a.view = ViewRecordList
		a.selected = nil

	case "ctrl+c":
		return a, tea.Quit

	case "c":
		a.showText("Training code", rec.TrainCode)

	case "s":
		a.showText("Dataset summary", rec.DatasetSummary)

	case "g":
		if rec.DatasetSummaryCode != nil {
			a.showText("Summary code", *rec.DatasetSummaryCode)
		} else {
			a.showText("Summary code", "(deterministic summary, no generated code)")
		}
	}

	return a, nil
}

func (a *App) handleTextKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		a.view = ViewRecordDetail
		return a, nil

	case "ctrl+c":
		return a, tea.Quit
	}

	var cmd tea.Cmd
	a.textView, cmd = a.textView.Update(msg)
	return a, cmd
}

func (a *App) showText(title, content string) {
	a.title = title
	a.textView.SetContent(content)
	a.textView.GotoTop()
	a.view = ViewText
}

func (a *App) current() *models.RunRecord {
	i := a.table.Cursor()
	if i < 0 || i >= len(a.records) {
		return nil
	}
	return a.records[i]
}

func (a *App) View() string {
	switch a.view {
	case ViewRecordList:
		return a.viewRecordList()
	case ViewRecordDetail:
		return a.viewRecordDetail()
	case ViewText:
		return a.viewText()
	}
	return ""
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	statusComplete = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusFailed   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusWarn     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

func (a *App) viewRecordList() string {
	s := titleStyle.Render("mplm") + "\n\n"

	if a.err != nil {
		s += statusFailed.Render(fmt.Sprintf("Error: %v", a.err)) + "\n"
	}

	if len(a.records) == 0 {
		s += "No records yet. Run `mplm run <csv> --target <column>` to build one.\n"
	} else {
		s += a.table.View() + "\n\n"
		s += "Accuracy\n"
		s += "────────\n"
		s += accuracyChart(a.records, 10)
	}

	s += "\n" + helpStyle.Render("[enter] view  [d] delete  [r] refresh  [q] quit")

	return s
}

func (a *App) viewRecordDetail() string {
	rec := a.selected
	if rec == nil {
		return "No record selected"
	}

	s := titleStyle.Render(fmt.Sprintf("Record #%d: %s", rec.ID, rec.ModelName)) + "\n\n"

	s += labelStyle.Render("LLM:        ") + rec.LLMName + "\n"
	s += labelStyle.Render("Created:    ") + rec.CreatedAt.Local().Format(time.DateTime) + "\n"
	if rec.ModelPath != "" {
		s += labelStyle.Render("Model file: ") + dimStyle.Render(rec.ModelPath) + "\n"
	}
	s += "\n"
	s += labelStyle.Render("val  ") + accuracyBar(rec.AccuracyVal, 30) + "\n"
	s += labelStyle.Render("test ") + accuracyBar(rec.AccuracyTest, 30) + "\n\n"

	s += "Attempts\n"
	s += "────────\n"
	if len(rec.Attempts) == 0 {
		s += "(no attempts recorded)\n"
	}
	for _, at := range rec.Attempts {
		status := statusComplete.Render("✓")
		if at.Status != models.StatusOK {
			status = statusFailed.Render("✗")
		}
		line := fmt.Sprintf("  %d. %-9s %s  retry:%d  %6s  → %s",
			at.SequenceNum, at.Stage, status, at.RetryCount, formatDuration(at.Duration()), at.NextState)
		if at.Error != "" {
			line += "  " + dimStyle.Render(truncate(firstLine(at.Error), 50))
		}
		s += line + "\n"
	}

	s += "\n" + helpStyle.Render("[c] train code  [s] summary  [g] summary code  [esc] back")

	return s
}

func (a *App) viewText() string {
	s := titleStyle.Render(a.title) + "\n\n"
	s += a.textView.View() + "\n"
	s += helpStyle.Render(fmt.Sprintf("%3.f%%  [↑/↓] scroll  [esc] back", a.textView.ScrollPercent()*100))
	return s
}

// Messages

type recordsLoadedMsg struct {
	records []*models.RunRecord
	err     error
}

type recordDetailMsg struct {
	record *models.RunRecord
	err    error
}

type recordDeletedMsg struct {
	id  int64
	err error
}

// Commands

func (a *App) loadRecords() tea.Msg {
	records, err := a.source.ListRunRecords(listLimit)
	return recordsLoadedMsg{records: records, err: err}
}

func (a *App) loadRecordDetail(id int64) tea.Cmd {
	return func() tea.Msg {
		rec, err := a.source.GetRunRecord(id)
		return recordDetailMsg{record: rec, err: err}
	}
}

func (a *App) deleteRecord(id int64) tea.Cmd {
	return func() tea.Msg {
		if err := a.source.DeleteRunRecord(id); err != nil {
			return recordDeletedMsg{err: err}
		}
		return recordDeletedMsg{id: id}
	}
}

func recordColumns(width int) []table.Column {
	model := max(12, width-60)
	return []table.Column{
		{Title: "ID", Width: 5},
		{Title: "Model", Width: model},
		{Title: "LLM", Width: 24},
		{Title: "Val", Width: 6},
		{Title: "Test", Width: 6},
		{Title: "Age", Width: 8},
	}
}

func recordRows(records []*models.RunRecord) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, table.Row{
			fmt.Sprintf("#%d", rec.ID),
			rec.ModelName,
			truncate(rec.LLMName, 24),
			fmt.Sprintf("%.3f", rec.AccuracyVal),
			fmt.Sprintf("%.3f", rec.AccuracyTest),
			formatAge(rec.CreatedAt),
		})
	}
	return rows
}

func formatAge(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		return fmt.Sprintf("%dd", days)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", m, s)
}
