package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/pondelion/mplm/internal/models"
)

// accuracyBar renders acc (0..1) as a fixed-width bar followed by its value.
func accuracyBar(acc float64, width int) string {
	clamped := math.Max(0, math.Min(1, acc))
	filled := int(math.Round(clamped * float64(width)))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	style := statusFailed
	switch {
	case clamped >= 0.8:
		style = statusComplete
	case clamped >= 0.6:
		style = statusWarn
	}
	return style.Render(bar) + fmt.Sprintf(" %.3f", acc)
}

// accuracyChart shows validation and test accuracy for the most recent
// records, newest first.
func accuracyChart(records []*models.RunRecord, limit int) string {
	var b strings.Builder
	for i, rec := range records {
		if i == limit {
			break
		}
		fmt.Fprintf(&b, "#%-4d val  %s\n", rec.ID, accuracyBar(rec.AccuracyVal, 20))
		fmt.Fprintf(&b, "      test %s\n", accuracyBar(rec.AccuracyTest, 20))
	}
	return b.String()
}
