package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/scoreunlock/scoreunlock/internal/i18n"
	"github.com/scoreunlock/scoreunlock/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fmtPtr(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmtFloat(*v)
}

func gradedCount(a model.AssignmentSummary) (graded, total int) {
	for _, q := range a.Evaluation {
		total++
		if q.Score != nil {
			graded++
		}
	}
	return graded, total
}

// SummaryTable renders one row per assignment, sorted by course then title.
func SummaryTable(ctx context.Context, sum model.Summary) string {
	t := newTable(
		i18n.T(ctx, "Course"),
		i18n.T(ctx, "Assignment"),
		i18n.T(ctx, "OutOf"),
		i18n.T(ctx, "Mean")+" %",
		i18n.T(ctx, "Median")+" %",
		i18n.T(ctx, "StdDev")+" %",
		i18n.T(ctx, "Results"),
		i18n.T(ctx, "ShareableLink"),
	)
	for _, course := range sortedKeys(sum) {
		for _, title := range sortedKeys(sum[course]) {
			a := sum[course][title]
			graded, total := gradedCount(a)
			progress := i18n.Td(ctx, "Graded", map[string]any{"Graded": graded, "Total": total})
			if !a.Released() {
				notReleased := i18n.T(ctx, "NotReleased")
				t.Row(course, title, fmtFloat(a.OutOf), notReleased, notReleased, notReleased, progress, a.ScoreLink)
				continue
			}
			t.Row(course, title, fmtFloat(a.OutOf),
				fmtFloat(a.MeanPercent), fmtFloat(a.MedianPercent), fmtFloat(a.StdevPercent),
				fmt.Sprintf("n=%d, %s", len(a.Results), progress), a.ScoreLink)
		}
	}
	return t.String()
}

// CompareTable renders the locally computed mean next to the reported average.
func CompareTable(ctx context.Context, c model.Comparison) string {
	t := newTable(
		i18n.T(ctx, "Course"),
		i18n.T(ctx, "Assignment"),
		i18n.T(ctx, "Individual"),
		i18n.T(ctx, "PerfReport"),
	)
	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case col >= 2:
			return cellStyle.Align(lipgloss.Right)
		default:
			return cellStyle
		}
	})
	for _, course := range sortedKeys(c) {
		for _, title := range sortedKeys(c[course]) {
			e := c[course][title]
			t.Row(course, title, fmtPtr(e.Individual), fmtPtr(e.PerfReport))
		}
	}
	return t.String()
}

// ChangeSummary prefixes a diff with a localized count line.
func ChangeSummary(ctx context.Context, diff string, changed int) string {
	if changed == 0 {
		return ""
	}
	return i18n.Tp(ctx, "ChangedAssignments", changed) + "\n" + diff
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}

// Output opens path for writing; "" and "-" mean stdout. The returned
// close function is always safe to call.
func Output(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, f.Close, nil
}
