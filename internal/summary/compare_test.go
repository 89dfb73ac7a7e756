package summary

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/scoreunlock/scoreunlock/internal/model"
)

func released(mean float64) model.AssignmentSummary {
	return model.AssignmentSummary{Stats: &model.Stats{MeanPercent: mean}}
}

func TestCompareAverages(t *testing.T) {
	tests := []struct {
		name string
		sum  model.Summary
		perf model.PerfReports
		want model.Comparison
	}{
		{
			name: "report-only assessment skipped",
			sum:  model.Summary{"CS101": {"A1": released(80)}},
			perf: model.PerfReports{"CS101": {"A2": {AverageScore: f(70)}}},
			want: model.Comparison{"CS101": {"A1": {Individual: f(80)}}},
		},
		{
			name: "matched assessment",
			sum:  model.Summary{"CS101": {"A1": released(80), "A2": released(55.5)}},
			perf: model.PerfReports{"CS101": {"A1": {AverageScore: f(79.9)}, "A2": {AverageScore: f(60)}}},
			want: model.Comparison{"CS101": {
				"A1": {Individual: f(80), PerfReport: f(79.9)},
				"A2": {Individual: f(55.5), PerfReport: f(60)},
			}},
		},
		{
			name: "course missing from report",
			sum:  model.Summary{"MATH200": {"Final": released(64)}},
			perf: model.PerfReports{"CS101": {"A1": {AverageScore: f(70)}}},
			want: model.Comparison{"MATH200": {"Final": {Individual: f(64)}}},
		},
		{
			name: "unreleased assignment",
			sum:  model.Summary{"CS101": {"Quiz": {}}},
			perf: model.PerfReports{"CS101": {"Quiz": {AverageScore: f(88)}}},
			want: model.Comparison{"CS101": {"Quiz": {PerfReport: f(88)}}},
		},
		{
			name: "empty summary",
			sum:  model.Summary{},
			perf: model.PerfReports{"CS101": {"A1": {AverageScore: f(70)}}},
			want: model.Comparison{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompareAverages(tt.sum, tt.perf)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("CompareAverages() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
