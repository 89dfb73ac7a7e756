package summary

import "github.com/scoreunlock/scoreunlock/internal/model"

// CompareAverages pairs each summarized assignment's mean percentage with
// the platform-reported class average. Every assignment of the summary gets
// an entry; PerfReport stays nil when the report lacks it. Assessments that
// only appear in the report are skipped.
func CompareAverages(sum model.Summary, perf model.PerfReports) model.Comparison {
	out := make(model.Comparison, len(sum))
	for course, assignments := range sum {
		byTitle := make(map[string]model.AverageComparison, len(assignments))
		for title, a := range assignments {
			var c model.AverageComparison
			if a.Stats != nil {
				m := a.MeanPercent
				c.Individual = &m
			}
			if entry, ok := perf[course][title]; ok {
				c.PerfReport = entry.AverageScore
			}
			byTitle[title] = c
		}
		out[course] = byTitle
	}
	return out
}
