package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/scoreunlock/scoreunlock/internal/crowdmark"
	"github.com/scoreunlock/scoreunlock/internal/model"
)

// ErrMissingRecord is returned when a results document lacks its course or
// exam-master record.
var ErrMissingRecord = errors.New("missing included record")

// Source supplies raw results documents.
type Source interface {
	Assignments(ctx context.Context) ([]crowdmark.Document, error)
}

// SummarizeAssignment reshapes one results document. Statistics are left
// nil when the platform has not published the class results.
func SummarizeAssignment(doc crowdmark.Document, baseURL string) (model.AssignmentSummary, error) {
	courseRec, ok := doc.FirstIncluded(crowdmark.TypeCourse)
	if !ok {
		return model.AssignmentSummary{}, fmt.Errorf("assignment %s: %w: %s", doc.Data.ID, ErrMissingRecord, crowdmark.TypeCourse)
	}
	var course crowdmark.CourseAttributes
	if err := courseRec.DecodeAttributes(&course); err != nil {
		return model.AssignmentSummary{}, err
	}

	masterRec, ok := doc.FirstIncluded(crowdmark.TypeExamMaster)
	if !ok {
		return model.AssignmentSummary{}, fmt.Errorf("assignment %s: %w: %s", doc.Data.ID, ErrMissingRecord, crowdmark.TypeExamMaster)
	}
	var master crowdmark.ExamMasterAttributes
	if err := masterRec.DecodeAttributes(&master); err != nil {
		return model.AssignmentSummary{}, err
	}

	evaluation, err := EvaluationInfo(doc)
	if err != nil {
		return model.AssignmentSummary{}, fmt.Errorf("assignment %s: %w", doc.Data.ID, err)
	}

	var results []float64
	if len(master.Results) > 0 {
		results = slices.Clone([]float64(master.Results))
		slices.Sort(results)
	}
	outOf := master.TotalPoints.Value

	return model.AssignmentSummary{
		CourseName:   course.Name,
		Title:        master.Title,
		OutOf:        outOf,
		Results:      results,
		Stats:        Statistics(results, outOf),
		Evaluation:   evaluation,
		UUID:         doc.Data.ID,
		ScoreLink:    crowdmark.ScoreLink(baseURL, doc.Data.ID),
		ExamMasterID: doc.ExamMasterID(),
	}, nil
}

// SummarizeAll groups the documents by course name, then assignment title.
// A repeated course/title pair replaces the earlier entry and is logged.
func SummarizeAll(docs []crowdmark.Document, baseURL string) (model.Summary, error) {
	out := make(model.Summary)
	for _, doc := range docs {
		s, err := SummarizeAssignment(doc, baseURL)
		if err != nil {
			return nil, err
		}
		course, ok := out[s.CourseName]
		if !ok {
			course = make(model.CourseSummary)
			out[s.CourseName] = course
		}
		if prev, dup := course[s.Title]; dup {
			slog.Warn("duplicate assignment title, keeping the later one",
				"course", s.CourseName, "title", s.Title, "replaced_uuid", prev.UUID, "uuid", s.UUID)
		}
		course[s.Title] = s
	}
	return out, nil
}

// Complete fetches every assignment visible to the user and summarizes them.
func Complete(ctx context.Context, src Source, baseURL string) (model.Summary, error) {
	docs, err := src.Assignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch assignments: %w", err)
	}
	return SummarizeAll(docs, baseURL)
}
