package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/scoreunlock/scoreunlock/internal/crowdmark"
	"github.com/scoreunlock/scoreunlock/internal/model"
)

const baseURL = "https://app.crowdmark.com"

// resultsDoc is a trimmed results document with three master questions:
// Q1 graded with two annotations, Q2 graded without annotations, Q3 ungraded.
const resultsDoc = `{
  "data": {
    "id": "uuid-1",
    "type": "assignments",
    "relationships": {"exam-master": {"data": {"id": "em-1", "type": "exam-masters"}}}
  },
  "included": [
    {"id": "c1", "type": "courses", "attributes": {"name": "CS101"}},
    {"id": "em-1", "type": "exam-masters", "attributes": {"title": "Midterm", "total-points": "10", "results": [9, 5, 7]}},
    {"id": "mq1", "type": "exam-master-questions", "attributes": {"label": "Q1", "points": 4}},
    {"id": "mq2", "type": "exam-master-questions", "attributes": {"label": "Q2", "points": 6}},
    {"id": "mq3", "type": "exam-master-questions", "attributes": {"label": "Q3", "points": 2}},
    {"id": "q1", "type": "exam-questions", "attributes": {"points": 3},
     "relationships": {"exam-master-question": {"data": {"id": "mq1", "type": "exam-master-questions"}}}},
    {"id": "q2", "type": "exam-questions", "attributes": {"points": 6},
     "relationships": {"exam-master-question": {"data": {"id": "mq2", "type": "exam-master-questions"}}}},
    {"id": "an1", "type": "annotations", "attributes": {"text": "check sign"},
     "relationships": {"exam-question": {"data": {"id": "q1", "type": "exam-questions"}}}},
    {"id": "an2", "type": "annotations", "attributes": {"text": "good"},
     "relationships": {"exam-question": {"data": {"id": "q1", "type": "exam-questions"}}}}
  ]
}`

func parseDoc(t *testing.T, raw string) crowdmark.Document {
	t.Helper()
	var doc crowdmark.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func f(v float64) *float64 { return &v }

// minimalDoc builds a document with no questions for the given course and title.
func minimalDoc(uuid, course, title string, results string) string {
	return fmt.Sprintf(`{
  "data": {"id": %q, "relationships": {"exam-master": {"data": {"id": "em-%s"}}}},
  "included": [
    {"id": "c", "type": "courses", "attributes": {"name": %q}},
    {"id": "em-%s", "type": "exam-masters", "attributes": {"title": %q, "total-points": 20, "results": %s}}
  ]
}`, uuid, uuid, course, uuid, title, results)
}

func TestEvaluationInfo(t *testing.T) {
	got, err := EvaluationInfo(parseDoc(t, resultsDoc))
	if err != nil {
		t.Fatalf("EvaluationInfo: %v", err)
	}
	want := map[string]model.QuestionEvaluation{
		"Q1": {Score: f(3), OutOf: f(4), Annotations: []model.Annotation{{"text": "check sign"}, {"text": "good"}}},
		"Q2": {Score: f(6), OutOf: f(6)},
		"Q3": {},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("EvaluationInfo() mismatch (-want +got):\n%s", diff)
	}
	if q3 := got["Q3"]; q3.Score != nil || q3.OutOf != nil {
		t.Errorf("ungraded question should have nil score and outOf, got %+v", q3)
	}
}

func TestSummarizeAssignment(t *testing.T) {
	got, err := SummarizeAssignment(parseDoc(t, resultsDoc), baseURL)
	if err != nil {
		t.Fatalf("SummarizeAssignment: %v", err)
	}
	if got.CourseName != "CS101" || got.Title != "Midterm" || got.OutOf != 10 {
		t.Errorf("unexpected header fields: %+v", got)
	}
	if diff := cmp.Diff([]float64{5, 7, 9}, got.Results); diff != "" {
		t.Errorf("results not sorted ascending (-want +got):\n%s", diff)
	}
	if !got.Released() || got.MeanPercent != 70 || got.MedianPoints != 7 {
		t.Errorf("unexpected stats: %+v", got.Stats)
	}
	if got.UUID != "uuid-1" || got.ExamMasterID != "em-1" {
		t.Errorf("UUID/ExamMasterID = %q/%q", got.UUID, got.ExamMasterID)
	}
	if got.ScoreLink != "https://app.crowdmark.com/score/uuid-1" {
		t.Errorf("ScoreLink = %q", got.ScoreLink)
	}
}

func TestSummarizeUnreleasedAssignment(t *testing.T) {
	for _, results := range []string{"null", "[]"} {
		t.Run(results, func(t *testing.T) {
			got, err := SummarizeAssignment(parseDoc(t, minimalDoc("u", "CS101", "Quiz", results)), baseURL)
			if err != nil {
				t.Fatalf("SummarizeAssignment: %v", err)
			}
			if got.Stats != nil {
				t.Errorf("expected no stats for unreleased assignment, got %+v", got.Stats)
			}
			if got.Results != nil {
				t.Errorf("expected nil results, got %v", got.Results)
			}
		})
	}
}

func TestSummarizeAssignmentStringResults(t *testing.T) {
	got, err := SummarizeAssignment(parseDoc(t, minimalDoc("u1", "CS101", "A1", `["9", "5", 7, null, "n/a"]`)), baseURL)
	if err != nil {
		t.Fatalf("SummarizeAssignment: %v", err)
	}
	if diff := cmp.Diff([]float64{5, 7, 9}, got.Results); diff != "" {
		t.Errorf("results (-want +got):\n%s", diff)
	}
	if !got.Released() || got.MeanPoints != 7 {
		t.Errorf("unexpected stats: %+v", got.Stats)
	}
}

func TestSummarizeAssignmentMissingRecords(t *testing.T) {
	doc := parseDoc(t, `{"data": {"id": "x"}, "included": []}`)
	_, err := SummarizeAssignment(doc, baseURL)
	if !errors.Is(err, ErrMissingRecord) {
		t.Errorf("expected ErrMissingRecord, got %v", err)
	}
}

func TestSummarizeAll(t *testing.T) {
	docs := []crowdmark.Document{
		parseDoc(t, minimalDoc("a", "CS101", "A1", "[1,2]")),
		parseDoc(t, minimalDoc("b", "CS101", "A2", "null")),
		parseDoc(t, minimalDoc("c", "MATH200", "Midterm", "[10]")),
		parseDoc(t, minimalDoc("d", "PHYS150", "Lab 1", "[3,4,5]")),
		parseDoc(t, minimalDoc("e", "MATH200", "Final", "[]")),
	}

	got, err := SummarizeAll(docs, baseURL)
	if err != nil {
		t.Fatalf("SummarizeAll: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 courses, got %d", len(got))
	}
	want := map[string][]string{
		"CS101":   {"A1", "A2"},
		"MATH200": {"Final", "Midterm"},
		"PHYS150": {"Lab 1"},
	}
	for course, titles := range want {
		assignments := got[course]
		if len(assignments) != len(titles) {
			t.Errorf("%s: expected %d assignments, got %d", course, len(titles), len(assignments))
		}
		for _, title := range titles {
			a, ok := assignments[title]
			if !ok {
				t.Errorf("%s: missing %q", course, title)
				continue
			}
			if a.CourseName != course || a.Title != title {
				t.Errorf("%s/%s: summary filed under wrong key: %s/%s", course, title, a.CourseName, a.Title)
			}
		}
	}
}

func TestSummarizeAllDuplicateKeepsLast(t *testing.T) {
	docs := []crowdmark.Document{
		parseDoc(t, minimalDoc("first", "CS101", "A1", "[1]")),
		parseDoc(t, minimalDoc("second", "CS101", "A1", "[2]")),
	}
	got, err := SummarizeAll(docs, baseURL)
	if err != nil {
		t.Fatalf("SummarizeAll: %v", err)
	}
	if uuid := got["CS101"]["A1"].UUID; uuid != "second" {
		t.Errorf("expected later duplicate to win, got %q", uuid)
	}
}

type fakeSource struct {
	docs []crowdmark.Document
	err  error
}

func (s fakeSource) Assignments(context.Context) ([]crowdmark.Document, error) {
	return s.docs, s.err
}

func TestComplete(t *testing.T) {
	src := fakeSource{docs: []crowdmark.Document{parseDoc(t, resultsDoc)}}
	got, err := Complete(context.Background(), src, baseURL)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, ok := got["CS101"]["Midterm"]; !ok {
		t.Errorf("Complete() missing CS101/Midterm: %v", got)
	}

	boom := errors.New("boom")
	if _, err := Complete(context.Background(), fakeSource{err: boom}, baseURL); !errors.Is(err, boom) {
		t.Errorf("expected fetch error to propagate, got %v", err)
	}
}
