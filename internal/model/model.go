package model

import (
	"time"

	"github.com/google/go-cmp/cmp"
)

// Stats holds the rounded figures computed over one assignment's result sample.
type Stats struct {
	MeanPercent   float64 `json:"meanPercent"`
	MedianPercent float64 `json:"medianPercent"`
	StdevPercent  float64 `json:"stdevPercent"`
	MeanPoints    float64 `json:"meanPoints"`
	MedianPoints  float64 `json:"medianPoints"`
	StdevPoints   float64 `json:"stdevPoints"`
}

// Annotation is the attribute object of a single grader annotation.
type Annotation map[string]any

// QuestionEvaluation is the score breakdown for one question label.
// Score and OutOf are both nil when the question has not been graded yet.
type QuestionEvaluation struct {
	Score       *float64     `json:"score"`
	OutOf       *float64     `json:"outOf"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// AssignmentSummary is an immutable snapshot of one assignment.
type AssignmentSummary struct {
	CourseName string    `json:"courseName"`
	Title      string    `json:"title"`
	OutOf      float64   `json:"outOf"`
	Results    []float64 `json:"results,omitempty"`

	// Stats is nil until the platform publishes a result sample.
	*Stats

	Evaluation   map[string]QuestionEvaluation `json:"evaluation"`
	UUID         string                        `json:"uuid"`
	ScoreLink    string                        `json:"scoreLink"`
	ExamMasterID string                        `json:"examMasterId,omitempty"`
}

// Released reports whether class statistics are available.
func (a AssignmentSummary) Released() bool {
	return a.Stats != nil
}

// CourseSummary maps assignment title to its summary.
type CourseSummary map[string]AssignmentSummary

// Summary maps course name to the course's assignments.
type Summary map[string]CourseSummary

// Equal reports whether two summaries hold the same data.
func (s Summary) Equal(other Summary) bool {
	// Converted to the unnamed map type so cmp does not call back into Equal.
	return cmp.Equal(map[string]CourseSummary(s), map[string]CourseSummary(other))
}

// Course is one entry of the paginated course listing.
type Course struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AssessmentStatistics is one row of a course statistics response.
type AssessmentStatistics struct {
	Title        string   `json:"title"`
	MyScore      *float64 `json:"myScore"`
	AverageScore *float64 `json:"averageScore"`
}

// CourseStatistics is the per-course statistics document.
type CourseStatistics struct {
	Assessments []AssessmentStatistics `json:"assessments"`
}

// PerfReportEntry is the platform's own figures for one assessment.
type PerfReportEntry struct {
	MyScore      *float64 `json:"myScore"`
	AverageScore *float64 `json:"averageScore"`
}

// PerfReports maps course name, then assessment title, to the platform's figures.
type PerfReports map[string]map[string]PerfReportEntry

// AverageComparison pairs the locally computed mean with the platform average.
type AverageComparison struct {
	Individual *float64 `json:"individual"`
	PerfReport *float64 `json:"perfReport"`
}

// Comparison maps course name, then assignment title, to an AverageComparison.
type Comparison map[string]map[string]AverageComparison

// NotifierKind selects how the watcher raises notifications.
type NotifierKind string

const (
	NotifierTerminal NotifierKind = "terminal"
	NotifierDesktop  NotifierKind = "desktop"
)

// Config holds runtime parameters resolved from flags, environment and config file.
type Config struct {
	BaseURL       string        `validate:"required,url"`
	SessionCookie string        // raw Cookie header value; empty relies on a public API
	Lang          string        `validate:"required,oneof=en fr"`
	MaxPages      int           `validate:"gte=1"`
	HTTPTimeout   time.Duration `validate:"gte=0"` // 0 means no timeout
	Interval      time.Duration `validate:"gte=0"`
	InjectPeriod  time.Duration `validate:"gte=0"`
	Notifier      NotifierKind  `validate:"omitempty,oneof=terminal desktop"`
	Addr          string
}
