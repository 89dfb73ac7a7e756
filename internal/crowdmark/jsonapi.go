package crowdmark

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Record types found in the "included" side table of a results document.
const (
	TypeCourse             = "courses"
	TypeExamMaster         = "exam-masters"
	TypeExamQuestion       = "exam-questions"
	TypeExamMasterQuestion = "exam-master-questions"
	TypeAnnotation         = "annotations"
)

// Relationship names used to cross-reference included records.
const (
	RelExamMaster         = "exam-master"
	RelExamMasterQuestion = "exam-master-question"
	RelExamQuestion       = "exam-question"
)

// Document is a single-resource JSON:API document.
type Document struct {
	Data     Resource   `json:"data"`
	Included []Resource `json:"included"`
}

// ListDocument is a JSON:API document whose primary data is a collection.
type ListDocument struct {
	Data []Resource `json:"data"`
	Meta Meta       `json:"meta"`
}

// Meta carries pagination info for list endpoints.
type Meta struct {
	Pagination Pagination `json:"pagination"`
}

// Pagination is the page bookkeeping of a list response.
type Pagination struct {
	CurrentPage int `json:"current-page"`
	TotalPages  int `json:"total-pages"`
}

// Resource is one JSON:API resource object.
type Resource struct {
	ID            string                  `json:"id"`
	Type          string                  `json:"type"`
	Attributes    json.RawMessage         `json:"attributes"`
	Relationships map[string]Relationship `json:"relationships"`
}

// DecodeAttributes unmarshals the attribute object into v.
func (r Resource) DecodeAttributes(v any) error {
	if len(r.Attributes) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Attributes, v); err != nil {
		return fmt.Errorf("decode %s %s attributes: %w", r.Type, r.ID, err)
	}
	return nil
}

// RelatedID returns the id of a to-one relationship, or "" when the
// relationship is missing, null, or to-many.
func (r Resource) RelatedID(name string) string {
	rel, ok := r.Relationships[name]
	if !ok {
		return ""
	}
	return rel.ID()
}

// Relationship holds the raw linkage; it may be an object, an array or null.
type Relationship struct {
	Data json.RawMessage `json:"data"`
}

// ID returns the linked resource id for to-one relationships.
func (r Relationship) ID() string {
	var ref struct {
		ID string `json:"id"`
	}
	if len(r.Data) == 0 || r.Data[0] != '{' {
		return ""
	}
	if err := json.Unmarshal(r.Data, &ref); err != nil {
		return ""
	}
	return ref.ID
}

// ExamMasterID returns the internal exam identifier of a results document.
func (d Document) ExamMasterID() string {
	return d.Data.RelatedID(RelExamMaster)
}

// IncludedOfType returns the included records with the given type, in document order.
func (d Document) IncludedOfType(typ string) []Resource {
	var out []Resource
	for _, r := range d.Included {
		if r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}

// FirstIncluded returns the first included record of the given type.
func (d Document) FirstIncluded(typ string) (Resource, bool) {
	for _, r := range d.Included {
		if r.Type == typ {
			return r, true
		}
	}
	return Resource{}, false
}

// Number is a numeric attribute that the API sends as a number, a numeric
// string or null.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = Number{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*n = Number{}
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse number %q: %w", s, err)
		}
		*n = Number{Value: f, Valid: true}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number{Value: f, Valid: true}
	return nil
}

// Ptr returns nil for a missing number.
func (n Number) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// Scores is a list of numbers sent in any form Number accepts. Entries that
// are null, empty or not numeric are dropped.
type Scores []float64

func (s *Scores) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = nil
		return nil
	}
	out := make(Scores, 0, len(raw))
	for _, r := range raw {
		var n Number
		if err := n.UnmarshalJSON(r); err != nil || !n.Valid {
			continue
		}
		out = append(out, n.Value)
	}
	*s = out
	return nil
}

// CourseAttributes are the attributes of a "courses" record.
type CourseAttributes struct {
	Name string `json:"name"`
}

// ExamMasterAttributes are the attributes of an "exam-masters" record.
// Results is nil until the class results are published.
type ExamMasterAttributes struct {
	Title       string `json:"title"`
	TotalPoints Number `json:"total-points"`
	Results     Scores `json:"results"`
}

// MasterQuestionAttributes are the attributes of an "exam-master-questions" record.
type MasterQuestionAttributes struct {
	Label  string `json:"label"`
	Points Number `json:"points"`
}

// QuestionAttributes are the attributes of a student's "exam-questions" record.
type QuestionAttributes struct {
	Points Number `json:"points"`
}
