package summary

import (
	"fmt"

	"github.com/scoreunlock/scoreunlock/internal/crowdmark"
	"github.com/scoreunlock/scoreunlock/internal/model"
)

// EvaluationInfo builds the per-question breakdown of one results document.
//
// Master questions define the label and points possible. The student's own
// question records carry the awarded points and link back to their master
// question; annotations link to the student's question and are regrouped
// under the master question. A master question without a student record is
// reported with nil Score and OutOf.
func EvaluationInfo(doc crowdmark.Document) (map[string]model.QuestionEvaluation, error) {
	masterToQuestion := make(map[string]crowdmark.Resource)
	questionToMaster := make(map[string]string)
	for _, q := range doc.IncludedOfType(crowdmark.TypeExamQuestion) {
		masterID := q.RelatedID(crowdmark.RelExamMasterQuestion)
		if masterID == "" {
			continue
		}
		if prev, ok := masterToQuestion[masterID]; ok {
			delete(questionToMaster, prev.ID)
		}
		masterToQuestion[masterID] = q
		questionToMaster[q.ID] = masterID
	}

	masterToAnnotations := make(map[string][]model.Annotation)
	for _, a := range doc.IncludedOfType(crowdmark.TypeAnnotation) {
		masterID, ok := questionToMaster[a.RelatedID(crowdmark.RelExamQuestion)]
		if !ok {
			continue
		}
		var attrs model.Annotation
		if err := a.DecodeAttributes(&attrs); err != nil {
			return nil, err
		}
		masterToAnnotations[masterID] = append(masterToAnnotations[masterID], attrs)
	}

	out := make(map[string]model.QuestionEvaluation)
	for _, mq := range doc.IncludedOfType(crowdmark.TypeExamMasterQuestion) {
		var master crowdmark.MasterQuestionAttributes
		if err := mq.DecodeAttributes(&master); err != nil {
			return nil, err
		}
		q, graded := masterToQuestion[mq.ID]
		if !graded {
			out[master.Label] = model.QuestionEvaluation{}
			continue
		}
		var attrs crowdmark.QuestionAttributes
		if err := q.DecodeAttributes(&attrs); err != nil {
			return nil, fmt.Errorf("question %s: %w", master.Label, err)
		}
		out[master.Label] = model.QuestionEvaluation{
			Score:       attrs.Points.Ptr(),
			OutOf:       master.Points.Ptr(),
			Annotations: masterToAnnotations[mq.ID],
		}
	}
	return out, nil
}
