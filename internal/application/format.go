package application

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/netvote/aggregate/internal/domain/model"
)

// Survey is the destination-facing representation of one submission used
// by the notarization pipeline and the generic JSON destination.
type Survey struct {
	SubmissionID string           `json:"submissionId"`
	FormID       string           `json:"formId"`
	SubmittedAt  string           `json:"submittedAt"`
	Responses    []SurveyResponse `json:"responses"`
}

// SurveyResponse is one formatted field of a survey.
type SurveyResponse struct {
	Prompt string `json:"prompt"`
	Type   string `json:"type,omitempty"`
	Value  string `json:"value"`
}

// buildSurvey converts a submission's field values into the survey
// representation. Field order follows the form definition order the
// platform formatted the values in.
func buildSurvey(sub model.Submission) Survey {
	responses := make([]SurveyResponse, 0, len(sub.Values))
	for _, fv := range sub.Values {
		responses = append(responses, SurveyResponse{
			Prompt: fv.Name,
			Type:   fv.Type,
			Value:  fv.Value,
		})
	}

	return Survey{
		SubmissionID: sub.URI,
		FormID:       sub.FormID,
		SubmittedAt:  sub.SubmittedAt.UTC().Format(time.RFC3339),
		Responses:    responses,
	}
}

// buildRecord flattens a submission into the name->value map used by the
// record-server and worksheet destinations. Attachments are represented
// by their file names; the blobs themselves are not sent to flat
// destinations.
func buildRecord(sub model.Submission) map[string]string {
	record := make(map[string]string, len(sub.Values)+2)
	record["record_id"] = sub.URI
	record["submitted_at"] = sub.SubmittedAt.UTC().Format(time.RFC3339)
	for _, fv := range sub.Values {
		record[fv.Name] = fv.Value
	}
	for _, att := range sub.Attachments {
		record[att.Name] = att.Name
	}
	return record
}

// formFieldNames extracts the field names of a form definition in
// definition order: the child elements of the primary instance root. A
// definition that cannot be parsed yields nil; the worksheet destination
// then starts with only the bookkeeping columns.
func formFieldNames(definitionXML string) []string {
	dec := xml.NewDecoder(strings.NewReader(definitionXML))

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "instance" {
			break
		}
	}

	// Depth 1 is the instance root element; its children are the fields.
	var names []string
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return names
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				names = append(names, t.Name.Local)
			}
		case xml.EndElement:
			if depth == 0 {
				return names
			}
			depth--
		}
	}
}
