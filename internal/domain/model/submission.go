package model

import "time"

// Submission is one validated form submission, read-only to this
// subsystem. Field values arrive already formatted by the collection
// platform; attachment bytes are not carried here and are fetched lazily
// through the SubmissionSource port, one blob per call.
type Submission struct {
	URI         string
	FormID      string
	SubmittedAt time.Time
	Values      []FieldValue
	Attachments []Attachment
}

// FieldValue is one formatted field of a submission, in form-definition
// order.
type FieldValue struct {
	Name  string
	Type  string
	Value string
}

// Attachment is the metadata of one media attachment. The blob itself is
// read on demand via SubmissionSource.ReadAttachment.
type Attachment struct {
	ID            int64
	SubmissionURI string
	Name          string
	ContentType   string
}
