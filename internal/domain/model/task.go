// Package model defines the domain entities of the external-publication
// subsystem: forms, submissions, publish tasks, destination credentials,
// and the error taxonomy shared by the application layer.
package model

import "time"

// PublishTask is the persistent record of one form-to-destination
// publication relationship. Its URI doubles as the externally shown
// identifier on the admin surface.
//
// Status is mutated only by the task runner (active -> bad_credentials on
// an authentication failure) and by the admin surface (restart, pause,
// abandon). A transition is not considered effective until it has been
// persisted.
type PublishTask struct {
	URI           string
	FormID        string
	Kind          DestinationKind
	CredentialURI string
	Option        PublicationOption
	Status        TaskStatus
	// Prepared is set once the destination's one-time setup (for the
	// notarization kind, remote form registration) has completed. It is
	// never cleared; a restart re-runs setup only when it is false.
	Prepared      bool
	EstablishedAt time.Time
	UpdatedAt     time.Time
}

// IncludesSubmission reports whether a submission received at t falls
// within this task's publication option.
func (t *PublishTask) IncludesSubmission(at time.Time) bool {
	if t.Option == OptionUploadAndStream {
		return true
	}
	return !at.Before(t.EstablishedAt)
}
