package model

import "time"

// Form is the read-only view of a collected form that the publication
// subsystem needs: identity, display name, the serialized definition sent
// to remote registries, and the flags the admin surface checks before
// allowing a publisher to be created.
type Form struct {
	ID                string
	Name              string
	DefinitionXML     string
	Valid             bool
	MarkedForDeletion bool
	CreatedAt         time.Time
}

// HasValidDefinition reports whether the form carries a currently valid
// definition. Publishers may not be created against forms without one.
func (f *Form) HasValidDefinition() bool {
	return f.Valid && f.DefinitionXML != ""
}
