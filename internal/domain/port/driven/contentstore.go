package driven

import "context"

// ContentStore is the client port for the content-addressed attachment
// store. The store and the notarization registry use independent
// credentials, so implementations report failures as
// *model.PublicationError, never as a credentials error against the task.
type ContentStore interface {
	// Pin uploads one attachment and returns its content reference.
	Pin(ctx context.Context, apiKey, name, contentType string, data []byte) (string, error)
}
