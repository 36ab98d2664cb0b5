package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/netvote/aggregate/internal/application"
	"github.com/netvote/aggregate/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// writeAdminError maps an admin-service error onto its HTTP status.
// Category order matters: quota exhaustion and missing entities are
// checked before the broad request-failure categories.
func writeAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrQuotaExceeded):
		writeError(w, http.StatusInsufficientStorage, "storage quota exceeded")
	case errors.Is(err, model.ErrFormNotFound):
		writeError(w, http.StatusNotFound, "form not found")
	case errors.Is(err, model.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "publisher not found")
	case model.IsIllegalTransition(err):
		writeError(w, http.StatusConflict, err.Error())
	case isRequestError(err), model.IsCredentialsError(err), model.IsPublicationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func isRequestError(err error) bool {
	var reqErr *application.RequestError
	return errors.As(err, &reqErr)
}

// CreatePublisherRequest is the JSON body for the create publisher endpoint.
type CreatePublisherRequest struct {
	Kind       string `json:"kind"`
	OwnerEmail string `json:"owner_email"`
	Option     string `json:"option"`
	APIKey     string `json:"api_key"`
	Network    string `json:"network,omitempty"`
	Endpoint   string `json:"endpoint,omitempty"`
}

// CreatePublisherResponse is the JSON body returned on publisher creation.
type CreatePublisherResponse struct {
	TaskURI string `json:"task_uri"`
}

// RotateCredentialsRequest is the JSON body for the rotate credentials endpoint.
type RotateCredentialsRequest struct {
	APIKey string `json:"api_key"`
}

// PublisherResponse is the JSON representation of a configured publisher.
type PublisherResponse struct {
	TaskURI       string `json:"task_uri"`
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	Prepared      bool   `json:"prepared"`
	Option        string `json:"option"`
	OwnerEmail    string `json:"owner_email"`
	Target        string `json:"target"`
	EstablishedAt string `json:"established_at"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toPublisherResponse converts a destination summary to its JSON
// representation.
func toPublisherResponse(s application.DestinationSummary) PublisherResponse {
	return PublisherResponse{
		TaskURI:       s.TaskURI,
		Kind:          string(s.Kind),
		Status:        string(s.Status),
		Prepared:      s.Prepared,
		Option:        string(s.Option),
		OwnerEmail:    s.OwnerEmail,
		Target:        s.Target,
		EstablishedAt: s.EstablishedAt.UTC().Format(time.RFC3339),
	}
}
