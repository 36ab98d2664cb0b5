// Package httphandler is the HTTP driving adapter for the publisher
// admin API.
package httphandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/netvote/aggregate/internal/application"
	"github.com/netvote/aggregate/internal/domain/model"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	admin  *application.AdminService
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(admin *application.AdminService, logger *slog.Logger) *Handler {
	return &Handler{
		admin:  admin,
		logger: logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/forms/{formID}/publishers", h.CreatePublisher)
	mux.HandleFunc("GET /api/v1/forms/{formID}/publishers", h.ListPublishers)
	mux.HandleFunc("DELETE /api/v1/publishers/{uri}", h.DeletePublisher)
	mux.HandleFunc("POST /api/v1/publishers/{uri}/restart", h.RestartPublisher)
	mux.HandleFunc("POST /api/v1/publishers/{uri}/credentials", h.RotateCredentials)
	mux.HandleFunc("POST /api/v1/publishers/{uri}/pause", h.PausePublisher)
	mux.HandleFunc("POST /api/v1/publishers/{uri}/abandon", h.AbandonPublisher)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// CreatePublisher configures a new publisher for a form and runs its
// one-time destination setup before responding.
func (h *Handler) CreatePublisher(w http.ResponseWriter, r *http.Request) {
	formID := r.PathValue("formID")

	var req CreatePublisherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	taskURI, err := h.admin.CreateDestination(r.Context(), application.CreateDestinationRequest{
		FormID:     formID,
		Kind:       model.DestinationKind(req.Kind),
		OwnerEmail: req.OwnerEmail,
		Option:     model.PublicationOption(req.Option),
		APIKey:     req.APIKey,
		Network:    req.Network,
		Endpoint:   req.Endpoint,
	})
	if err != nil {
		h.logger.Error("failed to create publisher", "form", formID, "kind", req.Kind, "error", err)
		writeAdminError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreatePublisherResponse{TaskURI: taskURI})
}

// ListPublishers returns all publishers configured for a form.
func (h *Handler) ListPublishers(w http.ResponseWriter, r *http.Request) {
	formID := r.PathValue("formID")

	summaries, err := h.admin.ListDestinations(r.Context(), formID)
	if err != nil {
		h.logger.Error("failed to list publishers", "form", formID, "error", err)
		writeAdminError(w, err)
		return
	}

	resp := make([]PublisherResponse, 0, len(summaries))
	for _, s := range summaries {
		resp = append(resp, toPublisherResponse(s))
	}

	writeJSON(w, http.StatusOK, resp)
}

// DeletePublisher removes a publisher and its credential record.
func (h *Handler) DeletePublisher(w http.ResponseWriter, r *http.Request) {
	uri := r.PathValue("uri")

	deleted, err := h.admin.DeleteDestination(r.Context(), uri)
	if err != nil {
		h.logger.Error("failed to delete publisher", "task", uri, "error", err)
		writeAdminError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "publisher not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RestartPublisher re-runs setup for a stopped publisher.
func (h *Handler) RestartPublisher(w http.ResponseWriter, r *http.Request) {
	uri := r.PathValue("uri")

	if err := h.admin.RestartDestination(r.Context(), uri); err != nil {
		h.logger.Error("failed to restart publisher", "task", uri, "error", err)
		writeAdminError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RotateCredentials replaces the API key of a publisher stopped on
// bad credentials and restarts it.
func (h *Handler) RotateCredentials(w http.ResponseWriter, r *http.Request) {
	uri := r.PathValue("uri")

	var req RotateCredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.admin.RotateCredentials(r.Context(), uri, req.APIKey); err != nil {
		h.logger.Error("failed to rotate credentials", "task", uri, "error", err)
		writeAdminError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PausePublisher stops future scheduling for an active publisher.
func (h *Handler) PausePublisher(w http.ResponseWriter, r *http.Request) {
	uri := r.PathValue("uri")

	if err := h.admin.PauseDestination(r.Context(), uri); err != nil {
		h.logger.Error("failed to pause publisher", "task", uri, "error", err)
		writeAdminError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AbandonPublisher permanently retires a publisher.
func (h *Handler) AbandonPublisher(w http.ResponseWriter, r *http.Request) {
	uri := r.PathValue("uri")

	if err := h.admin.AbandonDestination(r.Context(), uri); err != nil {
		h.logger.Error("failed to abandon publisher", "task", uri, "error", err)
		writeAdminError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
