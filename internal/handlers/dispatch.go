package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"codecourier/backend/internal/audit"
	"codecourier/backend/internal/dispatch"
	"codecourier/backend/internal/githubapp"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type DispatchHandler struct {
	dispatcher *dispatch.Dispatcher
}

func NewDispatchHandler(dispatcher *dispatch.Dispatcher) *DispatchHandler {
	return &DispatchHandler{dispatcher: dispatcher}
}

// DispatchRequest is the body for POST /api/dispatch.
type DispatchRequest struct {
	Owner         string            `json:"owner"`
	Repo          string            `json:"repo"`
	TaskKind      string            `json:"taskKind"`
	Ref           string            `json:"ref,omitempty"`
	Inputs        map[string]string `json:"inputs"`
	RepositoryRef string            `json:"repositoryRef"`
}

// DispatchResponse acknowledges acceptance; it never means "succeeded".
type DispatchResponse struct {
	Success        bool      `json:"success"`
	TrackingID     uuid.UUID `json:"trackingId"`
	StatusEndpoint string    `json:"statusEndpoint"`
}

// Dispatch accepts a unit of work and returns 202 with a tracking id.
func (h *DispatchHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Owner == "" || req.Repo == "" || req.TaskKind == "" || req.RepositoryRef == "" {
		http.Error(w, "owner, repo, taskKind and repositoryRef are required", http.StatusBadRequest)
		return
	}

	ack, err := h.dispatcher.Dispatch(r.Context(), dispatch.Request{
		Owner:         req.Owner,
		Repo:          req.Repo,
		TaskKind:      req.TaskKind,
		Ref:           req.Ref,
		Inputs:        req.Inputs,
		RepositoryRef: req.RepositoryRef,
	})
	if err != nil {
		audit.Log(audit.EventDispatchRejected, "", "", map[string]interface{}{
			"task_kind": req.TaskKind,
			"owner":     req.Owner,
			"repo":      req.Repo,
			"reason":    err.Error(),
		})
		writeDispatchError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(DispatchResponse{
		Success:        true,
		TrackingID:     ack.TrackingID,
		StatusEndpoint: ack.StatusEndpoint,
	})
}

// writeDispatchError maps the error taxonomy onto status codes. Everything
// here happened before the tracking record insert or during it, so the caller
// gets a specific synchronous answer.
func writeDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dispatch.ErrUnsupportedTaskKind), errors.Is(err, dispatch.ErrMissingInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, dispatch.ErrUnknownRepository):
		http.Error(w, "Repository is not tracked by this service", http.StatusNotFound)
	case errors.Is(err, githubapp.ErrInstallationNotFound):
		http.Error(w, "GitHub App is not installed for this repository. Install the app and try again.", http.StatusNotFound)
	case errors.Is(err, githubapp.ErrUpstreamUnavailable):
		log.Printf("Dispatch failed, GitHub unavailable: %v", err)
		http.Error(w, "GitHub API is unavailable, retry later", http.StatusInternalServerError)
	case errors.Is(err, githubapp.ErrConfiguration):
		log.Printf("Dispatch failed, bad app configuration: %v", err)
		http.Error(w, "Service is misconfigured", http.StatusInternalServerError)
	case errors.Is(err, dispatch.ErrTrackingPersistence):
		log.Printf("Dispatch failed, tracking record not persisted: %v", err)
		http.Error(w, "Failed to persist tracking record", http.StatusInternalServerError)
	default:
		log.Printf("Dispatch failed: %v", err)
		http.Error(w, "Dispatch failed", http.StatusInternalServerError)
	}
}

// InstallationStatusResponse is the body for GET /api/installation-status.
type InstallationStatusResponse struct {
	Installed      bool  `json:"installed"`
	InstallationID int64 `json:"installationId,omitempty"`
}

// InstallationStatus reports whether the app covers the repository. Not
// installed is a 200, never an error.
func (h *DispatchHandler) InstallationStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	owner := vars["owner"]
	repo := vars["repo"]

	installed, installationID, err := h.dispatcher.InstallationStatus(r.Context(), owner, repo)
	if err != nil {
		log.Printf("Installation status check failed for %s/%s: %v", owner, repo, err)
		http.Error(w, "Failed to check installation status", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(InstallationStatusResponse{
		Installed:      installed,
		InstallationID: installationID,
	})
}
