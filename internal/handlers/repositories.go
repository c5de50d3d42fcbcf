package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"codecourier/backend/internal/audit"
	"codecourier/backend/internal/models"
	"codecourier/backend/internal/store"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type RepositoriesHandler struct {
	store store.Store
}

func NewRepositoriesHandler(st store.Store) *RepositoriesHandler {
	return &RepositoriesHandler{store: st}
}

// ListRepositories returns the tracked repositories for a user.
func (h *RepositoriesHandler) ListRepositories(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	repos, err := h.store.FindRepositoriesByUser(r.Context(), userID)
	if err != nil {
		log.Printf("Failed to list repositories: %v", err)
		http.Error(w, "Failed to list repositories", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(repos)
}

// UpsertRepositoryRequest is the body for POST /api/repositories.
type UpsertRepositoryRequest struct {
	UserID        uuid.UUID `json:"user_id"`
	ExternalID    string    `json:"external_id"`
	Owner         string    `json:"owner"`
	Name          string    `json:"name"`
	CloneURL      string    `json:"clone_url"`
	DefaultBranch string    `json:"default_branch"`
}

// UpsertRepository registers or updates a tracked repository, keyed by its
// external id.
func (h *RepositoriesHandler) UpsertRepository(w http.ResponseWriter, r *http.Request) {
	var req UpsertRepositoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.ExternalID == "" || req.Owner == "" || req.Name == "" || req.CloneURL == "" {
		http.Error(w, "external_id, owner, name and clone_url are required", http.StatusBadRequest)
		return
	}

	repo, err := h.store.UpsertRepository(r.Context(), &models.Repository{
		UserID:        req.UserID,
		ExternalID:    req.ExternalID,
		Owner:         req.Owner,
		Name:          req.Name,
		CloneURL:      req.CloneURL,
		DefaultBranch: req.DefaultBranch,
	})
	if err != nil {
		log.Printf("Failed to upsert repository: %v", err)
		http.Error(w, "Failed to upsert repository", http.StatusInternalServerError)
		return
	}

	audit.Log(audit.EventRepositoryUpserted, repo.ID.String(), "", map[string]interface{}{
		"external_id": repo.ExternalID,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(repo)
}

// GetRepository returns a single tracked repository.
func (h *RepositoriesHandler) GetRepository(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		http.Error(w, "Invalid repository ID", http.StatusBadRequest)
		return
	}

	repo, err := h.store.GetRepository(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Repository not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Failed to get repository %s: %v", id, err)
		http.Error(w, "Failed to get repository", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(repo)
}
