package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"codecourier/backend/internal/store"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type ExecutionsHandler struct {
	store        store.Store
	pollInterval time.Duration
}

func NewExecutionsHandler(st store.Store) *ExecutionsHandler {
	return &ExecutionsHandler{store: st, pollInterval: watchPollInterval}
}

// ListExecutions returns recent executions, optionally filtered by
// repository and status.
func (h *ExecutionsHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	filter := store.ExecutionFilter{
		Status: r.URL.Query().Get("status"),
	}

	if raw := r.URL.Query().Get("repository_id"); raw != "" {
		repoID, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "Invalid repository_id", http.StatusBadRequest)
			return
		}
		filter.RepositoryID = &repoID
	}

	execs, err := h.store.ListExecutions(r.Context(), filter)
	if err != nil {
		log.Printf("Failed to list executions: %v", err)
		http.Error(w, "Failed to list executions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(execs)
}

// GetExecution returns a single tracking record by id.
func (h *ExecutionsHandler) GetExecution(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		http.Error(w, "Invalid execution ID", http.StatusBadRequest)
		return
	}

	exec, err := h.store.GetExecution(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Execution not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Failed to get execution %s: %v", id, err)
		http.Error(w, "Failed to get execution", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(exec)
}
