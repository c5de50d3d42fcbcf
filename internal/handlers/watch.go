package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"codecourier/backend/internal/models"
	"codecourier/backend/internal/store"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for WebSocket
	},
}

// watchPollInterval is how often the watch loop re-reads the record.
const watchPollInterval = 2 * time.Second

// WatchExecution streams status snapshots for one execution over a WebSocket
// until the record reaches a terminal state or the client disconnects. The
// snapshot is the same shape the GET endpoint returns.
func (h *ExecutionsHandler) WatchExecution(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		http.Error(w, "Invalid execution ID", http.StatusBadRequest)
		return
	}

	if _, err := h.store.GetExecution(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Execution not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to get execution", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade watch connection: %v", err)
		return
	}
	defer conn.Close()

	// Clients send nothing; the read pump exists to notice a disconnect,
	// since the hijacked request context is never cancelled and a record can
	// sit non-terminal indefinitely.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	lastStatus := ""
	for {
		exec, err := h.store.GetExecution(r.Context(), id)
		if err != nil {
			return
		}

		if exec.Status != lastStatus {
			lastStatus = exec.Status
			if err := conn.WriteJSON(exec); err != nil {
				return
			}
		}

		if models.IsTerminal(exec.Status) {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, exec.Status))
			return
		}

		select {
		case <-ticker.C:
		case <-disconnected:
			return
		case <-r.Context().Done():
			return
		}
	}
}
