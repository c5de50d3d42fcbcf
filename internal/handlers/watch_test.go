package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"codecourier/backend/internal/models"
	"codecourier/backend/internal/store"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

func TestWatchExecutionStreamsUntilTerminal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := store.NewMemory()
	repo, err := st.UpsertRepository(ctx, &models.Repository{
		ExternalID: "octocat/hello",
		Owner:      "octocat",
		Name:       "hello",
		CloneURL:   "https://github.com/octocat/hello.git",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	exec, err := st.CreateExecution(ctx, &models.Execution{
		RepositoryID: repo.ID,
		TaskKind:     "run-coding-agent",
		PayloadJSON:  json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("create execution: %v", err)
	}

	router := mux.NewRouter()
	handler := NewExecutionsHandler(st)
	router.HandleFunc("/api/executions/{id}/watch", handler.WatchExecution).Methods("GET")
	server := httptest.NewServer(router)
	defer server.Close()

	// Settle the record before connecting: the first snapshot is already
	// terminal and the server closes after sending it.
	if err := st.FailExecution(ctx, exec.ID, "boom"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/executions/" + exec.ID.String() + "/watch"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snapshot models.Execution
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snapshot.Status != models.StatusFailed {
		t.Errorf("expected failed snapshot, got %s", snapshot.Status)
	}

	// Next read observes the close handshake.
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the server to close after a terminal snapshot")
	}
}

// countingStore counts record reads so tests can observe the watch loop.
type countingStore struct {
	store.Store
	gets atomic.Int64
}

func (s *countingStore) GetExecution(ctx context.Context, id uuid.UUID) (*models.Execution, error) {
	s.gets.Add(1)
	return s.Store.GetExecution(ctx, id)
}

func TestWatchExecutionStopsOnClientDisconnect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cs := &countingStore{Store: store.NewMemory()}
	repo, err := cs.UpsertRepository(ctx, &models.Repository{
		ExternalID: "octocat/hello",
		Owner:      "octocat",
		Name:       "hello",
		CloneURL:   "https://github.com/octocat/hello.git",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// The record never reaches a terminal state; only the disconnect can end
	// the watch loop.
	exec, err := cs.CreateExecution(ctx, &models.Execution{
		RepositoryID: repo.ID,
		TaskKind:     "run-coding-agent",
		PayloadJSON:  json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("create execution: %v", err)
	}

	handler := NewExecutionsHandler(cs)
	handler.pollInterval = 10 * time.Millisecond

	router := mux.NewRouter()
	router.HandleFunc("/api/executions/{id}/watch", handler.WatchExecution).Methods("GET")
	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/executions/" + exec.ID.String() + "/watch"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	var snapshot models.Execution
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snapshot.Status != models.StatusPending {
		t.Fatalf("expected pending snapshot, got %s", snapshot.Status)
	}

	conn.Close()

	// Once the server notices the drop, the read count freezes. Two equal
	// samples spanning many poll intervals mean the loop has exited.
	deadline := time.Now().Add(5 * time.Second)
	last := int64(-1)
	for time.Now().Before(deadline) {
		n := cs.gets.Load()
		if n == last {
			return
		}
		last = n
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("watch loop kept polling the store after the client disconnected")
}

func TestWatchExecutionUnknownID(t *testing.T) {
	t.Parallel()

	router := mux.NewRouter()
	handler := NewExecutionsHandler(store.NewMemory())
	router.HandleFunc("/api/executions/{id}/watch", handler.WatchExecution).Methods("GET")
	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/executions/5b6ec5b3-07ef-41e7-9f5f-cf09c6e813df/watch"
	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Error("expected dial to fail for unknown execution")
	} else if resp == nil || resp.StatusCode != 404 {
		t.Errorf("expected 404 handshake rejection, got %+v", resp)
	}
}
