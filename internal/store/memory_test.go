package store

import (
	"context"
	"encoding/json"
	"testing"

	"codecourier/backend/internal/models"

	"github.com/google/uuid"
)

func seedRepository(t *testing.T, s Store) *models.Repository {
	t.Helper()
	repo, err := s.UpsertRepository(context.Background(), &models.Repository{
		UserID:     uuid.New(),
		ExternalID: "octocat/hello",
		Owner:      "octocat",
		Name:       "hello",
		CloneURL:   "https://github.com/octocat/hello.git",
	})
	if err != nil {
		t.Fatalf("seed repository: %v", err)
	}
	return repo
}

func seedExecution(t *testing.T, s Store, repoID uuid.UUID) *models.Execution {
	t.Helper()
	exec, err := s.CreateExecution(context.Background(), &models.Execution{
		RepositoryID: repoID,
		TaskKind:     "run-coding-agent",
		PayloadJSON:  json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("seed execution: %v", err)
	}
	return exec
}

func TestUpsertRepositoryByExternalID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()

	first := seedRepository(t, s)
	if first.DefaultBranch != "main" {
		t.Errorf("expected default branch main, got %q", first.DefaultBranch)
	}

	// Second upsert with the same external id updates in place.
	second, err := s.UpsertRepository(ctx, &models.Repository{
		UserID:        first.UserID,
		ExternalID:    "octocat/hello",
		Owner:         "octocat",
		Name:          "hello",
		CloneURL:      "https://github.com/octocat/hello.git",
		DefaultBranch: "develop",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Error("upsert should keep the same internal id")
	}
	if second.DefaultBranch != "develop" {
		t.Errorf("expected updated branch develop, got %q", second.DefaultBranch)
	}

	found, err := s.FindRepositoryByExternalID(ctx, "octocat/hello")
	if err != nil {
		t.Fatalf("find by external id: %v", err)
	}
	if found.ID != first.ID {
		t.Error("find by external id should return the upserted row")
	}

	if _, err := s.FindRepositoryByExternalID(ctx, "nobody/nothing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindRepositoriesByUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()

	userID := uuid.New()
	for _, slug := range []string{"u/one", "u/two"} {
		if _, err := s.UpsertRepository(ctx, &models.Repository{
			UserID:     userID,
			ExternalID: slug,
			Owner:      "u",
			Name:       slug[2:],
			CloneURL:   "https://github.com/" + slug + ".git",
		}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	seedRepository(t, s) // different user

	repos, err := s.FindRepositoriesByUser(ctx, userID)
	if err != nil {
		t.Fatalf("find by user: %v", err)
	}
	if len(repos) != 2 {
		t.Fatalf("expected 2 repositories, got %d", len(repos))
	}
}

func TestExecutionLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()

	repo := seedRepository(t, s)
	exec := seedExecution(t, s, repo.ID)

	if exec.Status != models.StatusPending {
		t.Fatalf("new execution should be pending, got %s", exec.Status)
	}
	if exec.ScheduledAt == nil {
		t.Error("scheduled_at should be set at creation")
	}

	if err := s.MarkExecutionStarted(ctx, exec.ID); err != nil {
		t.Fatalf("mark started: %v", err)
	}
	started, _ := s.GetExecution(ctx, exec.ID)
	if started.Status != models.StatusInProgress {
		t.Fatalf("expected in_progress, got %s", started.Status)
	}
	if started.StartedAt == nil {
		t.Fatal("started_at should be set")
	}

	// Second start is a no-op; started_at is set at most once.
	firstStartedAt := *started.StartedAt
	if err := s.MarkExecutionStarted(ctx, exec.ID); err != nil {
		t.Fatalf("second mark started: %v", err)
	}
	again, _ := s.GetExecution(ctx, exec.ID)
	if !again.StartedAt.Equal(firstStartedAt) {
		t.Error("started_at should not change on repeated starts")
	}

	metadata := json.RawMessage(`{"pull_request_url":"https://github.com/octocat/hello/pull/1"}`)
	if err := s.CompleteExecution(ctx, exec.ID, metadata); err != nil {
		t.Fatalf("complete: %v", err)
	}
	done, _ := s.GetExecution(ctx, exec.ID)
	if done.Status != models.StatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
	if done.CompletedAt == nil {
		t.Error("completed_at should be set")
	}
	if string(done.MetadataJSON) != string(metadata) {
		t.Errorf("metadata not recorded: %s", done.MetadataJSON)
	}
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()

	repo := seedRepository(t, s)
	exec := seedExecution(t, s, repo.ID)

	if err := s.FailExecution(ctx, exec.ID, "runner exploded"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	// Every later transition is a silent no-op.
	if err := s.CompleteExecution(ctx, exec.ID, nil); err != nil {
		t.Fatalf("complete after fail: %v", err)
	}
	if err := s.CancelExecution(ctx, exec.ID); err != nil {
		t.Fatalf("cancel after fail: %v", err)
	}
	if err := s.MarkExecutionStarted(ctx, exec.ID); err != nil {
		t.Fatalf("start after fail: %v", err)
	}

	final, _ := s.GetExecution(ctx, exec.ID)
	if final.Status != models.StatusFailed {
		t.Fatalf("terminal status should never change, got %s", final.Status)
	}
	if final.ErrorMessage == nil || *final.ErrorMessage != "runner exploded" {
		t.Error("error message should be preserved")
	}
}

func TestListExecutionsFilters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()

	repoA := seedRepository(t, s)
	repoB, err := s.UpsertRepository(ctx, &models.Repository{
		UserID:     uuid.New(),
		ExternalID: "octocat/world",
		Owner:      "octocat",
		Name:       "world",
		CloneURL:   "https://github.com/octocat/world.git",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	a := seedExecution(t, s, repoA.ID)
	seedExecution(t, s, repoB.ID)
	if err := s.CancelExecution(ctx, a.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	byRepo, err := s.ListExecutions(ctx, ExecutionFilter{RepositoryID: &repoA.ID})
	if err != nil {
		t.Fatalf("list by repo: %v", err)
	}
	if len(byRepo) != 1 || byRepo[0].ID != a.ID {
		t.Fatalf("expected the single execution of repoA, got %d rows", len(byRepo))
	}

	cancelled, err := s.ListExecutions(ctx, ExecutionFilter{Status: models.StatusCancelled})
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(cancelled) != 1 {
		t.Fatalf("expected 1 cancelled execution, got %d", len(cancelled))
	}

	if _, err := s.GetExecution(ctx, uuid.New()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for random id, got %v", err)
	}
}
