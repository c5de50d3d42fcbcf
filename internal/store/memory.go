package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"codecourier/backend/internal/models"

	"github.com/google/uuid"
)

// Memory keeps everything in process. Selected for deployments without a
// database and used by the test suites; same lifecycle rules as Postgres.
type Memory struct {
	mu           sync.RWMutex
	repositories map[uuid.UUID]models.Repository
	executions   map[uuid.UUID]models.Execution
	now          func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		repositories: make(map[uuid.UUID]models.Repository),
		executions:   make(map[uuid.UUID]models.Execution),
		now:          time.Now,
	}
}

func (s *Memory) FindRepositoriesByUser(ctx context.Context, userID uuid.UUID) ([]models.Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	repos := []models.Repository{}
	for _, repo := range s.repositories {
		if repo.UserID == userID {
			repos = append(repos, repo)
		}
	}
	sort.Slice(repos, func(i, j int) bool {
		return repos[i].CreatedAt.After(repos[j].CreatedAt)
	})
	return repos, nil
}

func (s *Memory) FindRepositoryByExternalID(ctx context.Context, externalID string) (*models.Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, repo := range s.repositories {
		if repo.ExternalID == externalID {
			out := repo
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) GetRepository(ctx context.Context, id uuid.UUID) (*models.Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	repo, ok := s.repositories[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := repo
	return &out, nil
}

func (s *Memory) UpsertRepository(ctx context.Context, repo *models.Repository) (*models.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	branch := repo.DefaultBranch
	if branch == "" {
		branch = "main"
	}

	for id, existing := range s.repositories {
		if existing.ExternalID == repo.ExternalID {
			existing.Owner = repo.Owner
			existing.Name = repo.Name
			existing.CloneURL = repo.CloneURL
			existing.DefaultBranch = branch
			existing.UpdatedAt = now
			s.repositories[id] = existing
			out := existing
			return &out, nil
		}
	}

	created := models.Repository{
		ID:            uuid.New(),
		UserID:        repo.UserID,
		ExternalID:    repo.ExternalID,
		Owner:         repo.Owner,
		Name:          repo.Name,
		CloneURL:      repo.CloneURL,
		DefaultBranch: branch,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.repositories[created.ID] = created
	out := created
	return &out, nil
}

func (s *Memory) CreateExecution(ctx context.Context, exec *models.Execution) (*models.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	scheduledAt := now
	created := models.Execution{
		ID:           uuid.New(),
		RepositoryID: exec.RepositoryID,
		TaskKind:     exec.TaskKind,
		PayloadJSON:  exec.PayloadJSON,
		Priority:     exec.Priority,
		Status:       models.StatusPending,
		MaxRetries:   exec.MaxRetries,
		ScheduledAt:  &scheduledAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.executions[created.ID] = created
	out := created
	return &out, nil
}

func (s *Memory) GetExecution(ctx context.Context, id uuid.UUID) (*models.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exec, ok := s.executions[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := exec
	return &out, nil
}

func (s *Memory) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]models.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	execs := []models.Execution{}
	for _, exec := range s.executions {
		if filter.RepositoryID != nil && exec.RepositoryID != *filter.RepositoryID {
			continue
		}
		if filter.Status != "" && exec.Status != filter.Status {
			continue
		}
		execs = append(execs, exec)
	}
	sort.Slice(execs, func(i, j int) bool {
		return execs[i].CreatedAt.After(execs[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if len(execs) > limit {
		execs = execs[:limit]
	}
	return execs, nil
}

func (s *Memory) MarkExecutionStarted(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exec, ok := s.executions[id]
	if !ok || exec.Status != models.StatusPending {
		return nil
	}

	now := s.now()
	exec.Status = models.StatusInProgress
	if exec.StartedAt == nil {
		exec.StartedAt = &now
	}
	exec.UpdatedAt = now
	s.executions[id] = exec
	return nil
}

func (s *Memory) CompleteExecution(ctx context.Context, id uuid.UUID, metadata json.RawMessage) error {
	return s.finish(id, models.StatusCompleted, "", metadata)
}

func (s *Memory) FailExecution(ctx context.Context, id uuid.UUID, errorMessage string) error {
	return s.finish(id, models.StatusFailed, errorMessage, nil)
}

func (s *Memory) CancelExecution(ctx context.Context, id uuid.UUID) error {
	return s.finish(id, models.StatusCancelled, "", nil)
}

func (s *Memory) finish(id uuid.UUID, status, errorMessage string, metadata json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exec, ok := s.executions[id]
	if !ok || models.IsTerminal(exec.Status) {
		return nil
	}

	now := s.now()
	exec.Status = status
	if exec.CompletedAt == nil {
		exec.CompletedAt = &now
	}
	if errorMessage != "" {
		exec.ErrorMessage = &errorMessage
	}
	if metadata != nil {
		exec.MetadataJSON = metadata
	}
	exec.UpdatedAt = now
	s.executions[id] = exec
	return nil
}

func (s *Memory) Ping(ctx context.Context) error {
	return nil
}

func (s *Memory) Close() error {
	return nil
}
