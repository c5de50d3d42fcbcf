package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"codecourier/backend/internal/database"
	"codecourier/backend/internal/models"

	"github.com/google/uuid"
)

// Postgres is the production backend, backed by the pooled connection in
// internal/database.
type Postgres struct {
	db *database.DB
}

func NewPostgres(db *database.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) FindRepositoriesByUser(ctx context.Context, userID uuid.UUID) ([]models.Repository, error) {
	var repos []models.Repository
	err := s.db.SelectContext(ctx, &repos, `
		SELECT * FROM repositories WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("find repositories by user: %w", err)
	}
	if repos == nil {
		repos = []models.Repository{}
	}
	return repos, nil
}

func (s *Postgres) FindRepositoryByExternalID(ctx context.Context, externalID string) (*models.Repository, error) {
	var repo models.Repository
	err := s.db.GetContext(ctx, &repo, `SELECT * FROM repositories WHERE external_id = $1`, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find repository by external id: %w", err)
	}
	return &repo, nil
}

func (s *Postgres) GetRepository(ctx context.Context, id uuid.UUID) (*models.Repository, error) {
	var repo models.Repository
	err := s.db.GetContext(ctx, &repo, `SELECT * FROM repositories WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get repository: %w", err)
	}
	return &repo, nil
}

func (s *Postgres) UpsertRepository(ctx context.Context, repo *models.Repository) (*models.Repository, error) {
	branch := repo.DefaultBranch
	if branch == "" {
		branch = "main"
	}

	var out models.Repository
	err := s.db.GetContext(ctx, &out, `
		INSERT INTO repositories (user_id, external_id, owner, name, clone_url, default_branch)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (external_id) DO UPDATE SET
			owner = EXCLUDED.owner,
			name = EXCLUDED.name,
			clone_url = EXCLUDED.clone_url,
			default_branch = EXCLUDED.default_branch,
			updated_at = NOW()
		RETURNING *
	`, repo.UserID, repo.ExternalID, repo.Owner, repo.Name, repo.CloneURL, branch)
	if err != nil {
		return nil, fmt.Errorf("upsert repository: %w", err)
	}
	return &out, nil
}

func (s *Postgres) CreateExecution(ctx context.Context, exec *models.Execution) (*models.Execution, error) {
	var out models.Execution
	err := s.db.GetContext(ctx, &out, `
		INSERT INTO executions (repository_id, task_kind, payload_json, priority, max_retries, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', NOW())
		RETURNING *
	`, exec.RepositoryID, exec.TaskKind, exec.PayloadJSON, exec.Priority, exec.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}
	return &out, nil
}

func (s *Postgres) GetExecution(ctx context.Context, id uuid.UUID) (*models.Execution, error) {
	var exec models.Execution
	err := s.db.GetContext(ctx, &exec, `SELECT * FROM executions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get execution: %w", err)
	}
	return &exec, nil
}

func (s *Postgres) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]models.Execution, error) {
	query := `SELECT * FROM executions WHERE 1=1`
	args := []interface{}{}

	if filter.RepositoryID != nil {
		args = append(args, *filter.RepositoryID)
		query += fmt.Sprintf(" AND repository_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	var execs []models.Execution
	if err := s.db.SelectContext(ctx, &execs, query, args...); err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	if execs == nil {
		execs = []models.Execution{}
	}
	return execs, nil
}

// MarkExecutionStarted moves pending -> in_progress. started_at is set once;
// repeated or late calls are no-ops.
func (s *Postgres) MarkExecutionStarted(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE executions
		SET status = 'in_progress', started_at = COALESCE(started_at, NOW()), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return fmt.Errorf("mark execution started: %w", err)
	}
	return nil
}

func (s *Postgres) CompleteExecution(ctx context.Context, id uuid.UUID, metadata json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE executions
		SET status = 'completed',
			completed_at = COALESCE(completed_at, NOW()),
			metadata_json = COALESCE($2, metadata_json),
			updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'failed', 'cancelled')
	`, id, metadata)
	if err != nil {
		return fmt.Errorf("complete execution: %w", err)
	}
	return nil
}

func (s *Postgres) FailExecution(ctx context.Context, id uuid.UUID, errorMessage string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE executions
		SET status = 'failed',
			completed_at = COALESCE(completed_at, NOW()),
			error_message = $2,
			updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'failed', 'cancelled')
	`, id, errorMessage)
	if err != nil {
		return fmt.Errorf("fail execution: %w", err)
	}
	return nil
}

func (s *Postgres) CancelExecution(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE executions
		SET status = 'cancelled',
			completed_at = COALESCE(completed_at, NOW()),
			updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'failed', 'cancelled')
	`, id)
	if err != nil {
		return fmt.Errorf("cancel execution: %w", err)
	}
	return nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Postgres) Close() error {
	return s.db.Close()
}
