// Package store persists the repository directory and the execution queue
// behind one interface, with a concrete backend picked per deployment.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"codecourier/backend/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// ExecutionFilter narrows ListExecutions.
type ExecutionFilter struct {
	RepositoryID *uuid.UUID
	Status       string
	Limit        int
}

// Store is the persistence contract. The execution-queue mutators enforce the
// status lifecycle: a record leaves pending exactly once, and terminal states
// are absorbing — transitions against a terminal record are silent no-ops.
type Store interface {
	// Repository directory
	FindRepositoriesByUser(ctx context.Context, userID uuid.UUID) ([]models.Repository, error)
	FindRepositoryByExternalID(ctx context.Context, externalID string) (*models.Repository, error)
	GetRepository(ctx context.Context, id uuid.UUID) (*models.Repository, error)
	UpsertRepository(ctx context.Context, repo *models.Repository) (*models.Repository, error)

	// Execution queue
	CreateExecution(ctx context.Context, exec *models.Execution) (*models.Execution, error)
	GetExecution(ctx context.Context, id uuid.UUID) (*models.Execution, error)
	ListExecutions(ctx context.Context, filter ExecutionFilter) ([]models.Execution, error)
	MarkExecutionStarted(ctx context.Context, id uuid.UUID) error
	CompleteExecution(ctx context.Context, id uuid.UUID, metadata json.RawMessage) error
	FailExecution(ctx context.Context, id uuid.UUID, errorMessage string) error
	CancelExecution(ctx context.Context, id uuid.UUID) error

	Ping(ctx context.Context) error
	Close() error
}
