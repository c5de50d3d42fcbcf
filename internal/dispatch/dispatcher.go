// Package dispatch orchestrates credential issuance and hand-off of
// code-generation work to the remote runner.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"codecourier/backend/internal/audit"
	"codecourier/backend/internal/githubapp"
	"codecourier/backend/internal/models"
	"codecourier/backend/internal/runner"
	"codecourier/backend/internal/store"
	"codecourier/backend/internal/tasks"

	"github.com/google/uuid"
)

// Request is one dispatch call.
type Request struct {
	Owner         string
	Repo          string
	TaskKind      string
	Ref           string
	Inputs        map[string]string
	RepositoryRef string
}

// Acknowledgement is the immediate response: the work is accepted for
// processing, not done. Callers poll StatusEndpoint for terminal status.
type Acknowledgement struct {
	TrackingID     uuid.UUID
	StatusEndpoint string
}

// Dispatcher validates a dispatch request, resolves installation credentials,
// persists the tracking record, and hands the work to the runner pool.
type Dispatcher struct {
	store  store.Store
	github *githubapp.Client
	pool   *runner.Pool
}

func New(st store.Store, github *githubapp.Client, pool *runner.Pool) *Dispatcher {
	return &Dispatcher{
		store:  st,
		github: github,
		pool:   pool,
	}
}

// Dispatch runs the full submission sequence. Everything up to and including
// the record insert is synchronous and reported to the caller; the runner
// call itself is handed to the pool and its outcome lands on the record only.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Acknowledgement, error) {
	kind := tasks.Get(req.TaskKind)
	if kind == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTaskKind, req.TaskKind)
	}
	inputs, err := kind.ValidateInputs(req.Inputs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingInput, err)
	}

	repo, err := d.store.FindRepositoryByExternalID(ctx, req.RepositoryRef)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q is not tracked", ErrUnknownRepository, req.RepositoryRef)
		}
		return nil, fmt.Errorf("dispatch: repository lookup: %w", err)
	}

	// One assertion per dispatch; resolution and exchange share it.
	assertion, err := d.github.Mint()
	if err != nil {
		return nil, err
	}

	installationID, err := d.github.ResolveInstallation(ctx, req.Owner, req.Repo, assertion)
	if err != nil {
		return nil, err
	}

	// Exchange follows a successful resolution for the same coordinates; an
	// installation revoked in between surfaces as not-found here.
	token, err := d.github.ExchangeInstallationToken(ctx, installationID, assertion)
	if err != nil {
		return nil, err
	}

	baseBranch := req.Ref
	if baseBranch == "" {
		baseBranch = inputs["base_branch"]
	}
	if baseBranch == "" {
		baseBranch = repo.DefaultBranch
	}
	if baseBranch == "" {
		baseBranch = "main"
	}

	runReq := runner.RunRequest{
		RepositoryURL:     repo.CloneURL,
		TaskPrompt:        inputs["prompt"],
		InstallationToken: token.Token,
		InstallationID:    installationID,
		AppID:             d.github.AppID(),
		AppPrivateKey:     d.github.PrivateKeyPEM(),
		BaseBranch:        baseBranch,
	}

	payload, err := json.Marshal(runReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTrackingPersistence, err)
	}

	// The record insert must succeed before any remote call: an untracked
	// dispatch has no status to query.
	exec, err := d.store.CreateExecution(ctx, &models.Execution{
		RepositoryID: repo.ID,
		TaskKind:     req.TaskKind,
		PayloadJSON:  payload,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTrackingPersistence, err)
	}

	if err := d.pool.Submit(exec.ID, runReq); err != nil {
		// The caller already has a durable tracking record; the trigger
		// failure lands there instead of on the response.
		log.Printf("Failed to submit execution %s to runner pool: %v", exec.ID, err)
		if failErr := d.store.FailExecution(ctx, exec.ID, err.Error()); failErr != nil {
			log.Printf("Failed to record submit failure for execution %s: %v", exec.ID, failErr)
		}
	}

	audit.Log(audit.EventDispatchAccepted, repo.ID.String(), exec.ID.String(), map[string]interface{}{
		"task_kind": req.TaskKind,
		"owner":     req.Owner,
		"repo":      req.Repo,
	})

	return &Acknowledgement{
		TrackingID:     exec.ID,
		StatusEndpoint: "/api/executions/" + exec.ID.String(),
	}, nil
}

// InstallationStatus reports whether the app covers (owner, repo). "Not
// installed" is an answer, not an error.
func (d *Dispatcher) InstallationStatus(ctx context.Context, owner, repo string) (bool, int64, error) {
	assertion, err := d.github.Mint()
	if err != nil {
		return false, 0, err
	}

	installationID, err := d.github.ResolveInstallation(ctx, owner, repo, assertion)
	if err != nil {
		if errors.Is(err, githubapp.ErrInstallationNotFound) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return true, installationID, nil
}
