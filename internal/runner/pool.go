package runner

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"codecourier/backend/internal/audit"
	"codecourier/backend/internal/store"

	"github.com/google/uuid"
)

// ErrQueueFull is returned by Submit when the trigger queue has no room.
// The caller records the failure on the execution instead of blocking.
var ErrQueueFull = errors.New("runner: trigger queue full")

type trigger struct {
	executionID uuid.UUID
	request     RunRequest
}

// Pool owns the fire-and-forget runner calls. Dispatch enqueues a trigger;
// a bounded set of workers performs the long call and writes the outcome back
// to the execution record. Nothing here surfaces to the dispatching request.
type Pool struct {
	client   *Client
	store    store.Store
	workers  int
	triggers chan trigger
	wg       sync.WaitGroup
}

// NewPool sizes the worker set and queue. Each worker holds at most one
// outstanding runner call.
func NewPool(client *Client, st store.Store, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		client:   client,
		store:    st,
		workers:  workers,
		triggers: make(chan trigger, workers*4),
	}
}

// Start spawns the workers.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	log.Printf("Runner pool started with %d workers", p.workers)
}

// Stop drains the queue and waits for in-flight calls to finish.
func (p *Pool) Stop() {
	close(p.triggers)
	p.wg.Wait()
	log.Println("Runner pool stopped")
}

// Submit enqueues a trigger without blocking. The execution record must
// already exist; every triggered task has a durable tracking record.
func (p *Pool) Submit(executionID uuid.UUID, req RunRequest) error {
	select {
	case p.triggers <- trigger{executionID: executionID, request: req}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.triggers {
		p.execute(t)
	}
}

// execute performs one runner call and settles the record. Errors are
// recorded, never re-raised: the original dispatch has long since returned.
func (p *Pool) execute(t trigger) {
	ctx := context.Background()

	if err := p.store.MarkExecutionStarted(ctx, t.executionID); err != nil {
		log.Printf("Failed to mark execution %s started: %v", t.executionID, err)
	}
	audit.Log(audit.EventExecutionStarted, "", t.executionID.String(), nil)

	result, err := p.client.Run(ctx, t.request)
	if err != nil {
		p.fail(ctx, t.executionID, err.Error())
		return
	}

	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "remote runner reported failure"
		}
		p.fail(ctx, t.executionID, msg)
		return
	}

	metadata, _ := json.Marshal(map[string]interface{}{
		"pull_request_url":  result.PullRequestURL,
		"execution_time_ms": result.ExecutionTimeMS,
	})
	if err := p.store.CompleteExecution(ctx, t.executionID, metadata); err != nil {
		log.Printf("Failed to complete execution %s: %v", t.executionID, err)
		return
	}
	audit.Log(audit.EventExecutionCompleted, "", t.executionID.String(), map[string]interface{}{
		"execution_time_ms": result.ExecutionTimeMS,
	})
}

func (p *Pool) fail(ctx context.Context, id uuid.UUID, msg string) {
	if err := p.store.FailExecution(ctx, id, msg); err != nil {
		log.Printf("Failed to record failure for execution %s: %v", id, err)
		return
	}
	audit.Log(audit.EventExecutionFailed, "", id.String(), map[string]interface{}{
		"error": msg,
	})
}
