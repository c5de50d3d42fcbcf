// Package runner talks to the remote execution service and owns the
// post-dispatch lifecycle of execution records.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout covers a full clone-generate-commit-PR cycle on the remote
// service.
const DefaultTimeout = 1 * time.Hour

// RunRequest is the payload for the remote runner's /run endpoint. It carries
// the installation token and app key material the runner needs to push and
// open pull requests, so it is never logged.
type RunRequest struct {
	RepositoryURL     string `json:"repository_url"`
	TaskPrompt        string `json:"task_prompt"`
	InstallationToken string `json:"installation_token"`
	InstallationID    int64  `json:"installation_id"`
	AppID             int64  `json:"app_id"`
	AppPrivateKey     string `json:"app_private_key"`
	BaseBranch        string `json:"base_branch"`
}

// RunResult is the runner's reported outcome, treated as opaque beyond the
// fields mapped onto the execution record.
type RunResult struct {
	Success         bool   `json:"success"`
	PullRequestURL  string `json:"pull_request_url,omitempty"`
	ExecutionTimeMS int64  `json:"execution_time_ms"`
	ClaudeOutput    string `json:"claude_output"`
	Error           string `json:"error,omitempty"`
}

// Client is the HTTP client for the remote execution service.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout overrides the long default call timeout (tests use this).
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run submits the work and blocks until the runner reports an outcome or the
// timeout elapses. Callers run this off the request path.
func (c *Client) Run(ctx context.Context, runReq RunRequest) (*RunResult, error) {
	body, err := json.Marshal(runReq)
	if err != nil {
		return nil, fmt.Errorf("runner: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/run", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("runner: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("runner: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("runner: status %d: %s", resp.StatusCode, string(raw))
	}

	var result RunResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("runner: decode response: %w", err)
	}

	return &result, nil
}
