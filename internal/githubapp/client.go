package githubapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the GitHub API base URL.
	DefaultBaseURL = "https://api.github.com"

	// DefaultTimeout is the request timeout for resolution and exchange
	// calls; both are small metadata requests.
	DefaultTimeout = 15 * time.Second
)

// Client resolves installations and exchanges app assertions for
// installation-scoped access tokens.
type Client struct {
	appID      int64
	privateKey string
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host (Enterprise or tests).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithClock overrides the time source used when minting assertions.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a client for the given app identity. The private key is kept in
// raw PEM form and parsed on each mint so a bad key surfaces per operation.
func New(appID int64, privateKeyPEM string, opts ...Option) *Client {
	c := &Client{
		appID:      appID,
		privateKey: privateKeyPEM,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AppID returns the configured app identifier.
func (c *Client) AppID() int64 {
	return c.appID
}

// PrivateKeyPEM returns the normalized key material, for payloads where the
// remote runner must mint its own tokens.
func (c *Client) PrivateKeyPEM() string {
	return NormalizePrivateKey(c.privateKey)
}

// Mint produces a fresh identity assertion. Assertions are never persisted;
// each dispatch mints its own.
func (c *Client) Mint() (string, error) {
	return MintAssertion(c.appID, c.privateKey, c.now())
}

// InstallationToken is an opaque bearer credential scoped to one
// installation. Never persisted, never logged.
type InstallationToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ResolveInstallation discovers the installation covering (owner, repo),
// authenticating with the given assertion. Returns ErrInstallationNotFound
// when GitHub reports no covering installation.
func (c *Client) ResolveInstallation(ctx context.Context, owner, repo, assertion string) (int64, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/installation", c.baseURL, owner, repo)

	var out struct {
		ID int64 `json:"id"`
	}
	if err := c.doRequest(ctx, http.MethodGet, endpoint, assertion, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// ExchangeInstallationToken trades the assertion for an installation-scoped
// access token. A fresh token is minted on every call; nothing is cached.
// An installation revoked since resolution surfaces as
// ErrInstallationNotFound, not a generic failure.
func (c *Client) ExchangeInstallationToken(ctx context.Context, installationID int64, assertion string) (*InstallationToken, error) {
	endpoint := fmt.Sprintf("%s/app/installations/%d/access_tokens", c.baseURL, installationID)

	var token InstallationToken
	if err := c.doRequest(ctx, http.MethodPost, endpoint, assertion, &token); err != nil {
		return nil, err
	}
	if token.Token == "" {
		return nil, fmt.Errorf("%w: token issuance returned an empty token", ErrUpstreamUnavailable)
	}
	return &token, nil
}

func (c *Client) doRequest(ctx context.Context, method, endpoint, assertion string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("githubapp: create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+assertion)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrInstallationNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("githubapp: unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrUpstreamUnavailable, err)
		}
	}

	return nil
}
