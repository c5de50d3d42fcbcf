// Package githubapp mints GitHub App identity assertions and exchanges them
// for installation-scoped access tokens.
package githubapp

import "errors"

var (
	// ErrConfiguration indicates the app id or private key is absent or
	// malformed. Fatal to every dispatch until the configuration is fixed.
	ErrConfiguration = errors.New("githubapp: invalid app configuration")

	// ErrInstallationNotFound indicates no installation covers the repository
	// (or the installation was revoked between resolution and exchange).
	// Callers render install-the-app guidance for this one.
	ErrInstallationNotFound = errors.New("githubapp: app not installed for repository")

	// ErrUpstreamUnavailable indicates a transport failure or 5xx from the
	// GitHub API. Safe to retry the whole dispatch.
	ErrUpstreamUnavailable = errors.New("githubapp: github api unavailable")
)
