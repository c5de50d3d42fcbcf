package models

import (
	"time"

	"github.com/google/uuid"
)

// Repository is a tracked repository in the directory. Dispatches may only
// target repositories the service already tracks; ExternalID is the caller's
// stable reference (the GitHub "owner/name" slug or node id).
type Repository struct {
	ID            uuid.UUID `db:"id" json:"id"`
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	ExternalID    string    `db:"external_id" json:"external_id"`
	Owner         string    `db:"owner" json:"owner"`
	Name          string    `db:"name" json:"name"`
	CloneURL      string    `db:"clone_url" json:"clone_url"`
	DefaultBranch string    `db:"default_branch" json:"default_branch"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// FullName returns the "owner/name" form used in GitHub API paths.
func (r *Repository) FullName() string {
	return r.Owner + "/" + r.Name
}
