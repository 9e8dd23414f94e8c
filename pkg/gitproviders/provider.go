// Package gitproviders looks up repository metadata on hosting services.
// The analysis pipeline itself only ever talks to git; this package exists
// so web front-end locators can be validated and described (default branch,
// description) before a potentially long clone starts.
package gitproviders

import "time"

// Repository represents a code repository hosted on a Git provider.
type Repository struct {
	ID            string
	Name          string
	Owner         string
	Description   string
	DefaultBranch string
	CreatedAt     time.Time
}

// RepositoryProvider is the hosting-service lookup used by callers that want
// to describe a remote repository before cloning it.
type RepositoryProvider interface {
	GetRepository(owner, repo string) (Repository, error)
	GetDefaultBranch(owner, repo string) (string, error)
}
