package gitproviders

import (
	"context"
	"fmt"
	"os"

	"github.com/google/go-github/v68/github"
)

// GitHubClient implements RepositoryProvider against the GitHub API.
type GitHubClient struct {
	client *github.Client
	ctx    context.Context
}

// NewGitHubClient creates a GitHub API client. When the GITHUB_TOKEN
// environment variable is set the client authenticates with it and verifies
// the token by fetching the current user; otherwise requests are anonymous,
// which is sufficient for public repositories.
//
// If ctx is nil, context.Background() is used.
func NewGitHubClient(ctx context.Context) (*GitHubClient, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	client := github.NewClient(nil)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		client = client.WithAuthToken(token)
		if _, _, err := client.Users.Get(ctx, ""); err != nil {
			return nil, fmt.Errorf("verifying GitHub authentication: %w", err)
		}
	}

	return &GitHubClient{
		client: client,
		ctx:    ctx,
	}, nil
}

// GetRepository retrieves basic metadata for a GitHub repository, including
// its default branch.
func (gh *GitHubClient) GetRepository(owner, repo string) (Repository, error) {
	ghRepo, _, err := gh.client.Repositories.Get(gh.ctx, owner, repo)
	if err != nil {
		return Repository{}, fmt.Errorf("fetching repository %s/%s from GitHub: %w", owner, repo, err)
	}

	return Repository{
		ID:            fmt.Sprintf("%d", ghRepo.GetID()),
		Name:          ghRepo.GetName(),
		Owner:         ghRepo.GetOwner().GetLogin(),
		Description:   ghRepo.GetDescription(),
		DefaultBranch: ghRepo.GetDefaultBranch(),
		CreatedAt:     ghRepo.GetCreatedAt().Time,
	}, nil
}

// GetDefaultBranch returns the repository's default branch name.
func (gh *GitHubClient) GetDefaultBranch(owner, repo string) (string, error) {
	repository, err := gh.GetRepository(owner, repo)
	if err != nil {
		return "", err
	}
	return repository.DefaultBranch, nil
}
