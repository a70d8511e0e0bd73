package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNoCommits is returned when a repository has no commits to report.
var ErrNoCommits = errors.New("no commits found")

// Commit is a single commit as listed by the commits endpoint.
type Commit struct {
	SHA     string
	Message string
}

type commitResponse struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
	} `json:"commit"`
}

// RecentCommits lists up to n of the newest commits on repo's default branch.
func (c *Client) RecentCommits(ctx context.Context, repo string, n int) ([]Commit, error) {
	if n <= 0 {
		n = 1
	}
	op := "list commits of " + repo
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("repos/%s/commits?per_page=%d", repo, n), nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(op, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var raw []commitResponse
	if err := decode(op, "commits", body, &raw); err != nil {
		return nil, err
	}
	out := make([]Commit, 0, len(raw))
	for _, r := range raw {
		out = append(out, Commit{SHA: r.SHA, Message: r.Commit.Message})
	}
	return out, nil
}

// LatestCommit returns the sha of the newest commit of repo.
func (c *Client) LatestCommit(ctx context.Context, repo string) (string, error) {
	commits, err := c.RecentCommits(ctx, repo, 1)
	if err != nil {
		return "", err
	}
	if len(commits) == 0 {
		return "", fmt.Errorf("%s: %w", repo, ErrNoCommits)
	}
	return commits[0].SHA, nil
}
