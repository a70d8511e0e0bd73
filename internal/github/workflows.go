package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ErrNoWorkflowRuns is returned when a workflow has never run.
var ErrNoWorkflowRuns = errors.New("no workflow runs found")

// WorkflowRun is the state of one Actions run.
type WorkflowRun struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	HeadSHA    string `json:"head_sha"`
	HTMLURL    string `json:"html_url"`
}

// Completed reports whether the run has finished.
func (r WorkflowRun) Completed() bool { return r.Status == "completed" }

// Succeeded reports whether the run finished successfully.
func (r WorkflowRun) Succeeded() bool { return r.Completed() && r.Conclusion == "success" }

type workflowRunsResponse struct {
	TotalCount   int           `json:"total_count"`
	WorkflowRuns []WorkflowRun `json:"workflow_runs"`
}

// LatestWorkflowRun returns the newest run of workflow (file name or id) in repo.
func (c *Client) LatestWorkflowRun(ctx context.Context, repo, workflow string) (*WorkflowRun, error) {
	op := fmt.Sprintf("list runs of %s in %s", workflow, repo)
	req, err := c.newRequest(ctx, http.MethodGet,
		c.endpoint("repos/%s/actions/workflows/%s/runs?per_page=1", repo, url.PathEscape(workflow)), nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(op, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var resp workflowRunsResponse
	if err := decode(op, "workflowRuns", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.WorkflowRuns) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoWorkflowRuns)
	}
	return &resp.WorkflowRuns[0], nil
}
