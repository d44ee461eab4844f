package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/matzehuels/stackgate/pkg/httputil"
	"github.com/matzehuels/stackgate/pkg/integrations"
)

// DefaultBaseURL is the public GitHub REST API root.
const DefaultBaseURL = "https://api.github.com"

// Client drives GitHub Actions workflows: dispatching them and reading
// the state of their runs. Run state is never cached.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates an Actions client. Dispatching requires a token with
// actions:write on the target repository; an empty token only works for
// reading public runs.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	headers := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &Client{
		Client:  integrations.NewClient(nil, "github:", 0, headers),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// DispatchWorkflow triggers a workflow_dispatch event for workflow (a file
// name such as "cache-package.yml" or a numeric ID) on ref.
//
// GitHub answers 204 without any reference to the run it creates; callers
// locate the run afterwards with [Client.ListWorkflowRuns].
func (c *Client) DispatchWorkflow(ctx context.Context, owner, repo, workflow, ref string, inputs map[string]string) error {
	if err := ValidateRepoRef(owner, repo); err != nil {
		return err
	}
	payload := dispatchRequest{Ref: ref, Inputs: inputs}
	endpoint := fmt.Sprintf("%s/repos/%s/%s/actions/workflows/%s/dispatches",
		c.baseURL, owner, repo, url.PathEscape(workflow))

	// A dispatch is not idempotent: a 5xx or a dropped connection may
	// still have queued a run, so only rate-limit rejections are retried.
	return c.Retry(ctx, func() error {
		err := c.Post(ctx, endpoint, payload, nil)
		var re *httputil.RetryableError
		if errors.As(err, &re) && !errors.Is(err, integrations.ErrRateLimited) {
			return re.Err
		}
		return err
	})
}

// ListOptions filters [Client.ListWorkflowRuns].
type ListOptions struct {
	Event   string // defaults to "workflow_dispatch"
	Branch  string
	PerPage int // defaults to 10
}

// ListWorkflowRuns returns the most recent runs of workflow, newest first.
func (c *Client) ListWorkflowRuns(ctx context.Context, owner, repo, workflow string, opts ListOptions) ([]WorkflowRun, error) {
	if err := ValidateRepoRef(owner, repo); err != nil {
		return nil, err
	}
	if opts.Event == "" {
		opts.Event = "workflow_dispatch"
	}
	if opts.PerPage <= 0 {
		opts.PerPage = 10
	}
	q := url.Values{}
	q.Set("event", opts.Event)
	q.Set("per_page", strconv.Itoa(opts.PerPage))
	if opts.Branch != "" {
		q.Set("branch", opts.Branch)
	}
	endpoint := fmt.Sprintf("%s/repos/%s/%s/actions/workflows/%s/runs?%s",
		c.baseURL, owner, repo, url.PathEscape(workflow), q.Encode())

	var data runsResponse
	err := c.Retry(ctx, func() error {
		return c.Get(ctx, endpoint, &data)
	})
	if err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return nil, fmt.Errorf("%w: workflow %s in %s/%s", err, workflow, owner, repo)
		}
		return nil, err
	}
	return data.Runs, nil
}

// GetWorkflowRun reads one run by ID.
func (c *Client) GetWorkflowRun(ctx context.Context, owner, repo string, id int64) (*WorkflowRun, error) {
	if err := ValidateRepoRef(owner, repo); err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/repos/%s/%s/actions/runs/%d", c.baseURL, owner, repo, id)

	var run WorkflowRun
	err := c.Retry(ctx, func() error {
		return c.Get(ctx, endpoint, &run)
	})
	if err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return nil, fmt.Errorf("%w: run %d in %s/%s", err, id, owner, repo)
		}
		return nil, err
	}
	return &run, nil
}
