package gate

import (
	"context"

	"github.com/matzehuels/stackgate/pkg/integrations/github"
)

// Actions runs the caching job as a GitHub Actions workflow_dispatch
// workflow.
type Actions struct {
	Client   *github.Client
	Owner    string
	Repo     string
	Workflow string // file name or ID
	Ref      string // branch the workflow runs on
}

// Dispatch implements Jobs.
func (a *Actions) Dispatch(ctx context.Context, inputs map[string]string) error {
	return a.Client.DispatchWorkflow(ctx, a.Owner, a.Repo, a.Workflow, a.Ref, inputs)
}

// ListRuns implements Jobs. Only dispatch-triggered runs on Ref are listed.
func (a *Actions) ListRuns(ctx context.Context) ([]github.WorkflowRun, error) {
	return a.Client.ListWorkflowRuns(ctx, a.Owner, a.Repo, a.Workflow, github.ListOptions{Branch: a.Ref, PerPage: 20})
}

// GetRun implements Jobs.
func (a *Actions) GetRun(ctx context.Context, id int64) (*github.WorkflowRun, error) {
	return a.Client.GetWorkflowRun(ctx, a.Owner, a.Repo, id)
}
