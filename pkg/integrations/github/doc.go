// Package github provides a client for the GitHub Actions REST API.
//
// # Overview
//
// stackgate uses a workflow_dispatch workflow in the mirror repository as
// the remote caching job: the workflow fetches a package from the public
// registry, rewrites its manifest into the private scope and publishes it
// to the mirror. This package only triggers and observes that workflow.
//
// # Usage
//
//	client := github.NewClient("", os.Getenv("GITHUB_TOKEN"))
//
//	err := client.DispatchWorkflow(ctx, "acme", "npm-mirror", "cache-package.yml", "main",
//	    map[string]string{"package_name": "express", "package_version": "^4.18.0"})
//
//	runs, err := client.ListWorkflowRuns(ctx, "acme", "npm-mirror", "cache-package.yml",
//	    github.ListOptions{PerPage: 5})
//
//	run, err := client.GetWorkflowRun(ctx, "acme", "npm-mirror", runs[0].ID)
//	if run.Succeeded() { ... }
//
// # Run attribution
//
// The dispatch endpoint does not return the created run. Callers pick the
// run out of [Client.ListWorkflowRuns] by creation time, or by a token they
// passed as an input and the workflow echoes into its run-name.
//
// # Authentication
//
// Dispatching requires a token with actions:write on the repository.
// Requests share the rate limiter installed with SetLimiter, and rate-limit
// responses are retried after the delay GitHub advertises.
package github
