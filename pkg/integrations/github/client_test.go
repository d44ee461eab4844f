package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/stackgate/pkg/integrations"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c := NewClient(server.URL, "test-token")
	c.SetHTTPClient(server.Client())
	c.SetRetry(3, time.Millisecond)
	return c
}

func TestClient_DispatchWorkflow(t *testing.T) {
	var got dispatchRequest
	var auth, method, path string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	inputs := map[string]string{"package_name": "express", "package_version": "^4.18.0"}
	if err := c.DispatchWorkflow(context.Background(), "acme", "npm-mirror", "cache-package.yml", "main", inputs); err != nil {
		t.Fatalf("DispatchWorkflow: %v", err)
	}

	if method != http.MethodPost {
		t.Errorf("method = %s, want POST", method)
	}
	if path != "/repos/acme/npm-mirror/actions/workflows/cache-package.yml/dispatches" {
		t.Errorf("path = %s", path)
	}
	if auth != "Bearer test-token" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.Ref != "main" || got.Inputs["package_version"] != "^4.18.0" {
		t.Errorf("payload = %+v", got)
	}
}

func TestClient_DispatchWorkflowNotRetried(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"forbidden", http.StatusForbidden, integrations.ErrForbidden},
		{"server error", http.StatusBadGateway, integrations.ErrNetwork},
		{"unknown workflow", http.StatusNotFound, integrations.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			})

			err := c.DispatchWorkflow(context.Background(), "acme", "mirror", "cache.yml", "main", nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if n := calls.Load(); n != 1 {
				t.Errorf("dispatch sent %d times, want exactly 1", n)
			}
		})
	}
}

func TestClient_DispatchWorkflowRateLimited(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.DispatchWorkflow(context.Background(), "acme", "mirror", "cache.yml", "main", nil); err != nil {
		t.Fatalf("DispatchWorkflow: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestClient_ListWorkflowRuns(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var query string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/mirror/actions/workflows/cache.yml/runs" {
			http.NotFound(w, r)
			return
		}
		query = r.URL.RawQuery
		json.NewEncoder(w).Encode(runsResponse{
			TotalCount: 1,
			Runs: []WorkflowRun{{
				ID: 42, Status: StatusQueued, CreatedAt: created,
				DisplayTitle: "cache express", HTMLURL: "https://github.com/acme/mirror/actions/runs/42",
			}},
		})
	})

	runs, err := c.ListWorkflowRuns(context.Background(), "acme", "mirror", "cache.yml", ListOptions{PerPage: 5})
	if err != nil {
		t.Fatalf("ListWorkflowRuns: %v", err)
	}
	if query != "event=workflow_dispatch&per_page=5" {
		t.Errorf("query = %q", query)
	}
	if len(runs) != 1 || runs[0].ID != 42 || !runs[0].CreatedAt.Equal(created) {
		t.Errorf("runs = %+v", runs)
	}
	if runs[0].Completed() {
		t.Error("queued run reported completed")
	}
}

func TestClient_GetWorkflowRun(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/mirror/actions/runs/7":
			w.Write([]byte(`{"id":7,"status":"completed","conclusion":"success","html_url":"u"}`))
		case "/repos/acme/mirror/actions/runs/8":
			w.Write([]byte(`{"id":8,"status":"completed","conclusion":"failure"}`))
		default:
			http.NotFound(w, r)
		}
	})

	ok, err := c.GetWorkflowRun(context.Background(), "acme", "mirror", 7)
	if err != nil {
		t.Fatal(err)
	}
	if !ok.Succeeded() {
		t.Errorf("run 7 = %+v, want succeeded", ok)
	}

	failed, err := c.GetWorkflowRun(context.Background(), "acme", "mirror", 8)
	if err != nil {
		t.Fatal(err)
	}
	if !failed.Completed() || failed.Succeeded() {
		t.Errorf("run 8 = %+v, want completed failure", failed)
	}

	if _, err := c.GetWorkflowRun(context.Background(), "acme", "mirror", 9); !errors.Is(err, integrations.ErrNotFound) {
		t.Errorf("missing run error = %v", err)
	}
}

func TestClient_RejectsBadRepo(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", "")
	if err := c.DispatchWorkflow(context.Background(), "-bad", "repo", "x.yml", "main", nil); err == nil {
		t.Error("expected validation error for owner")
	}
}
