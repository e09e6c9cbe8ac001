// Package github talks to the GitHub Actions REST API on behalf of the
// reference server.
package github

import (
	"strconv"
	"time"

	"github.com/kyleking/gh-runtail/internal/resource"
)

// Workflow is a workflow definition in the repository.
type Workflow struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	State string `json:"state"`
}

// WorkflowRun represents a GitHub Actions workflow run.
type WorkflowRun struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	WorkflowID int64     `json:"workflow_id"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	HTMLURL    string    `json:"html_url"`
	HeadBranch string    `json:"head_branch"`
	Event      string    `json:"event"`
}

// Runner is a self-hosted runner registered with the repository.
type Runner struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	OS     string `json:"os"`
	Status string `json:"status"`
}

// RunStatus constants
const (
	StatusQueued     = "queued"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Conclusion constants
const (
	ConclusionSuccess   = "success"
	ConclusionFailure   = "failure"
	ConclusionCancelled = "cancelled"
	ConclusionSkipped   = "skipped"
)

// IsActive returns true if the run is still in progress.
func (r WorkflowRun) IsActive() bool {
	return r.Status == StatusQueued || r.Status == StatusInProgress
}

// IsSuccess returns true if the run completed successfully.
func (r WorkflowRun) IsSuccess() bool {
	return r.Status == StatusCompleted && r.Conclusion == ConclusionSuccess
}

// WorkflowsResponse is the API response for listing workflows.
type WorkflowsResponse struct {
	TotalCount int        `json:"total_count"`
	Workflows  []Workflow `json:"workflows"`
}

// RunsResponse represents the API response for listing runs.
type RunsResponse struct {
	TotalCount   int           `json:"total_count"`
	WorkflowRuns []WorkflowRun `json:"workflow_runs"`
}

// RunnersResponse is the API response for listing self-hosted runners.
type RunnersResponse struct {
	TotalCount int      `json:"total_count"`
	Runners    []Runner `json:"runners"`
}

// Resource converts the workflow; its name falls back to path, then id.
func (w Workflow) Resource() resource.Resource {
	name := w.Name
	if name == "" {
		name = w.Path
	}
	if name == "" {
		name = strconv.FormatInt(w.ID, 10)
	}
	return resource.Resource{
		ID:   resource.PrefixWorkflow + strconv.FormatInt(w.ID, 10),
		Type: resource.TypeWorkflow,
		Name: name,
	}
}

// Resource converts the run; its name falls back to head branch, then id.
func (r WorkflowRun) Resource() resource.Resource {
	name := r.Name
	if name == "" {
		name = r.HeadBranch
	}
	if name == "" {
		name = strconv.FormatInt(r.ID, 10)
	}
	res := resource.Resource{
		ID:   resource.PrefixRun + strconv.FormatInt(r.ID, 10),
		Type: resource.TypeWorkflowRun,
		Name: name,
		Ref:  r.HeadBranch,
	}
	if r.WorkflowID != 0 {
		res.WorkflowID = resource.PrefixWorkflow + strconv.FormatInt(r.WorkflowID, 10)
	}
	return res
}

// Resource converts the runner; its name falls back to id.
func (r Runner) Resource() resource.Resource {
	name := r.Name
	if name == "" {
		name = strconv.FormatInt(r.ID, 10)
	}
	return resource.Resource{
		ID:   resource.PrefixRunner + strconv.FormatInt(r.ID, 10),
		Type: resource.TypeRunner,
		Name: name,
	}
}
