package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/cli/go-gh/v2/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/kyleking/gh-runtail/internal/resource"
)

// DefaultHost is used when no host is configured.
const DefaultHost = "github.com"

// ErrNotConfigured is returned when the owner or repository is missing.
var ErrNotConfigured = errors.New("github owner and repo must be configured")

// Options configures a Client. An empty Token is resolved the way the gh CLI
// does (GH_TOKEN, GITHUB_TOKEN, then the gh config).
type Options struct {
	Token     string
	Host      string
	Owner     string
	Repo      string
	Transport http.RoundTripper
	Logger    *log.Logger
}

// Client calls the Actions endpoints of one repository.
type Client struct {
	rest   *api.RESTClient
	owner  string
	repo   string
	logger *log.Logger
}

// NewClient creates a client for opts.Owner/opts.Repo.
func NewClient(opts Options) (*Client, error) {
	if opts.Owner == "" || opts.Repo == "" {
		return nil, ErrNotConfigured
	}
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	rest, err := api.NewRESTClient(api.ClientOptions{
		AuthToken: opts.Token,
		Host:      opts.Host,
		Transport: opts.Transport,
		Headers:   map[string]string{"Accept": "application/vnd.github+json"},
	})
	if err != nil {
		return nil, fmt.Errorf("create github client: %w", err)
	}
	return &Client{rest: rest, owner: opts.Owner, repo: opts.Repo, logger: opts.Logger}, nil
}

// Repo returns the repository as owner/name.
func (c *Client) Repo() string { return c.owner + "/" + c.repo }

func (c *Client) path(format string, args ...any) string {
	return fmt.Sprintf("repos/%s/%s/", c.owner, c.repo) + fmt.Sprintf(format, args...)
}

// Verify checks that the repository and its Actions endpoints are reachable
// with the configured token.
func (c *Client) Verify(ctx context.Context) error {
	endpoints := []struct{ name, path string }{
		{"repo", fmt.Sprintf("repos/%s/%s", c.owner, c.repo)},
		{"workflows", c.path("actions/workflows")},
		{"runs", c.path("actions/runs")},
		{"runners", c.path("actions/runners")},
	}
	for _, ep := range endpoints {
		var discard json.RawMessage
		if err := c.rest.DoWithContext(ctx, http.MethodGet, ep.path, nil, &discard); err != nil {
			var httpErr *api.HTTPError
			if errors.As(err, &httpErr) {
				switch httpErr.StatusCode {
				case http.StatusForbidden:
					return fmt.Errorf("github %s endpoint forbidden (403), check token permissions: %w", ep.name, err)
				case http.StatusNotFound:
					return fmt.Errorf("github %s endpoint not found (404), check repo name and visibility: %w", ep.name, err)
				}
			}
			return fmt.Errorf("github %s endpoint: %w", ep.name, err)
		}
	}
	return nil
}

// ListWorkflows returns the repository's workflows.
func (c *Client) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	var resp WorkflowsResponse
	if err := c.rest.DoWithContext(ctx, http.MethodGet, c.path("actions/workflows"), nil, &resp); err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	return resp.Workflows, nil
}

// ListRuns returns the most recent workflow runs.
func (c *Client) ListRuns(ctx context.Context) ([]WorkflowRun, error) {
	var resp RunsResponse
	if err := c.rest.DoWithContext(ctx, http.MethodGet, c.path("actions/runs"), nil, &resp); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return resp.WorkflowRuns, nil
}

// ListRunners returns the self-hosted runners.
func (c *Client) ListRunners(ctx context.Context) ([]Runner, error) {
	var resp RunnersResponse
	if err := c.rest.DoWithContext(ctx, http.MethodGet, c.path("actions/runners"), nil, &resp); err != nil {
		return nil, fmt.Errorf("list runners: %w", err)
	}
	return resp.Runners, nil
}

// ListResources fetches workflows, runs and runners concurrently and returns
// them as one listing in that order.
func (c *Client) ListResources(ctx context.Context) ([]resource.Resource, error) {
	var (
		workflows []Workflow
		runs      []WorkflowRun
		runners   []Runner
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		workflows, err = c.ListWorkflows(ctx)
		return err
	})
	g.Go(func() (err error) {
		runs, err = c.ListRuns(ctx)
		return err
	})
	g.Go(func() (err error) {
		runners, err = c.ListRunners(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resources := make([]resource.Resource, 0, len(workflows)+len(runs)+len(runners))
	for _, w := range workflows {
		resources = append(resources, w.Resource())
	}
	for _, r := range runs {
		resources = append(resources, r.Resource())
	}
	for _, r := range runners {
		resources = append(resources, r.Resource())
	}
	c.logger.Debug("listed github resources", "workflows", len(workflows), "runs", len(runs), "runners", len(runners))
	return resources, nil
}

// Dispatch triggers a workflow_dispatch event for workflowID on ref.
func (c *Client) Dispatch(ctx context.Context, workflowID int64, ref string, inputs map[string]string) error {
	if inputs == nil {
		inputs = map[string]string{}
	}
	body, err := json.Marshal(map[string]any{"ref": ref, "inputs": inputs})
	if err != nil {
		return fmt.Errorf("encode dispatch: %w", err)
	}
	path := c.path("actions/workflows/%d/dispatches", workflowID)
	if err := c.post(ctx, path, bytes.NewReader(body)); err != nil {
		return fmt.Errorf("trigger workflow %d: %w", workflowID, err)
	}
	c.logger.Info("dispatched workflow", "workflow", workflowID, "ref", ref)
	return nil
}

// CancelRun cancels a queued or running run.
func (c *Client) CancelRun(ctx context.Context, runID int64) error {
	if err := c.post(ctx, c.path("actions/runs/%d/cancel", runID), nil); err != nil {
		return fmt.Errorf("cancel run %d: %w", runID, err)
	}
	return nil
}

// RerunRun re-runs a completed run.
func (c *Client) RerunRun(ctx context.Context, runID int64) error {
	if err := c.post(ctx, c.path("actions/runs/%d/rerun", runID), nil); err != nil {
		return fmt.Errorf("rerun run %d: %w", runID, err)
	}
	return nil
}

// post sends a request whose response body, if any, is not needed.
func (c *Client) post(ctx context.Context, path string, body io.Reader) error {
	resp, err := c.rest.RequestWithContext(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// DownloadLogs returns the log archive of a run.
func (c *Client) DownloadLogs(ctx context.Context, runID int64) ([]byte, error) {
	resp, err := c.rest.RequestWithContext(ctx, http.MethodGet, c.path("actions/runs/%d/logs", runID), nil)
	if err != nil {
		return nil, fmt.Errorf("download logs of run %d: %w", runID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read logs of run %d: %w", runID, err)
	}
	return data, nil
}

// RunLogLines downloads the logs of a run and flattens them into
// "[file] line" lines.
func (c *Client) RunLogLines(ctx context.Context, runID int64) ([]string, error) {
	data, err := c.DownloadLogs(ctx, runID)
	if err != nil {
		return nil, err
	}
	return ArchiveLines(data)
}
