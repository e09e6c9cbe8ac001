package github

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/cli/go-gh/v2/pkg/api"

	"github.com/kyleking/gh-runtail/internal/exec"
	"github.com/kyleking/gh-runtail/internal/resource"
)

type stubResponse struct {
	status      int
	contentType string
	body        []byte
}

// stubTransport answers requests by "METHOD path".
type stubTransport struct {
	mu        sync.Mutex
	responses map[string]stubResponse
	requests  []*http.Request
	bodies    map[string]string
}

func newStubTransport() *stubTransport {
	return &stubTransport{responses: map[string]stubResponse{}, bodies: map[string]string{}}
}

func (s *stubTransport) on(method, path string, status int, body string) {
	s.responses[method+" "+path] = stubResponse{status: status, contentType: "application/json", body: []byte(body)}
}

// onArchive serves body as a zip download, the way the run logs endpoint does.
func (s *stubTransport) onArchive(path string, body []byte) {
	s.responses["GET "+path] = stubResponse{status: http.StatusOK, contentType: "application/zip", body: body}
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := req.Method + " " + req.URL.Path
	s.requests = append(s.requests, req)
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		s.bodies[key] = string(data)
	}
	resp, ok := s.responses[key]
	if !ok {
		resp = stubResponse{status: http.StatusNotFound, contentType: "application/json", body: []byte(`{"message":"Not Found"}`)}
	}
	return &http.Response{
		StatusCode: resp.status,
		Header:     http.Header{"Content-Type": []string{resp.contentType}},
		Body:       io.NopCloser(bytes.NewReader(resp.body)),
		Request:    req,
	}, nil
}

func newTestClient(t *testing.T, tr *stubTransport) *Client {
	t.Helper()
	c, err := NewClient(Options{Token: "test-token", Host: "github.com", Owner: "octo", Repo: "demo", Transport: tr})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_RequiresRepo(t *testing.T) {
	if _, err := NewClient(Options{Token: "x", Owner: "octo"}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("got %v, want ErrNotConfigured", err)
	}
}

func TestClient_ListResources(t *testing.T) {
	tr := newStubTransport()
	tr.on("GET", "/repos/octo/demo/actions/workflows", 200, `{"total_count":2,"workflows":[{"id":42,"name":"CI","path":".github/workflows/ci.yml"},{"id":43,"name":"","path":".github/workflows/nightly.yml"}]}`)
	tr.on("GET", "/repos/octo/demo/actions/runs", 200, `{"total_count":2,"workflow_runs":[{"id":1001,"name":"CI","workflow_id":42,"head_branch":"main","status":"in_progress"},{"id":1002,"name":"","head_branch":"dev"}]}`)
	tr.on("GET", "/repos/octo/demo/actions/runners", 200, `{"total_count":1,"runners":[{"id":5,"name":"","os":"linux","status":"online"}]}`)

	got, err := newTestClient(t, tr).ListResources(context.Background())
	if err != nil {
		t.Fatalf("ListResources: %v", err)
	}

	want := []resource.Resource{
		{ID: "wf_42", Type: resource.TypeWorkflow, Name: "CI"},
		{ID: "wf_43", Type: resource.TypeWorkflow, Name: ".github/workflows/nightly.yml"},
		{ID: "run_1001", Type: resource.TypeWorkflowRun, Name: "CI", Ref: "main", WorkflowID: "wf_42"},
		{ID: "run_1002", Type: resource.TypeWorkflowRun, Name: "dev", Ref: "dev"},
		{ID: "runner_5", Type: resource.TypeRunner, Name: "5"},
	}
	if !slices.Equal(got, want) {
		t.Errorf("resources:\n got  %+v\n want %+v", got, want)
	}
}

func TestClient_ListResourcesError(t *testing.T) {
	tr := newStubTransport()
	tr.on("GET", "/repos/octo/demo/actions/workflows", 200, `{"workflows":[]}`)
	tr.on("GET", "/repos/octo/demo/actions/runs", 200, `{"workflow_runs":[]}`)
	tr.on("GET", "/repos/octo/demo/actions/runners", 403, `{"message":"Resource not accessible by integration"}`)

	_, err := newTestClient(t, tr).ListResources(context.Background())
	var httpErr *api.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 403 {
		t.Errorf("got %v, want a 403 HTTPError", err)
	}
}

func TestClient_Dispatch(t *testing.T) {
	tr := newStubTransport()
	tr.on("POST", "/repos/octo/demo/actions/workflows/42/dispatches", 204, "")

	if err := newTestClient(t, tr).Dispatch(context.Background(), 42, "main", nil); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	body := tr.bodies["POST /repos/octo/demo/actions/workflows/42/dispatches"]
	if body != `{"inputs":{},"ref":"main"}` {
		t.Errorf("body: got %s", body)
	}
	if auth := tr.requests[0].Header.Get("Authorization"); auth != "token test-token" {
		t.Errorf("Authorization: got %q", auth)
	}
}

func TestClient_CancelRerun(t *testing.T) {
	tr := newStubTransport()
	tr.on("POST", "/repos/octo/demo/actions/runs/7/cancel", 202, "{}")
	tr.on("POST", "/repos/octo/demo/actions/runs/7/rerun", 201, "{}")
	c := newTestClient(t, tr)

	if err := c.CancelRun(context.Background(), 7); err != nil {
		t.Errorf("CancelRun: %v", err)
	}
	if err := c.RerunRun(context.Background(), 7); err != nil {
		t.Errorf("RerunRun: %v", err)
	}
	if err := c.RerunRun(context.Background(), 8); err == nil {
		t.Error("expected an error for an unknown run")
	}
}

func TestClient_Verify(t *testing.T) {
	tr := newStubTransport()
	tr.on("GET", "/repos/octo/demo", 200, `{}`)
	tr.on("GET", "/repos/octo/demo/actions/workflows", 200, `{}`)
	tr.on("GET", "/repos/octo/demo/actions/runs", 403, `{"message":"forbidden"}`)

	err := newTestClient(t, tr).Verify(context.Background())
	if err == nil || !strings.Contains(err.Error(), "runs endpoint forbidden") {
		t.Errorf("Verify: got %v", err)
	}
}

func zipArchive(t *testing.T, files map[string]string, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestClient_RunLogLines(t *testing.T) {
	archive := zipArchive(t, map[string]string{
		"0_build.txt":      "compiling  \r\ndone\n",
		"build/1_Setup.txt": "setup ok\n",
	}, []string{"0_build.txt", "build/1_Setup.txt"})

	tr := newStubTransport()
	tr.onArchive("/repos/octo/demo/actions/runs/9/logs", archive)

	got, err := newTestClient(t, tr).RunLogLines(context.Background(), 9)
	if err != nil {
		t.Fatalf("RunLogLines: %v", err)
	}
	want := []string{"[0_build.txt] compiling", "[0_build.txt] done", "[build/1_Setup.txt] setup ok"}
	if !slices.Equal(got, want) {
		t.Errorf("lines: got %q, want %q", got, want)
	}
}

func TestClient_RunLogLinesGone(t *testing.T) {
	tr := newStubTransport()
	tr.on("GET", "/repos/octo/demo/actions/runs/9/logs", 410, `{"message":"Gone"}`)

	_, err := newTestClient(t, tr).RunLogLines(context.Background(), 9)
	var httpErr *api.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 410 {
		t.Errorf("got %v, want a 410 HTTPError", err)
	}
}

func TestArchiveLines_PlainText(t *testing.T) {
	got, err := ArchiveLines([]byte("line one\nline two\n"))
	if err != nil {
		t.Fatalf("ArchiveLines: %v", err)
	}
	if !slices.Equal(got, []string{"line one", "line two"}) {
		t.Errorf("lines: got %q", got)
	}
}

func TestWorkflowRun_Resource(t *testing.T) {
	tests := []struct {
		name string
		run  WorkflowRun
		want string
	}{
		{"name", WorkflowRun{ID: 1, Name: "CI", HeadBranch: "main"}, "CI"},
		{"branch fallback", WorkflowRun{ID: 1, HeadBranch: "main"}, "main"},
		{"id fallback", WorkflowRun{ID: 1}, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.run.Resource().Name; got != tt.want {
				t.Errorf("name: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWorkflowRun_Status(t *testing.T) {
	if !(WorkflowRun{Status: StatusQueued}).IsActive() {
		t.Error("queued run should be active")
	}
	if !(WorkflowRun{Status: StatusCompleted, Conclusion: ConclusionSuccess}).IsSuccess() {
		t.Error("completed successful run should be a success")
	}
	if (WorkflowRun{Status: StatusCompleted, Conclusion: ConclusionFailure}).IsSuccess() {
		t.Error("failed run is not a success")
	}
}

func TestCLILogs(t *testing.T) {
	mock := exec.NewMockExecutor()
	mock.AddGHRunLog(11, "octo/demo", "build\tSet up job\t2024-01-01T00:00:00Z Runner\nbuild\tRun make\tok\r\n\nstray line\n")
	mock.AddGHRunLogError(12, "octo/demo", "HTTP 404", errors.New("exit status 1"))
	c := NewCLILogs(mock, "octo/demo")

	got, err := c.RunLogLines(context.Background(), 11)
	if err != nil {
		t.Fatalf("RunLogLines: %v", err)
	}
	want := []string{"[build/Set up job] 2024-01-01T00:00:00Z Runner", "[build/Run make] ok", "stray line"}
	if !slices.Equal(got, want) {
		t.Errorf("lines: got %q, want %q", got, want)
	}

	if _, err := c.RunLogLines(context.Background(), 12); err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("expected stderr in error, got %v", err)
	}
}
