package resource

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kyleking/gh-runtail/internal/rpc"
)

// fakeCaller replays a canned JSON result or error.
type fakeCaller struct {
	result  string
	err     error
	methods []string
}

func (f *fakeCaller) Call(_ context.Context, method string, _, result any) error {
	f.methods = append(f.methods, method)
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.result), result)
}

func TestStripPrefix(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"wf_123", "123"},
		{"run_456", "456"},
		{"runner_9", "9"},
		{"789", "789"},
		{"job_1", "job_1"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := StripPrefix(tt.id); got != tt.want {
			t.Errorf("StripPrefix(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestResource_DisplayName(t *testing.T) {
	named := Resource{ID: "run_5", Name: "CI"}
	if named.DisplayName() != "CI" {
		t.Errorf("named: got %q", named.DisplayName())
	}

	unnamed := Resource{ID: "run_5"}
	if unnamed.DisplayName() != "5" {
		t.Errorf("unnamed: got %q, want %q", unnamed.DisplayName(), "5")
	}
}

func TestDirectory_ListPartitions(t *testing.T) {
	caller := &fakeCaller{result: `[
		{"id":"wf_1","type":"workflow","name":"CI"},
		{"id":"run_10","type":"workflow_run","name":"main","ref":"main","workflow_id":"1"},
		{"id":"runner_3","type":"runner","name":"self-hosted"},
		{"id":"wf_2","type":"workflow","name":"Deploy"}
	]`}
	dir := NewDirectory(caller, rpc.Methods{Namespace: "github"}, nil)

	snap, err := dir.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(snap.Resources) != 4 {
		t.Errorf("resources: got %d, want 4", len(snap.Resources))
	}
	if len(snap.Workflows) != 2 {
		t.Errorf("workflows: got %d, want 2", len(snap.Workflows))
	}
	if len(snap.Runs) != 1 {
		t.Fatalf("runs: got %d, want 1", len(snap.Runs))
	}
	if snap.Runs[0].Ref != "main" || snap.Runs[0].WorkflowID != "1" {
		t.Errorf("run fields not decoded: %+v", snap.Runs[0])
	}
	if caller.methods[0] != "github/resources/list" {
		t.Errorf("method: got %q", caller.methods[0])
	}
	if dir.Current() != snap {
		t.Error("Current should return the latest snapshot")
	}
}

func TestDirectory_ListReplacesNotMerges(t *testing.T) {
	caller := &fakeCaller{result: `[{"id":"run_1","type":"workflow_run"},{"id":"run_2","type":"workflow_run"}]`}
	dir := NewDirectory(caller, rpc.Methods{}, nil)
	if _, err := dir.List(context.Background()); err != nil {
		t.Fatalf("List failed: %v", err)
	}

	caller.result = `[{"id":"run_3","type":"workflow_run"}]`
	snap, err := dir.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(snap.Runs) != 1 || snap.Runs[0].BareID() != "3" {
		t.Errorf("expected only run 3 after refresh, got %+v", snap.Runs)
	}
}

func TestDirectory_ListErrorKeepsCache(t *testing.T) {
	caller := &fakeCaller{result: `[{"id":"wf_1","type":"workflow","name":"CI"}]`}
	dir := NewDirectory(caller, rpc.Methods{}, nil)
	if _, err := dir.List(context.Background()); err != nil {
		t.Fatalf("List failed: %v", err)
	}

	caller.err = rpc.NewError(rpc.CodeInternalError, "GitHub API error: 502")
	_, err := dir.List(context.Background())

	var rpcErr *rpc.Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *rpc.Error, got %v", err)
	}
	if rpcErr.Message != "GitHub API error: 502" {
		t.Errorf("message: got %q", rpcErr.Message)
	}
	if len(dir.Current().Workflows) != 1 {
		t.Error("failed refresh must not clear the cached snapshot")
	}
}

func TestDirectory_CurrentNeverNil(t *testing.T) {
	dir := NewDirectory(&fakeCaller{}, rpc.Methods{}, nil)
	if dir.Current() == nil {
		t.Fatal("expected empty snapshot before first listing")
	}
	if len(dir.Current().Resources) != 0 {
		t.Error("expected no resources before first listing")
	}
}
