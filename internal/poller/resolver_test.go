package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kyleking/gh-runtail/internal/resource"
)

// scriptedLister returns one scripted listing per call and repeats the last.
type scriptedLister struct {
	rounds []func() (*resource.Snapshot, error)
	calls  int
}

func (s *scriptedLister) List(context.Context) (*resource.Snapshot, error) {
	i := s.calls
	if i >= len(s.rounds) {
		i = len(s.rounds) - 1
	}
	s.calls++
	return s.rounds[i]()
}

func runs(rs ...resource.Resource) func() (*resource.Snapshot, error) {
	return func() (*resource.Snapshot, error) {
		return resource.NewSnapshot(rs), nil
	}
}

func failing(err error) func() (*resource.Snapshot, error) {
	return func() (*resource.Snapshot, error) { return nil, err }
}

func TestDefaultMatch(t *testing.T) {
	tests := []struct {
		name string
		run  resource.Resource
		want bool
	}{
		{"same ref", resource.Resource{ID: "run_1", Name: "CI", Ref: "main"}, true},
		{"name stands in for ref", resource.Resource{ID: "run_1", Name: "main"}, true},
		{"missing name", resource.Resource{ID: "run_1", Ref: "other"}, true},
		{"same workflow", resource.Resource{ID: "run_1", Name: "CI", Ref: "dev", WorkflowID: "42"}, true},
		{"same workflow with prefix", resource.Resource{ID: "run_1", Name: "CI", Ref: "dev", WorkflowID: "wf_42"}, true},
		{"nothing in common", resource.Resource{ID: "run_1", Name: "CI", Ref: "dev", WorkflowID: "7"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultMatch(tt.run, "42", "main"); got != tt.want {
				t.Errorf("DefaultMatch(%+v) = %v, want %v", tt.run, got, tt.want)
			}
		})
	}
}

func TestNewRunsOnly(t *testing.T) {
	known := map[string]struct{}{"1": {}}
	match := NewRunsOnly(known, DefaultMatch)

	if match(resource.Resource{ID: "run_1", Ref: "main", Name: "CI"}, "42", "main") {
		t.Error("known run must be rejected")
	}
	if !match(resource.Resource{ID: "run_2", Ref: "main", Name: "CI"}, "42", "main") {
		t.Error("new matching run must be accepted")
	}
}

func TestResolver_StopsEarlyOnMatch(t *testing.T) {
	unrelated := resource.Resource{ID: "run_5", Type: resource.TypeWorkflowRun, Name: "Lint", Ref: "dev", WorkflowID: "9"}
	target := resource.Resource{ID: "run_77", Type: resource.TypeWorkflowRun, Name: "CI", Ref: "main", WorkflowID: "42"}
	lister := &scriptedLister{rounds: []func() (*resource.Snapshot, error){
		runs(unrelated),
		runs(unrelated),
		runs(unrelated, target),
	}}

	var attempts []int
	r := NewResolver(lister, time.Millisecond, 20, nil)
	r.OnAttempt = func(attempt, budget int) {
		attempts = append(attempts, attempt)
		if budget != 20 {
			t.Errorf("budget: got %d, want 20", budget)
		}
	}

	runID, err := r.Resolve(context.Background(), "42", "main", nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if runID != "77" {
		t.Errorf("run id: got %q, want %q", runID, "77")
	}
	if lister.calls != 3 {
		t.Errorf("listing calls: got %d, want 3", lister.calls)
	}
	if len(attempts) != 3 || attempts[2] != 3 {
		t.Errorf("attempts: got %v", attempts)
	}
}

func TestResolver_TimeoutAfterBudget(t *testing.T) {
	lister := &scriptedLister{rounds: []func() (*resource.Snapshot, error){
		runs(resource.Resource{ID: "run_5", Type: resource.TypeWorkflowRun, Name: "Lint", Ref: "dev"}),
	}}

	r := NewResolver(lister, time.Millisecond, 20, nil)
	_, err := r.Resolve(context.Background(), "42", "main", nil)

	if !errors.Is(err, ErrResolutionTimeout) {
		t.Fatalf("expected ErrResolutionTimeout, got %v", err)
	}
	if lister.calls != 20 {
		t.Errorf("listing calls: got %d, want 20", lister.calls)
	}
}

func TestResolver_ListingErrorsAreNotFatal(t *testing.T) {
	boom := errors.New("connection refused")
	lister := &scriptedLister{rounds: []func() (*resource.Snapshot, error){
		failing(boom),
		failing(boom),
		runs(resource.Resource{ID: "run_8", Type: resource.TypeWorkflowRun, Name: "CI", Ref: "main"}),
	}}

	r := NewResolver(lister, time.Millisecond, 5, nil)
	runID, err := r.Resolve(context.Background(), "42", "main", nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if runID != "8" {
		t.Errorf("run id: got %q, want %q", runID, "8")
	}
}

func TestResolver_ListingErrorsUntilBudget(t *testing.T) {
	lister := &scriptedLister{rounds: []func() (*resource.Snapshot, error){
		failing(errors.New("boom")),
	}}

	r := NewResolver(lister, time.Millisecond, 4, nil)
	_, err := r.Resolve(context.Background(), "42", "main", nil)
	if !errors.Is(err, ErrResolutionTimeout) {
		t.Fatalf("expected ErrResolutionTimeout, got %v", err)
	}
	if lister.calls != 4 {
		t.Errorf("listing calls: got %d, want 4", lister.calls)
	}
}

func TestResolver_Cancelled(t *testing.T) {
	lister := &scriptedLister{rounds: []func() (*resource.Snapshot, error){runs()}}

	ctx, cancel := context.WithCancel(context.Background())
	r := NewResolver(lister, time.Hour, 20, nil)
	r.OnAttempt = func(attempt, _ int) {
		if attempt == 1 {
			cancel()
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx, "42", "main", nil)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Resolve did not stop after cancellation")
	}
}

func TestNewResolver_Defaults(t *testing.T) {
	r := NewResolver(&scriptedLister{}, 0, 0, nil)
	if r.interval != DefaultInterval {
		t.Errorf("interval: got %v, want %v", r.interval, DefaultInterval)
	}
	if r.attempts != DefaultAttempts {
		t.Errorf("attempts: got %d, want %d", r.attempts, DefaultAttempts)
	}
}
