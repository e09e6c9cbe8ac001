package poller

import "github.com/kyleking/gh-runtail/internal/resource"

// MatchFunc reports whether run is the one produced by triggering workflowID
// on ref.
type MatchFunc func(run resource.Resource, workflowID, ref string) bool

// DefaultMatch accepts a run when any of these hold:
//   - its ref equals ref (the name stands in for the ref when the listing
//     does not report one, since names fall back to the head branch)
//   - it has no name
//   - it belongs to workflowID
//
// With several runs of one workflow in flight it picks whichever candidate is
// listed first, which may belong to somebody else's trigger. NewRunsOnly
// narrows it.
func DefaultMatch(run resource.Resource, workflowID, ref string) bool {
	runRef := run.Ref
	if runRef == "" {
		runRef = run.Name
	}
	if ref != "" && runRef == ref {
		return true
	}
	if run.Name == "" {
		return true
	}
	return workflowID != "" && resource.StripPrefix(run.WorkflowID) == workflowID
}

// NewRunsOnly wraps match so runs whose bare id is in known are never
// accepted. Pass the run ids listed just before the trigger.
func NewRunsOnly(known map[string]struct{}, match MatchFunc) MatchFunc {
	return func(run resource.Resource, workflowID, ref string) bool {
		if _, seen := known[run.BareID()]; seen {
			return false
		}
		return match(run, workflowID, ref)
	}
}
