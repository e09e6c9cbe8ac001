package resource

import "strings"

// Type classifies a resource.
type Type string

const (
	TypeWorkflow    Type = "workflow"
	TypeWorkflowRun Type = "workflow_run"
	TypeRunner      Type = "runner"
	TypeOther       Type = "other"
)

// Id prefixes issued by the listing endpoint.
const (
	PrefixWorkflow = "wf_"
	PrefixRun      = "run_"
	PrefixRunner   = "runner_"
)

// Resource is one entry of a resource listing.
type Resource struct {
	ID   string `json:"id"`
	Type Type   `json:"type"`
	Name string `json:"name"`

	// Ref and WorkflowID are only present on runs, and only when the server
	// knows them.
	Ref        string `json:"ref,omitempty"`
	WorkflowID string `json:"workflow_id,omitempty"`
}

// Classify maps the wire type onto the known types. Anything else (runners,
// jobs from other providers) is TypeOther.
func Classify(t Type) Type {
	switch t {
	case TypeWorkflow, TypeWorkflowRun:
		return t
	default:
		return TypeOther
	}
}

// BareID returns the id with its type prefix removed. The bare value is the
// stable key used for matching and for RPC parameters.
func (r Resource) BareID() string {
	return StripPrefix(r.ID)
}

// DisplayName returns the name, or the bare id when the name is absent.
func (r Resource) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.BareID()
}

// StripPrefix removes a known type prefix. Unknown prefixes are left intact.
func StripPrefix(id string) string {
	for _, p := range []string{PrefixWorkflow, PrefixRun, PrefixRunner} {
		if strings.HasPrefix(id, p) {
			return id[len(p):]
		}
	}
	return id
}

// Snapshot is an immutable view of one listing.
type Snapshot struct {
	Resources []Resource
	Workflows []Resource
	Runs      []Resource
}

// NewSnapshot partitions resources by type.
func NewSnapshot(resources []Resource) *Snapshot {
	s := &Snapshot{Resources: resources}
	for _, r := range resources {
		switch Classify(r.Type) {
		case TypeWorkflow:
			s.Workflows = append(s.Workflows, r)
		case TypeWorkflowRun:
			s.Runs = append(s.Runs, r)
		}
	}
	return s
}

// RunIDs returns the set of bare run ids in the snapshot.
func (s *Snapshot) RunIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Runs))
	for _, r := range s.Runs {
		ids[r.BareID()] = struct{}{}
	}
	return ids
}
