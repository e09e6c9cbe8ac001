package resource

import (
	"context"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/kyleking/gh-runtail/internal/rpc"
)

// Lister returns the current resource set.
type Lister interface {
	List(ctx context.Context) (*Snapshot, error)
}

// Directory fetches and caches the remote resource set.
type Directory struct {
	caller  rpc.Caller
	methods rpc.Methods
	current atomic.Pointer[Snapshot]
	logger  *log.Logger
}

// NewDirectory creates a directory that lists through caller.
func NewDirectory(caller rpc.Caller, methods rpc.Methods, logger *log.Logger) *Directory {
	if logger == nil {
		logger = log.Default()
	}
	d := &Directory{caller: caller, methods: methods, logger: logger}
	d.current.Store(NewSnapshot(nil))
	return d
}

// List fetches the full resource set and replaces the cache. On failure the
// previous snapshot stays in place and the error is returned unchanged, so an
// *rpc.Error keeps its code and message. List never retries.
func (d *Directory) List(ctx context.Context) (*Snapshot, error) {
	var resources []Resource
	if err := d.caller.Call(ctx, d.methods.List(), nil, &resources); err != nil {
		return nil, err
	}

	snap := NewSnapshot(resources)
	d.current.Store(snap)
	d.logger.Debug("resources refreshed", "total", len(resources), "workflows", len(snap.Workflows), "runs", len(snap.Runs))
	return snap, nil
}

// Current returns the most recent snapshot. It is never nil.
func (d *Directory) Current() *Snapshot {
	return d.current.Load()
}
