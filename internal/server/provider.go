package server

import (
	"context"

	"github.com/kyleking/gh-runtail/internal/resource"
)

// Provider is a CI backend exposed under one method namespace.
type Provider interface {
	ListResources(ctx context.Context) ([]resource.Resource, error)
	Dispatch(ctx context.Context, workflowID int64, ref string, inputs map[string]string) error
	CancelRun(ctx context.Context, runID int64) error
	RerunRun(ctx context.Context, runID int64) error
	RunLogLines(ctx context.Context, runID int64) ([]string, error)
}

// LogLiner reads the complete log of a run as "[label] line" lines.
type LogLiner interface {
	RunLogLines(ctx context.Context, runID int64) ([]string, error)
}

// WithLogs replaces the log source of p.
func WithLogs(p Provider, logs LogLiner) Provider {
	return &logOverride{Provider: p, logs: logs}
}

type logOverride struct {
	Provider
	logs LogLiner
}

func (o *logOverride) RunLogLines(ctx context.Context, runID int64) ([]string, error) {
	return o.logs.RunLogLines(ctx, runID)
}
