// Package engine ties resource discovery, run resolution and log streaming
// into one object driven by the presentation layer.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kyleking/gh-runtail/internal/frecency"
	"github.com/kyleking/gh-runtail/internal/logs"
	"github.com/kyleking/gh-runtail/internal/poller"
	"github.com/kyleking/gh-runtail/internal/resource"
	"github.com/kyleking/gh-runtail/internal/rpc"
)

// Options configures an Engine. Caller and Source are required.
type Options struct {
	Caller  rpc.Caller
	Methods rpc.Methods
	Source  logs.Source

	Observer Observer
	Logger   *log.Logger

	PollInterval time.Duration
	PollAttempts int
	// Match overrides poller.DefaultMatch.
	Match poller.MatchFunc
	// NewRunsOnly ignores runs that were listed before the trigger.
	NewRunsOnly bool

	// History, when set, records every successful trigger.
	History History
}

// History records triggered refs and the runs they resolved to.
// *frecency.Store implements it.
type History interface {
	Record(key, workflowID, ref string, at time.Time)
	SetLastRun(key, workflowID, ref, runID string)
}

var _ History = (*frecency.Store)(nil)

// Engine holds the resource cache, the active stream session and the view
// filters. All methods are safe for concurrent use.
type Engine struct {
	caller      rpc.Caller
	methods     rpc.Methods
	directory   *resource.Directory
	streamer    *logs.LogStreamer
	index       *logs.Index
	observer    Observer
	logger      *log.Logger
	interval    time.Duration
	attempts    int
	match       poller.MatchFunc
	newRunsOnly bool
	history     History

	// base outlives individual requests; Close cancels it.
	base      context.Context
	closeBase context.CancelFunc

	// startMu orders session starts and resolve supersession so a resolve
	// that finishes late cannot replace a newer session or request. Nothing
	// under it waits on the network or the disk.
	startMu sync.Mutex

	mu            sync.Mutex
	runID         string
	resolveToken  uint64
	resolveCancel context.CancelFunc
	resolving     bool
	resolveErr    error
	session       *logs.Session
	changed       chan struct{}

	// deliver keeps observer calls in the order their state was computed.
	deliver sync.Mutex
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Match == nil {
		opts.Match = poller.DefaultMatch
	}

	base, cancel := context.WithCancel(context.Background())
	e := &Engine{
		caller:      opts.Caller,
		methods:     opts.Methods,
		directory:   resource.NewDirectory(opts.Caller, opts.Methods, opts.Logger),
		index:       logs.NewIndex(),
		observer:    opts.Observer,
		logger:      opts.Logger,
		interval:    opts.PollInterval,
		attempts:    opts.PollAttempts,
		match:       opts.Match,
		newRunsOnly: opts.NewRunsOnly,
		history:     opts.History,
		base:        base,
		closeBase:   cancel,
		changed:     make(chan struct{}),
	}
	fetcher := &batchFetcher{caller: opts.Caller, methods: opts.Methods}
	e.streamer = logs.NewLogStreamer(opts.Source, fetcher, e.handleUpdate, opts.Logger)
	return e
}

// Directory returns the resource cache.
func (e *Engine) Directory() *resource.Directory { return e.directory }

// Methods returns the RPC method names in use.
func (e *Engine) Methods() rpc.Methods { return e.methods }

// RefreshResources reloads the resource listing.
func (e *Engine) RefreshResources(ctx context.Context) ([]resource.Resource, error) {
	e.status("Loading resources...", false)
	snap, err := e.directory.List(ctx)
	if err != nil {
		e.status("Error: "+errorMessage(err), true)
		return nil, err
	}

	e.deliver.Lock()
	e.observer.OnResourcesUpdated(snap.Resources)
	e.observer.OnStatusChange(fmt.Sprintf("Resources loaded: %d workflows, %d runs.", len(snap.Workflows), len(snap.Runs)), false)
	e.deliver.Unlock()
	return snap.Resources, nil
}

// Trigger dispatches workflowID on ref and returns the server's result
// verbatim.
func (e *Engine) Trigger(ctx context.Context, workflowID, ref string, inputs map[string]string) (json.RawMessage, error) {
	id, err := ParseID("workflow id", workflowID)
	if err != nil {
		e.status(err.Error(), true)
		return nil, err
	}
	if ref == "" {
		err := &ValidationError{Field: "ref"}
		e.status(err.Error(), true)
		return nil, err
	}

	e.status("Triggering workflow...", false)
	var result json.RawMessage
	params := rpc.ExecuteParams{Action: rpc.ActionTriggerWorkflow, WorkflowID: id, Ref: ref, Inputs: inputs}
	if err := e.caller.Call(ctx, e.methods.Execute(), params, &result); err != nil {
		e.status("Error: "+errorMessage(err), true)
		return nil, err
	}

	if e.history != nil {
		e.history.Record(e.methods.Namespace, workflowID, ref, time.Now())
	}
	e.logger.Info("workflow triggered", "workflow", workflowID, "ref", ref)
	e.status("Workflow triggered.", false)
	return result, nil
}

// TriggerAndFollow triggers workflowID on ref, then resolves the run it
// produced in the background and streams its logs. The trigger result is
// returned as soon as the dispatch succeeds; use Wait to block until the
// logs are complete.
func (e *Engine) TriggerAndFollow(ctx context.Context, workflowID, ref string, inputs map[string]string) (json.RawMessage, error) {
	if _, err := ParseID("workflow id", workflowID); err != nil {
		e.status(err.Error(), true)
		return nil, err
	}

	match := e.match
	if e.newRunsOnly {
		known := e.directory.Current().RunIDs()
		if snap, err := e.directory.List(ctx); err == nil {
			known = snap.RunIDs()
		}
		match = poller.NewRunsOnly(known, match)
	}

	result, err := e.Trigger(ctx, workflowID, ref, inputs)
	if err != nil {
		return nil, err
	}
	e.follow(workflowID, ref, match)
	return result, nil
}

// follow starts the resolve loop, superseding any loop still running. A
// resolve that is already starting its session finishes before the token
// moves on.
func (e *Engine) follow(workflowID, ref string, match poller.MatchFunc) {
	e.startMu.Lock()
	defer e.startMu.Unlock()
	e.mu.Lock()
	if e.resolveCancel != nil {
		e.resolveCancel()
	}
	e.resolveToken++
	token := e.resolveToken
	ctx, cancel := context.WithCancel(e.base)
	e.resolveCancel = cancel
	e.resolving = true
	e.resolveErr = nil
	e.signalLocked()
	e.mu.Unlock()

	resolver := poller.NewResolver(e.directory, e.interval, e.attempts, e.logger)
	resolver.OnAttempt = func(attempt, budget int) {
		if e.resolveCurrent(token) {
			e.status(fmt.Sprintf("Waiting for run to appear (attempt %d/%d)...", attempt, budget), false)
		}
	}

	go func() {
		defer cancel()
		runID, err := resolver.Resolve(ctx, workflowID, ref, match)
		if !e.startResolved(token, workflowID, runID, err) {
			return
		}
		if e.history != nil {
			e.history.SetLastRun(e.methods.Namespace, workflowID, ref, runID)
		}

		e.mu.Lock()
		if token == e.resolveToken {
			e.resolving = false
			e.resolveCancel = nil
		}
		e.signalLocked()
		e.mu.Unlock()
	}()
}

// startResolved publishes a failed resolve, or starts the resolved run's
// session. It reports whether a session was started; the resolve then stays
// pending until the caller marks it done.
func (e *Engine) startResolved(token uint64, workflowID, runID string, err error) bool {
	e.startMu.Lock()
	defer e.startMu.Unlock()

	e.mu.Lock()
	if token != e.resolveToken {
		e.mu.Unlock()
		e.logger.Debug("dropping result of superseded resolve", "workflow", workflowID, "run", runID)
		return false
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		e.resolving = false
		e.resolveCancel = nil
		e.resolveErr = err
		e.signalLocked()
		e.mu.Unlock()
		if err != nil {
			e.status("Error: "+err.Error(), true)
		}
		return false
	}
	e.mu.Unlock()

	e.streamer.Start(e.base, runID)
	return true
}

func (e *Engine) resolveCurrent(token uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return token == e.resolveToken && e.resolving
}

// Watch streams the logs of runID, superseding any session or pending
// resolve.
func (e *Engine) Watch(runID string) error {
	if _, err := ParseID("run id", runID); err != nil {
		e.status(err.Error(), true)
		return err
	}
	e.startMu.Lock()
	defer e.startMu.Unlock()
	e.cancelResolve()
	e.streamer.Start(e.base, runID)
	return nil
}

func (e *Engine) cancelResolve() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resolveCancel != nil {
		e.resolveCancel()
		e.resolveCancel = nil
	}
	e.resolveToken++
	e.resolving = false
	e.resolveErr = nil
	e.signalLocked()
}

// handleUpdate applies a stream session change to the view. It runs outside
// the streamer's lock, so a session superseded in the meantime is dropped
// here.
func (e *Engine) handleUpdate(u logs.Update) {
	e.mu.Lock()
	if u.Session.Token != e.streamer.Token() {
		e.mu.Unlock()
		return
	}
	sess := u.Session
	e.runID = sess.RunID
	labelsChanged := e.index.SetRecords(sess.Records)
	view := e.index.View()
	labels := e.index.Labels()

	e.deliver.Lock()
	e.mu.Unlock()

	e.observer.OnViewUpdated(view)
	if labelsChanged {
		e.observer.OnLabelsUpdated(labels)
	}
	if msg, isError, ok := sessionStatus(sess); ok {
		e.observer.OnStatusChange(msg, isError)
	}
	e.deliver.Unlock()

	// Published only after the observer has seen it, so Wait returns with
	// the presentation side up to date.
	e.mu.Lock()
	if sess.Token == e.streamer.Token() {
		e.session = &sess
		e.signalLocked()
	}
	e.mu.Unlock()
}

func sessionStatus(sess logs.Session) (msg string, isError bool, ok bool) {
	switch sess.Status {
	case logs.StatusStreaming:
		if len(sess.Records) == 0 {
			return fmt.Sprintf("Streaming logs for run %s...", sess.RunID), false, true
		}
		return "", false, false
	case logs.StatusStreamedEmpty:
		return "Log stream ended without data.", false, true
	case logs.StatusFetchingFallback:
		return fmt.Sprintf("Fetching logs for run %s...", sess.RunID), false, true
	case logs.StatusDone:
		return fmt.Sprintf("Logs complete for run %s: %d lines.", sess.RunID, len(sess.Records)), false, true
	case logs.StatusErrored:
		return "Error: " + errorMessage(sess.Err), true, true
	default:
		return "", false, false
	}
}

// SetSearch changes the search text and publishes the new view.
func (e *Engine) SetSearch(term string) {
	e.mu.Lock()
	e.index.SetSearch(term)
	view := e.index.View()
	e.deliver.Lock()
	e.mu.Unlock()
	defer e.deliver.Unlock()
	e.observer.OnViewUpdated(view)
}

// SetLabelFilter restricts the view to label; logs.AllLabels clears it and
// logs.NoLabel keeps only unlabelled lines.
func (e *Engine) SetLabelFilter(label string) {
	e.mu.Lock()
	e.index.SetLabel(label)
	view := e.index.View()
	e.deliver.Lock()
	e.mu.Unlock()
	defer e.deliver.Unlock()
	e.observer.OnViewUpdated(view)
}

// Filter returns the current search text and label filter.
func (e *Engine) Filter() logs.FilterConfig { return e.index.Config() }

// View returns the filtered records of the active run.
func (e *Engine) View() []logs.Record { return e.index.View() }

// ViewText renders the filtered records as log text.
func (e *Engine) ViewText() string { return e.index.Text() }

// Labels returns the labels observed in the active run.
func (e *Engine) Labels() []string { return e.index.Labels() }

// Total returns the number of records before filtering.
func (e *Engine) Total() int { return e.index.Total() }

// RunID returns the run whose logs are shown, or "" before the first one.
func (e *Engine) RunID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runID
}

// Session returns the stream session as last published to the observer.
func (e *Engine) Session() (logs.Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return logs.Session{}, false
	}
	return *e.session, true
}

// Export packages the displayed text as a file named after the active run.
func (e *Engine) Export() logs.Artifact {
	artifact := logs.Export(e.RunID(), e.ViewText())
	e.deliver.Lock()
	defer e.deliver.Unlock()
	e.observer.OnExportReady(artifact)
	return artifact
}

// Cancel asks the server to cancel runID.
func (e *Engine) Cancel(ctx context.Context, runID string) (json.RawMessage, error) {
	return e.runAction(ctx, rpc.ActionCancelRun, runID, "Cancelling run %s...", "Cancel requested for run %s.")
}

// Rerun asks the server to re-run runID.
func (e *Engine) Rerun(ctx context.Context, runID string) (json.RawMessage, error) {
	return e.runAction(ctx, rpc.ActionRerunRun, runID, "Re-running run %s...", "Re-run requested for run %s.")
}

func (e *Engine) runAction(ctx context.Context, action, runID, pending, done string) (json.RawMessage, error) {
	id, err := ParseID("run id", runID)
	if err != nil {
		e.status(err.Error(), true)
		return nil, err
	}
	e.status(fmt.Sprintf(pending, runID), false)
	var result json.RawMessage
	if err := e.caller.Call(ctx, e.methods.Execute(), rpc.ExecuteParams{Action: action, RunID: id}, &result); err != nil {
		e.status("Error: "+errorMessage(err), true)
		return nil, err
	}
	e.status(fmt.Sprintf(done, runID), false)
	return result, nil
}

// Wait blocks until no resolve is pending and the active session, if any, is
// terminal. It returns the final session and its error, or the resolve
// failure.
func (e *Engine) Wait(ctx context.Context) (logs.Session, error) {
	for {
		e.mu.Lock()
		resolving, resolveErr, sess, changed := e.resolving, e.resolveErr, e.session, e.changed
		e.mu.Unlock()

		if !resolving {
			if resolveErr != nil {
				return logs.Session{}, resolveErr
			}
			if sess == nil {
				return logs.Session{}, nil
			}
			if sess.Status.IsTerminal() {
				return *sess, sess.Err
			}
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return logs.Session{}, ctx.Err()
		}
	}
}

// Stop ends the pending resolve and the active session.
func (e *Engine) Stop() {
	e.startMu.Lock()
	defer e.startMu.Unlock()
	e.cancelResolve()
	e.streamer.Stop()
	e.mu.Lock()
	e.session = nil
	e.signalLocked()
	e.mu.Unlock()
}

// Close stops all background work. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.Stop()
	e.closeBase()
}

func (e *Engine) signalLocked() {
	close(e.changed)
	e.changed = make(chan struct{})
}

func (e *Engine) status(msg string, isError bool) {
	e.deliver.Lock()
	defer e.deliver.Unlock()
	e.observer.OnStatusChange(msg, isError)
}

// errorMessage prefers the server's message for RPC errors.
func errorMessage(err error) string {
	var rpcErr *rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Message
	}
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// batchFetcher retrieves finished-run logs through the execute method.
type batchFetcher struct {
	caller  rpc.Caller
	methods rpc.Methods
}

func (f *batchFetcher) FetchLogs(ctx context.Context, runID string) (string, error) {
	id, err := ParseID("run id", runID)
	if err != nil {
		return "", err
	}
	var result rpc.LogsResult
	if err := f.caller.Call(ctx, f.methods.Execute(), rpc.ExecuteParams{Action: rpc.ActionFetchLogs, RunID: id}, &result); err != nil {
		return "", err
	}
	return result.Logs, nil
}
