// Package server is the reference JSON-RPC and log push-stream server that
// fronts a CI provider.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/kyleking/gh-runtail/internal/rpc"
)

// Default paths, matching the client defaults.
const (
	DefaultRPCPath    = "/jsonrpc"
	DefaultStreamPath = "/stream/logs"
)

// Options configures a Server.
type Options struct {
	// Providers maps a method namespace to its backend.
	Providers map[string]Provider
	// StreamNamespace selects the provider behind the log stream.
	StreamNamespace string
	RPCPath         string
	StreamPath      string
	Logger          *log.Logger
}

// Server routes JSON-RPC calls and log streams to providers.
type Server struct {
	providers       map[string]Provider
	streamNamespace string
	rpcPath         string
	streamPath      string
	logger          *log.Logger
	started         time.Time
}

// New creates a server.
func New(opts Options) *Server {
	if opts.RPCPath == "" {
		opts.RPCPath = DefaultRPCPath
	}
	if opts.StreamPath == "" {
		opts.StreamPath = DefaultStreamPath
	}
	if opts.StreamNamespace == "" {
		opts.StreamNamespace = "github"
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Server{
		providers:       opts.Providers,
		streamNamespace: opts.StreamNamespace,
		rpcPath:         opts.RPCPath,
		streamPath:      opts.StreamPath,
		logger:          opts.Logger,
		started:         time.Now(),
	}
}

// Router builds the gin engine serving all endpoints.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(s.requestLogger(), s.recovery(), cors())

	router.GET("/healthz", s.handleHealth)
	router.POST(s.rpcPath, s.handleRPC)
	router.GET(s.streamPath, s.handleStream)
	return router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr, "rpc", s.rpcPath, "stream", s.streamPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Info("server exited gracefully")
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "uptime": time.Since(s.started).Round(time.Second).String()})
}

func (s *Server) handleRPC(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, http.StatusBadRequest, nil, rpc.NewError(rpc.CodeParseError, "Parse error").WithData(err.Error()))
		return
	}

	req, id, rpcErr := decodeRequest(body)
	if rpcErr != nil {
		s.logger.Warn("rejected rpc request", "code", rpcErr.Code, "message", rpcErr.Message)
		writeError(c, http.StatusBadRequest, id, rpcErr)
		return
	}

	result, rpcErr := s.dispatch(c.Request.Context(), req)
	if rpcErr != nil {
		s.logger.Warn("rpc call failed", "method", req.Method, "code", rpcErr.Code, "message", rpcErr.Message)
		writeError(c, http.StatusBadRequest, id, rpcErr)
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		writeError(c, http.StatusInternalServerError, id, rpc.NewError(rpc.CodeInternalError, "Internal error").WithData(err.Error()))
		return
	}
	c.JSON(http.StatusOK, rpc.Response{JSONRPC: rpc.Version, Result: raw, ID: id})
}

func (s *Server) dispatch(ctx context.Context, req rpc.Request) (any, *rpc.Error) {
	ns, method, ok := strings.Cut(req.Method, "/")
	if !ok {
		return nil, rpc.NewError(rpc.CodeMethodNotFound, fmt.Sprintf("Method '%s' not found", req.Method))
	}
	provider, found := s.providers[ns]
	if !found {
		return nil, rpc.NewError(rpc.CodeMethodNotFound, fmt.Sprintf("Method '%s' not found", req.Method))
	}

	switch method {
	case "resources/list":
		resources, err := provider.ListResources(ctx)
		if err != nil {
			return nil, rpc.NewError(rpc.CodeInternalError, "Failed to list resources").WithData(err.Error())
		}
		return resources, nil
	case "execute":
		params, rpcErr := decodeExecuteParams(req.Params)
		if rpcErr != nil {
			return nil, rpcErr
		}
		return s.execute(ctx, provider, params)
	default:
		return nil, rpc.NewError(rpc.CodeMethodNotFound, fmt.Sprintf("Method '%s' not found", req.Method))
	}
}

func (s *Server) execute(ctx context.Context, p Provider, params executeParams) (any, *rpc.Error) {
	switch params.Action {
	case rpc.ActionTriggerWorkflow:
		if params.WorkflowID <= 0 || params.Ref == "" {
			return nil, rpc.NewError(rpc.CodeInvalidParams, "'workflow_id' and 'ref' are required for trigger_workflow")
		}
		if err := p.Dispatch(ctx, int64(params.WorkflowID), params.Ref, params.Inputs); err != nil {
			return nil, rpc.NewError(rpc.CodeInternalError, "Failed to trigger workflow: "+err.Error())
		}
		return gin.H{"status": "workflow triggered", "workflow_id": int64(params.WorkflowID), "ref": params.Ref}, nil

	case rpc.ActionCancelRun:
		if params.RunID <= 0 {
			return nil, rpc.NewError(rpc.CodeInvalidParams, "'run_id' is required for cancel_run")
		}
		if err := p.CancelRun(ctx, int64(params.RunID)); err != nil {
			return nil, rpc.NewError(rpc.CodeInternalError, "Failed to cancel run: "+err.Error())
		}
		return gin.H{"status": "run cancelled", "run_id": int64(params.RunID)}, nil

	case rpc.ActionRerunRun:
		if params.RunID <= 0 {
			return nil, rpc.NewError(rpc.CodeInvalidParams, "'run_id' is required for rerun_run")
		}
		if err := p.RerunRun(ctx, int64(params.RunID)); err != nil {
			return nil, rpc.NewError(rpc.CodeInternalError, "Failed to rerun run: "+err.Error())
		}
		return gin.H{"status": "run rerun triggered", "run_id": int64(params.RunID)}, nil

	case rpc.ActionFetchLogs:
		if params.RunID <= 0 {
			return nil, rpc.NewError(rpc.CodeInvalidParams, "'run_id' is required for fetch_logs")
		}
		lines, err := p.RunLogLines(ctx, int64(params.RunID))
		if err != nil {
			return nil, rpc.NewError(rpc.CodeInternalError, "Failed to fetch logs: "+err.Error())
		}
		return rpc.LogsResult{Status: "logs fetched", RunID: int64(params.RunID), Logs: strings.Join(lines, "\n")}, nil

	default:
		return nil, rpc.NewError(rpc.CodeInvalidParams, fmt.Sprintf("Unknown action: %s", params.Action))
	}
}

func (s *Server) handleStream(c *gin.Context) {
	runID, err := strconv.ParseInt(c.Query("run_id"), 10, 64)
	if err != nil || runID <= 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "run_id must be a positive integer"})
		return
	}
	provider, ok := s.providers[s.streamNamespace]
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no provider for log streaming"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	// The client's connect returns on headers, not on the first line.
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	lines, err := provider.RunLogLines(c.Request.Context(), runID)
	if err != nil {
		s.logger.Warn("log stream failed", "run", runID, "err", err)
		writeEvent(c.Writer, "error", "Failed to fetch logs: "+err.Error())
		c.Writer.Flush()
		return
	}

	s.logger.Debug("streaming logs", "run", runID, "lines", len(lines))
	next := 0
	c.Stream(func(w io.Writer) bool {
		if next >= len(lines) {
			return false
		}
		writeEvent(w, "", lines[next])
		next++
		return true
	})
}

// writeEvent writes one server-sent event. Multi-line data becomes several
// data fields.
func writeEvent(w io.Writer, name, data string) {
	var b strings.Builder
	if name != "" {
		b.WriteString("event: " + name + "\n")
	}
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: " + line + "\n")
	}
	b.WriteString("\n")
	_, _ = io.WriteString(w, b.String())
}

func writeError(c *gin.Context, status int, id json.RawMessage, err *rpc.Error) {
	if id == nil {
		id = json.RawMessage("null")
	}
	c.JSON(status, rpc.Response{JSONRPC: rpc.Version, Error: err, ID: id})
}
