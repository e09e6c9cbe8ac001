package rpc

import (
	"encoding/json"
	"fmt"
)

// Version is the only protocol version spoken on the wire.
const Version = "2.0"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// Response is a JSON-RPC 2.0 response envelope. Exactly one of Result and
// Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Error is the error object of a response envelope. It is returned verbatim
// to callers so code and message reach the operator unchanged.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewError creates an error object.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithData attaches diagnostic data to the error.
func (e *Error) WithData(data any) *Error {
	e.Data = data
	return e
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Execute actions understood by the execute method.
const (
	ActionTriggerWorkflow = "trigger_workflow"
	ActionFetchLogs       = "fetch_logs"
	ActionCancelRun       = "cancel_run"
	ActionRerunRun        = "rerun_run"
)

// ExecuteParams is the params object of the execute method. Unused fields are
// omitted so each action carries only what it needs.
type ExecuteParams struct {
	Action     string            `json:"action"`
	WorkflowID int64             `json:"workflow_id,omitempty"`
	Ref        string            `json:"ref,omitempty"`
	Inputs     map[string]string `json:"inputs,omitempty"`
	RunID      int64             `json:"run_id,omitempty"`
}

// LogsResult is the result of the fetch_logs action.
type LogsResult struct {
	Status string `json:"status,omitempty"`
	RunID  int64  `json:"run_id,omitempty"`
	Logs   string `json:"logs"`
}

// Methods builds namespaced method names. The reference server registers
// "github/resources/list"; an empty namespace yields the bare names.
type Methods struct {
	Namespace string
}

func (m Methods) name(method string) string {
	if m.Namespace == "" {
		return method
	}
	return m.Namespace + "/" + method
}

// List returns the resource listing method name.
func (m Methods) List() string { return m.name("resources/list") }

// Execute returns the execute method name.
func (m Methods) Execute() string { return m.name("execute") }
