package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kyleking/gh-runtail/internal/rpc"
)

// envelope is a request as received, before validation.
type envelope struct {
	JSONRPC *string          `json:"jsonrpc"`
	Method  *string          `json:"method"`
	Params  json.RawMessage  `json:"params"`
	ID      *json.RawMessage `json:"id"`
}

// decodeRequest parses and validates a JSON-RPC 2.0 request body. The id is
// returned whenever it could be read, so errors can echo it.
func decodeRequest(body []byte) (rpc.Request, json.RawMessage, *rpc.Error) {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return rpc.Request{}, nil, rpc.NewError(rpc.CodeParseError, "Parse error")
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return rpc.Request{}, nil, rpc.NewError(rpc.CodeInvalidRequest, "Request must be a JSON object")
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return rpc.Request{}, nil, rpc.NewError(rpc.CodeInvalidRequest, "Invalid request").WithData(err.Error())
	}

	var id json.RawMessage
	if env.ID != nil {
		id = *env.ID
	}

	switch {
	case env.JSONRPC == nil || *env.JSONRPC != rpc.Version:
		return rpc.Request{}, id, rpc.NewError(rpc.CodeInvalidRequest, "jsonrpc version must be '2.0'")
	case env.Method == nil:
		return rpc.Request{}, id, rpc.NewError(rpc.CodeInvalidRequest, "Missing or invalid 'method'")
	case env.ID == nil:
		return rpc.Request{}, nil, rpc.NewError(rpc.CodeInvalidRequest, "Missing 'id'")
	}

	params := bytes.TrimSpace(env.Params)
	if len(params) > 0 && params[0] != '{' && params[0] != '[' && string(params) != "null" {
		return rpc.Request{}, id, rpc.NewError(rpc.CodeInvalidRequest, "'params' must be an object or array if present")
	}

	return rpc.Request{JSONRPC: rpc.Version, Method: *env.Method, Params: params, ID: id}, id, nil
}

// flexID accepts an id sent either as a JSON number or as a numeric string.
type flexID int64

func (f *flexID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("not an integer: %s", data)
	}
	*f = flexID(n)
	return nil
}

// executeParams is the lenient server-side form of rpc.ExecuteParams.
type executeParams struct {
	Action     string            `json:"action"`
	WorkflowID flexID            `json:"workflow_id"`
	Ref        string            `json:"ref"`
	Inputs     map[string]string `json:"inputs"`
	RunID      flexID            `json:"run_id"`
}

func decodeExecuteParams(raw json.RawMessage) (executeParams, *rpc.Error) {
	var p executeParams
	if len(raw) == 0 || string(raw) == "null" {
		return p, rpc.NewError(rpc.CodeInvalidParams, "Missing 'action' in params")
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, rpc.NewError(rpc.CodeInvalidParams, "Invalid params").WithData(err.Error())
	}
	if p.Action == "" {
		return p, rpc.NewError(rpc.CodeInvalidParams, "Missing 'action' in params")
	}
	return p, nil
}
