package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
)

// Caller issues JSON-RPC calls. Components depend on this interface so tests
// can substitute an in-memory fake.
type Caller interface {
	Call(ctx context.Context, method string, params, result any) error
}

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL string
	Path    string
	Timeout time.Duration
	Debug   bool
	Logger  *log.Logger
}

// Client is a JSON-RPC 2.0 client over HTTP POST.
type Client struct {
	http   *resty.Client
	path   string
	nextID atomic.Int64
	logger *log.Logger
}

// NewClient creates a client for the endpoint at opts.BaseURL + opts.Path.
func NewClient(opts ClientOptions) *Client {
	if opts.Path == "" {
		opts.Path = "/jsonrpc"
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	// No retry: triggering a workflow twice is worse than failing once.
	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.Debug {
		client.SetDebug(true)
	}

	return &Client{http: client, path: opts.Path, logger: opts.Logger}
}

// HTTPClient exposes the underlying transport so the push-stream client can
// share connection pooling with RPC calls.
func (c *Client) HTTPClient() *http.Client {
	return c.http.GetClient()
}

// Call sends one request and decodes the result into result, which may be nil.
// A server-side error envelope is returned as *Error.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	if params == nil {
		params = struct{}{}
	}
	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode params for %s: %w", method, err)
	}

	id := c.nextID.Add(1)
	req := Request{
		JSONRPC: Version,
		Method:  method,
		Params:  rawParams,
		ID:      json.RawMessage(strconv.FormatInt(id, 10)),
	}

	resp, err := c.http.R().SetContext(ctx).SetBody(req).Post(c.path)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}

	var env Response
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("call %s: undecodable response (status %d): %w", method, resp.StatusCode(), err)
	}

	c.logger.Debug("rpc call completed", "method", method, "id", id, "status", resp.StatusCode())

	if env.Error != nil {
		return env.Error
	}

	if result == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("decode result of %s: %w", method, err)
	}
	return nil
}
