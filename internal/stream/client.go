// Package stream subscribes to the server's log push-stream, a server-sent
// event feed that carries one raw log line per event.
package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/kyleking/gh-runtail/internal/logs"
)

// DefaultPath is the stream endpoint relative to the server base URL.
const DefaultPath = "/stream/logs"

// maxLineSize bounds a single event line; GitHub log lines can be long.
const maxLineSize = 1024 * 1024

// Error is a transport-level stream failure: a refused connection, a non-200
// response or an error event sent by the server.
type Error struct {
	RunID   string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("log stream for run %s: status %d", e.RunID, e.Status)
	case e.Message != "":
		return fmt.Sprintf("log stream for run %s: %s", e.RunID, e.Message)
	default:
		return fmt.Sprintf("log stream for run %s: %v", e.RunID, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Options configures a Client.
type Options struct {
	BaseURL string
	Path    string
	// HTTPClient is shared with the RPC client. Its timeout is not applied to
	// streams, which stay open for the life of a run.
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client opens log subscriptions. It implements logs.Source.
type Client struct {
	http    *http.Client
	baseURL string
	path    string
	logger  *log.Logger
}

var _ logs.Source = (*Client)(nil)

// NewClient creates a stream client.
func NewClient(opts Options) *Client {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	hc := &http.Client{}
	if opts.HTTPClient != nil {
		cp := *opts.HTTPClient
		cp.Timeout = 0
		hc = &cp
	}
	return &Client{
		http:    hc,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		path:    opts.Path,
		logger:  opts.Logger,
	}
}

// URL returns the subscription address for runID.
func (c *Client) URL(runID string) string {
	return c.baseURL + c.path + "?run_id=" + url.QueryEscape(runID)
}

// Subscribe connects to the push-stream of runID. The returned subscription
// delivers the data of each event until the server closes the stream, sends
// an error event or Close is called.
func (c *Client) Subscribe(ctx context.Context, runID string) (logs.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(runID), http.NoBody)
	if err != nil {
		cancel()
		return nil, &Error{RunID: runID, Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, &Error{RunID: runID, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		cancel()
		return nil, &Error{RunID: runID, Status: resp.StatusCode}
	}

	sub := &subscription{
		runID:    runID,
		messages: make(chan string, 64),
		body:     resp.Body,
		cancel:   cancel,
		done:     ctx.Done(),
	}
	c.logger.Debug("log stream connected", "run", runID)
	go sub.read(c.logger)
	return sub, nil
}

type subscription struct {
	runID    string
	messages chan string
	body     io.ReadCloser
	cancel   context.CancelFunc
	done     <-chan struct{}

	mu     sync.Mutex
	err    error
	closed bool
}

func (s *subscription) Messages() <-chan string { return s.messages }

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *subscription) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	return s.body.Close()
}

func (s *subscription) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil && !s.closed {
		s.err = err
	}
}

func (s *subscription) read(logger *log.Logger) {
	defer close(s.messages)
	defer s.cancel()
	defer s.body.Close()

	err := parseEvents(s.body, func(ev event) bool {
		if ev.name == "error" {
			s.setErr(&Error{RunID: s.runID, Message: ev.data})
			return false
		}
		select {
		case s.messages <- ev.data:
			return true
		case <-s.done:
			return false
		}
	})
	if err != nil {
		s.setErr(&Error{RunID: s.runID, Err: err})
	}
	logger.Debug("log stream ended", "run", s.runID, "err", s.Err())
}

type event struct {
	name string
	data string
}

// parseEvents reads server-sent events from r and hands each dispatched
// event to emit until emit returns false or the stream ends.
func parseEvents(r io.Reader, emit func(event) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		name    string
		data    strings.Builder
		hasData bool
	)

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			if hasData {
				if !emit(event{name: name, data: data.String()}) {
					return nil
				}
			}
			name = ""
			data.Reset()
			hasData = false
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	if hasData {
		emit(event{name: name, data: data.String()})
	}
	return nil
}
