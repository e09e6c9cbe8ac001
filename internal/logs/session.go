package logs

import (
	"context"
	"errors"
)

// ErrNoLogsAvailable is the terminal error of a session whose stream was empty
// and whose batch fallback returned no text.
var ErrNoLogsAvailable = errors.New("no logs available for this run")

// Status is the lifecycle state of a stream session.
type Status int

const (
	StatusIdle Status = iota
	StatusStreaming
	StatusStreamedEmpty
	StatusFetchingFallback
	StatusDone
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusStreaming:
		return "streaming"
	case StatusStreamedEmpty:
		return "streamed_empty"
	case StatusFetchingFallback:
		return "fetching_fallback"
	case StatusDone:
		return "done"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// IsTerminal returns true once no further records will arrive.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusErrored
}

// Session is the state of streaming one run.
type Session struct {
	RunID string
	// Token identifies the session; it increases with every Start and Stop.
	Token       uint64
	Records     []Record
	RawBatch    string
	ReceivedAny bool
	Status      Status
	Err         error

	nextSeq int
}

// snapshot copies the session. Records is capped so appends by the owner
// never show through and appends by the reader never write into the owner.
func (s *Session) snapshot() Session {
	cp := *s
	cp.Records = s.Records[:len(s.Records):len(s.Records)]
	return cp
}

// Subscription is an open push-stream. Messages is closed when the stream
// terminates for any reason; Err is meaningful only after that.
type Subscription interface {
	Messages() <-chan string
	Err() error
	Close() error
}

// Source opens push-stream subscriptions.
type Source interface {
	Subscribe(ctx context.Context, runID string) (Subscription, error)
}

// BatchFetcher retrieves the complete log text of a finished run. An absent
// result is reported as "".
type BatchFetcher interface {
	FetchLogs(ctx context.Context, runID string) (string, error)
}

// Update is delivered to the streamer's listener after every state change.
type Update struct {
	Session Session
}
