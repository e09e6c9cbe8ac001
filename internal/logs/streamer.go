package logs

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// LogStreamer owns the single active stream session. It opens the push-stream
// for a run, appends parsed records as messages arrive and falls back to one
// batch fetch when the stream ends without producing anything.
type LogStreamer struct {
	source  Source
	fetcher BatchFetcher
	notify  func(Update)
	logger  *log.Logger

	mu      sync.Mutex
	token   uint64
	session *Session
	sub     Subscription
	cancel  context.CancelFunc
}

// NewLogStreamer creates a streamer. notify is called outside the streamer's
// lock after every state change and may be nil.
func NewLogStreamer(source Source, fetcher BatchFetcher, notify func(Update), logger *log.Logger) *LogStreamer {
	if notify == nil {
		notify = func(Update) {}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &LogStreamer{source: source, fetcher: fetcher, notify: notify, logger: logger}
}

// Start closes the current session, if any, and begins streaming runID. It
// returns the token of the new session without waiting for the stream to
// connect.
func (s *LogStreamer) Start(ctx context.Context, runID string) uint64 {
	s.mu.Lock()
	s.closeLocked()
	s.token++
	token := s.token
	sessCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.session = &Session{RunID: runID, Token: token, Status: StatusStreaming}
	started := s.session.snapshot()
	s.mu.Unlock()

	s.logger.Info("log stream started", "run", runID, "session", token)
	s.notify(Update{Session: started})

	go s.run(sessCtx, token, runID)
	return token
}

// run connects the session's stream and pumps it. A connect still pending
// when the session is superseded is aborted through ctx.
func (s *LogStreamer) run(ctx context.Context, token uint64, runID string) {
	sub, err := s.source.Subscribe(ctx, runID)
	if err != nil {
		s.logger.Warn("log stream could not be opened", "run", runID, "err", err)
		s.finish(ctx, token)
		return
	}

	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		_ = sub.Close()
		return
	}
	s.sub = sub
	s.mu.Unlock()

	s.pump(ctx, token, sub)
}

// Stop closes the current session without starting another. Late events of
// the closed session are dropped.
func (s *LogStreamer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	s.token++
	s.session = nil
}

// Token returns the token of the current session.
func (s *LogStreamer) Token() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Session returns a copy of the current session and false when there is none.
func (s *LogStreamer) Session() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Session{}, false
	}
	return s.session.snapshot(), true
}

func (s *LogStreamer) closeLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.sub != nil {
		_ = s.sub.Close()
		s.sub = nil
	}
}

func (s *LogStreamer) pump(ctx context.Context, token uint64, sub Subscription) {
	for raw := range sub.Messages() {
		if !s.appendMessage(token, raw) {
			return
		}
	}
	if err := sub.Err(); err != nil {
		s.logger.Debug("log stream terminated", "session", token, "err", err)
	}
	s.finish(ctx, token)
}

func (s *LogStreamer) appendMessage(token uint64, raw string) bool {
	s.mu.Lock()
	if s.token != token || s.session == nil {
		s.mu.Unlock()
		return false
	}
	sess := s.session
	label, content := ParseLine(raw)
	sess.Records = append(sess.Records, Record{Sequence: sess.nextSeq, Label: label, Content: content})
	sess.nextSeq++
	sess.ReceivedAny = true
	update := sess.snapshot()
	s.mu.Unlock()

	s.notify(Update{Session: update})
	return true
}

// finish handles stream termination. Close and error look the same here.
func (s *LogStreamer) finish(ctx context.Context, token uint64) {
	s.mu.Lock()
	if s.token != token || s.session == nil {
		s.mu.Unlock()
		return
	}
	if s.sub != nil {
		_ = s.sub.Close()
		s.sub = nil
	}
	sess := s.session
	if sess.ReceivedAny {
		sess.Status = StatusDone
		done := sess.snapshot()
		s.mu.Unlock()
		s.logger.Info("log stream finished", "run", sess.RunID, "records", len(done.Records))
		s.notify(Update{Session: done})
		return
	}

	sess.Status = StatusStreamedEmpty
	empty := sess.snapshot()
	sess.Status = StatusFetchingFallback
	fetching := sess.snapshot()
	runID := sess.RunID
	s.mu.Unlock()

	s.notify(Update{Session: empty})
	s.notify(Update{Session: fetching})
	s.logger.Info("log stream was empty, fetching finished logs", "run", runID)

	text, err := s.fetcher.FetchLogs(ctx, runID)

	s.mu.Lock()
	if s.token != token || s.session == nil {
		s.mu.Unlock()
		s.logger.Debug("dropping fallback result of superseded session", "run", runID, "session", token)
		return
	}
	sess = s.session
	switch records := ParseBatch(text); {
	case err != nil:
		sess.Status = StatusErrored
		sess.Err = err
	case len(records) == 0:
		sess.Status = StatusErrored
		sess.Err = ErrNoLogsAvailable
	default:
		sess.RawBatch = text
		sess.Records = records
		sess.nextSeq = len(records)
		sess.Status = StatusDone
	}
	final := sess.snapshot()
	s.mu.Unlock()

	if final.Err != nil {
		s.logger.Warn("log fallback failed", "run", runID, "err", final.Err)
	} else {
		s.logger.Info("log fallback finished", "run", runID, "records", len(final.Records))
	}
	s.notify(Update{Session: final})
}
