package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/kyleking/gh-runtail/internal/resource"
	"github.com/sethvargo/go-retry"
)

// ErrResolutionTimeout is returned when no run matched within the attempt
// budget.
var ErrResolutionTimeout = errors.New("no matching run appeared before the attempt budget ran out")

// Defaults for the poll loop.
const (
	DefaultInterval = time.Second
	DefaultAttempts = 20
)

var errNoMatch = errors.New("no matching run yet")

// Resolver polls a resource listing until a freshly triggered run shows up.
type Resolver struct {
	lister   resource.Lister
	interval time.Duration
	attempts int
	logger   *log.Logger

	// OnAttempt, when set, is called before each listing with the 1-based
	// attempt number and the budget.
	OnAttempt func(attempt, budget int)
}

// NewResolver creates a resolver. Non-positive interval or attempts fall back
// to the defaults.
func NewResolver(lister resource.Lister, interval time.Duration, attempts int, logger *log.Logger) *Resolver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{lister: lister, interval: interval, attempts: attempts, logger: logger}
}

// Resolve lists resources up to the attempt budget, one interval apart, and
// returns the bare id of the first run accepted by match. A nil match uses
// DefaultMatch. A failed listing counts as a round without a match. The loop
// stops as soon as ctx is cancelled and returns ctx.Err().
func (r *Resolver) Resolve(ctx context.Context, workflowID, ref string, match MatchFunc) (string, error) {
	if match == nil {
		match = DefaultMatch
	}

	var (
		runID   string
		attempt int
	)
	backoff := retry.WithMaxRetries(uint64(r.attempts-1), retry.NewConstant(r.interval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if r.OnAttempt != nil {
			r.OnAttempt(attempt, r.attempts)
		}

		snap, err := r.lister.List(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn("listing failed while resolving run", "attempt", attempt, "err", err)
			return retry.RetryableError(errNoMatch)
		}

		for _, run := range snap.Runs {
			if match(run, workflowID, ref) {
				runID = run.BareID()
				return nil
			}
		}
		return retry.RetryableError(errNoMatch)
	})

	switch {
	case err == nil:
		r.logger.Info("resolved triggered run", "workflow", workflowID, "ref", ref, "run", runID, "attempts", attempt)
		return runID, nil
	case errors.Is(err, errNoMatch):
		return "", fmt.Errorf("workflow %s on %s after %d attempts: %w", workflowID, ref, attempt, ErrResolutionTimeout)
	default:
		return "", err
	}
}
