package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amishk599/jobmatch/internal/model"
)

// Decision is what a Policy does after a failed attempt.
type Decision int

const (
	Fail   Decision = iota // give up and return the error
	Retry                  // wait and try again with the same identity
	Rotate                 // call OnRotate, wait, then try again
)

func (d Decision) String() string {
	switch d {
	case Retry:
		return "retry"
	case Rotate:
		return "rotate"
	default:
		return "fail"
	}
}

// Policy is the single retry/backoff strategy shared by the request client
// and the enrichment collaborators.
type Policy struct {
	MaxAttempts int           // total attempts including the first (default: 3)
	BaseDelay   time.Duration // delay before the second attempt, doubled on each subsequent one
	MaxDelay    time.Duration // cap on the computed delay, zero means no cap
	Jitter      float64       // fraction of the delay applied as ± jitter (default: 0.3)

	// Classify maps an attempt error to a Decision. Defaults to Transient.
	Classify func(err error) Decision
	// Backoff overrides the delay computation for a given attempt and error.
	Backoff func(attempt int, err error) time.Duration
	// OnRotate is called before retrying an attempt classified as Rotate.
	OnRotate func(err error)

	Logger *slog.Logger
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do runs fn until it succeeds, the classifier says Fail, attempts run out,
// or ctx is cancelled. attempt is 1-based.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	classify := p.Classify
	if classify == nil {
		classify = Transient
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return err
		}

		decision := classify(err)
		if decision == Fail {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		if decision == Rotate && p.OnRotate != nil {
			p.OnRotate(err)
		}

		delay := p.delay(attempt, err)
		logger.Warn("retrying after transient error",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"action", decision.String(),
			"delay", delay,
			"error", err,
		)

		if err := Sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}

	return &ExhaustedError{Attempts: maxAttempts, Err: lastErr}
}

// delay computes the wait after a failed attempt with ±Jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func (p Policy) delay(attempt int, err error) time.Duration {
	if p.Backoff != nil {
		return p.Backoff(attempt, err)
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	// Exponential: BaseDelay * 2^(attempt-1)
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	jitter := p.Jitter
	if jitter == 0 {
		jitter = 0.3
	}
	spread := float64(delay) * jitter
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*spread)
	if delay < 0 {
		delay = 0
	}
	return delay
}

// Transient is the default classifier: 429 and 5xx retry, other 4xx fail,
// cancellation fails, everything else (timeouts, network, DNS, parse) retries.
func Transient(err error) Decision {
	if err == nil {
		return Fail
	}

	if errors.Is(err, context.Canceled) {
		return Fail
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == 429 || httpErr.StatusCode >= 500 {
			return Retry
		}
		return Fail
	}

	return Retry
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
