package backoff

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// ErrUnauthorized marks authentication and authorization failures. Do gives
// up on it immediately so callers can stop a whole cycle instead of burning
// the retry budget on credentials that will never work.
var ErrUnauthorized = errors.New("unauthorized")

// ErrNotReady is returned by DoUntil when the polled operation never reached
// a final state within the retry budget.
var ErrNotReady = errors.New("operation not ready")

// StatusError carries the HTTP status of a failed remote call so retry and
// fallback logic can branch on typed outcomes instead of message strings.
type StatusError struct {
	Code int
	Msg  string
}

func (e *StatusError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("remote call failed with status %d", e.Code)
	}
	return fmt.Sprintf("remote call failed with status %d: %s", e.Code, e.Msg)
}

// Is makes 401/403 status errors match ErrUnauthorized.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden)
}

type Config struct {
	MaxRetries int           // attempts bound, default 3
	BaseDelay  time.Duration // first-retry delay, default 1s
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	return c
}

// Do runs fn up to cfg.MaxRetries times. Authentication failures are
// terminal. Rate-limit and server-unavailable statuses back off with
// base*2^attempt plus jitter; every other transient failure backs off with
// base*1.5^attempt plus jitter. On exhaustion the last error is returned.
func Do[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if errors.Is(err, ErrUnauthorized) {
			return zero, err
		}
		if attempt == cfg.MaxRetries-1 {
			break
		}
		if err := sleep(ctx, delayFor(err, attempt, cfg.BaseDelay)); err != nil {
			return zero, err
		}
	}

	return zero, lastErr
}

// DoUntil polls fn with Do's backoff semantics until done reports the result
// is final. A call that returns without error but is not yet done consumes
// an attempt like a transient failure would.
func DoUntil[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error), done func(T) bool) (T, error) {
	var zero T
	cfg = cfg.withDefaults()

	var last T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil && done(result) {
			return result, nil
		}
		last, lastErr = result, err

		if errors.Is(err, ErrUnauthorized) {
			return zero, err
		}
		if attempt == cfg.MaxRetries-1 {
			break
		}
		if err := sleep(ctx, delayFor(err, attempt, cfg.BaseDelay)); err != nil {
			return zero, err
		}
	}

	if lastErr != nil {
		return zero, lastErr
	}
	return last, ErrNotReady
}

func delayFor(err error, attempt int, base time.Duration) time.Duration {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && slowRetry(statusErr.Code) {
		return scale(base, 2, attempt) + jitter(base)
	}
	return scale(base, 1.5, attempt) + jitter(base/2)
}

func slowRetry(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	}
	return false
}

func scale(base time.Duration, factor float64, attempt int) time.Duration {
	return time.Duration(float64(base) * math.Pow(factor, float64(attempt)))
}

func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
