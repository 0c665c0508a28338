package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// StatusError is a non-200 answer from a model endpoint.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("emotion %s: %s", e.Status, e.Body)
}

// Temporary is true for statuses worth retrying: rate limits, model loading
// and other server-side failures.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

type retryPolicy struct {
	attempts int
	backoff  time.Duration
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrEmptyResponse) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

func (p retryPolicy) do(ctx context.Context, onRetry func(attempt int, err error), op func() ([]EmoScore, error)) ([]EmoScore, error) {
	backoff := p.backoff
	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		out, err := op()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !retryable(err) || attempt == p.attempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}
	if p.attempts > 1 && retryable(lastErr) {
		return nil, fmt.Errorf("failed after %d attempts: %w", p.attempts, lastErr)
	}
	return nil, lastErr
}
