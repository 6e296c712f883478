package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"
)

// retryStore wraps another Store and retries transient errors with
// configurable backoff.
type retryStore struct {
	inner      Store
	maxRetries int
	backoff    string // "exponential" or "linear"
}

// WithRetry creates a Store that retries transient errors. backoff must
// be "exponential" or "linear". maxRetries is the maximum number of retry
// attempts (0 means no retries).
func WithRetry(inner Store, maxRetries int, backoff string) Store {
	if backoff != "exponential" && backoff != "linear" {
		backoff = "exponential"
	}
	return &retryStore{
		inner:      inner,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

func (r *retryStore) Name() string {
	return r.inner.Name()
}

func (r *retryStore) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error {
	// A failed attempt may have consumed part of the body, so buffer it
	// once and give every attempt a fresh reader over the full payload.
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}
	return r.retryOp(ctx, func() error {
		return r.inner.Put(ctx, key, bytes.NewReader(data), opts)
	})
}

func (r *retryStore) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	var (
		rc   io.ReadCloser
		info ObjectInfo
	)
	err := r.retryOp(ctx, func() error {
		var e error
		rc, info, e = r.inner.Get(ctx, key)
		return e
	})
	return rc, info, err
}

func (r *retryStore) Head(ctx context.Context, key string) (ObjectInfo, error) {
	var info ObjectInfo
	err := r.retryOp(ctx, func() error {
		var e error
		info, e = r.inner.Head(ctx, key)
		return e
	})
	return info, err
}

func (r *retryStore) Delete(ctx context.Context, key string) error {
	return r.retryOp(ctx, func() error {
		return r.inner.Delete(ctx, key)
	})
}

func (r *retryStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var items []ObjectInfo
	err := r.retryOp(ctx, func() error {
		var e error
		items, e = r.inner.List(ctx, prefix)
		return e
	})
	return items, err
}

// isTransient returns true if the error is transient and should be
// retried. ErrNotFound is a definitive answer, not a failure.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return false
	}
	return true
}

// retryOp executes the operation and retries on transient errors.
func (r *retryStore) retryOp(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt == r.maxRetries {
			break
		}
		sleepDur := r.calcBackoff(attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepDur):
		}
	}
	return lastErr
}

// calcBackoff computes the backoff duration for the given attempt number,
// with +/- 25% jitter.
func (r *retryStore) calcBackoff(attempt int) time.Duration {
	const baseDelay = 100 * time.Millisecond
	const maxDelay = 30 * time.Second

	var delay time.Duration
	switch r.backoff {
	case "linear":
		delay = baseDelay * time.Duration(attempt+1)
	default: // "exponential"
		delay = baseDelay * time.Duration(math.Pow(2, float64(attempt)))
	}

	if delay > maxDelay {
		delay = maxDelay
	}

	jitter := time.Duration(rand.Int63n(int64(delay/2))) - delay/4
	delay += jitter

	if delay < 0 {
		delay = baseDelay
	}

	return delay
}
