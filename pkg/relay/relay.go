// Package relay wraps a completion streamer with bounded retries and
// exponential backoff.
package relay

import (
	"context"
	"time"

	"charchat/pkg/completion"
	"charchat/pkg/config"
	"charchat/pkg/logger"
	"charchat/pkg/models"
	"charchat/pkg/telemetry"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
)

// Relay retries failed completion attempts. Fragments are forwarded to
// the caller as they arrive and are never retracted: if attempt N fails
// after emitting output and attempt N+1 succeeds, the caller observes the
// concatenation of both. That replay artifact is accepted; resuming an
// upstream stream mid-response is not possible.
type Relay struct {
	source      completion.Streamer
	maxAttempts int
	baseDelay   time.Duration

	// sleep is replaced in tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Relay over source. Zero-value retry config falls back to
// 3 attempts with a 1s base delay.
func New(source completion.Streamer, cfg config.RetryConfig) *Relay {
	r := &Relay{
		source:      source,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay.Duration(),
		sleep:       sleepCtx,
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = defaultMaxAttempts
	}
	if r.baseDelay <= 0 {
		r.baseDelay = defaultBaseDelay
	}
	return r
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Stream runs the completion with retries. Delay before attempt k (k>=2)
// is baseDelay * 2^(k-2); no delay precedes the first attempt or follows
// the last. Non-retryable failures and context cancellation propagate
// immediately; otherwise the last attempt's error is returned.
func (r *Relay) Stream(ctx context.Context, msgs []models.ChatMessage, emit completion.EmitFunc) error {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if attempt > 1 {
			telemetry.StreamRetries.Inc()
			delay := r.baseDelay << (attempt - 2)
			if err := r.sleep(ctx, delay); err != nil {
				return err
			}
		}

		err := r.source.StreamCompletion(ctx, msgs, emit)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		kind := completion.KindOf(err)
		if !kind.Retryable() {
			logger.Warn("stream_attempt_failed", "attempt", attempt, "kind", kind.String(), "retryable", false)
			return err
		}
		logger.Warn("stream_attempt_failed", "attempt", attempt, "kind", kind.String(), "retryable", true)
		lastErr = err
	}
	return lastErr
}
