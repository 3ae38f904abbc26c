package llm

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/docbot/docbot/pkg/logger"
	"github.com/docbot/docbot/pkg/metrics"
)

// RetryOptions configures RetryClient.
type RetryOptions struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// Timeout is the hard wall-clock limit of each attempt. Zero disables it.
	Timeout time.Duration
	// InitialInterval is the first backoff delay, doubled after each failure.
	InitialInterval time.Duration
}

// RetryClient enforces a per-attempt timeout and retries any failure with
// exponential backoff.
type RetryClient struct {
	inner Client
	opts  RetryOptions
	log   *logger.Logger
}

// NewRetryClient wraps inner.
func NewRetryClient(inner Client, opts RetryOptions, log *logger.Logger) *RetryClient {
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 400 * time.Millisecond
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &RetryClient{inner: inner, opts: opts, log: log}
}

// Name returns the wrapped provider name.
func (c *RetryClient) Name() string {
	return c.inner.Name()
}

// Complete calls the wrapped client until it succeeds or retries run out.
func (c *RetryClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()
	feature := req.Meta["feature"]
	attempt := 0

	var resp *CompletionResponse
	operation := func() error {
		attempt++
		attemptCtx := ctx
		if c.opts.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
			defer cancel()
		}

		c.log.Debug("AI call start",
			zap.String("provider", c.inner.Name()),
			zap.String("feature", feature),
			zap.Int("attempt", attempt),
		)

		r, err := c.inner.Complete(attemptCtx, req)
		if err != nil {
			if errors.Is(err, ErrNotConfigured) {
				return backoff.Permanent(err)
			}
			return err
		}
		resp = r
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Minute
	b.MaxElapsedTime = 0
	b.Reset()

	notify := func(err error, wait time.Duration) {
		c.log.Warn("AI call failed, retrying",
			zap.String("provider", c.inner.Name()),
			zap.String("feature", feature),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.opts.MaxRetries)), ctx),
		notify,
	)
	if err != nil {
		metrics.RecordAICall(feature, "error", time.Since(start).Seconds())
		c.log.Error("AI call failed",
			zap.String("provider", c.inner.Name()),
			zap.String("feature", feature),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.RecordAICall(feature, "success", time.Since(start).Seconds())
	return resp, nil
}
