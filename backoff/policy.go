package backoff

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Func is one attempt of a retried operation.
type Func func(ctx context.Context) (any, error)

// Defaults applied by New.
const (
	DefaultRetries = 3
)

// Policy retries a Func with delays computed by a Strategy.
//
// Retries and MaxDelay have the same meaning everywhere in this package:
// retries <= 0 retries forever, maxDelay <= 0 leaves delays unbounded.
type Policy struct {
	strategy Strategy
	retries  int
	maxDelay time.Duration
	onRetry  func(attempt int, err error, delay time.Duration)

	lastDelay atomic.Int64
}

// Option configures a Policy.
type Option func(*Policy)

// WithRetries sets the default attempt budget used by Run.
func WithRetries(n int) Option {
	return func(p *Policy) {
		p.retries = n
	}
}

// WithMaxDelay sets the default delay ceiling used by Run.
func WithMaxDelay(d time.Duration) Option {
	return func(p *Policy) {
		p.maxDelay = d
	}
}

// WithOnRetry is called before every wait with the upcoming attempt number.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(p *Policy) {
		p.onRetry = fn
	}
}

// New creates a policy. A nil strategy uses the default exponential shape.
func New(strategy Strategy, opts ...Option) *Policy {
	if strategy == nil {
		strategy = &Exponential{constant: DefaultConstant, multiplier: DefaultMultiplier}
	}
	p := &Policy{
		strategy: strategy,
		retries:  DefaultRetries,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewExponentialPolicy is a shortcut for New over an Exponential strategy.
func NewExponentialPolicy(config ExponentialConfig, opts ...Option) (*Policy, error) {
	exp, err := NewExponential(config)
	if err != nil {
		return nil, err
	}
	return New(exp, opts...), nil
}

// Strategy returns the delay strategy.
func (p *Policy) Strategy() Strategy {
	return p.strategy
}

// LastDelay returns the most recent delay computed by any Execute call.
func (p *Policy) LastDelay() time.Duration {
	return time.Duration(p.lastDelay.Load())
}

// Run executes fn with the policy's own retries and max delay.
func (p *Policy) Run(ctx context.Context, fn Func) (any, error) {
	return p.Execute(ctx, fn, p.retries, p.maxDelay)
}

// Execute runs fn until it succeeds or the attempt budget is spent.
//
// The first attempt runs immediately. After the n-th failure the attempt
// counter becomes n+1; if retries > 0 and the counter exceeds retries the
// last error is returned. Otherwise Execute waits Interval(counter), capped at
// maxDelay when maxDelay > 0. Once the cap is reached the delay stays there.
//
// Cancelling ctx stops the wait; the returned error then wraps both the
// context error and the last attempt's error.
func (p *Policy) Execute(ctx context.Context, fn Func, retries int, maxDelay time.Duration) (any, error) {
	if maxDelay < 0 {
		maxDelay = 0
	}

	// lastDelay is per call; the policy only publishes it for LastDelay.
	var lastDelay time.Duration
	p.lastDelay.Store(0)

	attempt := 1
	for {
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}

		attempt++
		if retries > 0 && attempt > retries {
			return nil, err
		}

		delay := p.strategy.Interval(attempt)
		if maxDelay > 0 {
			if lastDelay >= maxDelay {
				delay = lastDelay
			} else {
				delay = min(delay, maxDelay)
			}
		}
		lastDelay = delay
		p.lastDelay.Store(int64(delay))

		if p.onRetry != nil {
			p.onRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %w", ctx.Err(), err)
		case <-timer.C:
		}
	}
}
