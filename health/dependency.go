package health

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonwraymond/copacetic/backoff"
)

// Defaults for a single check.
const (
	// DefaultRetries is the attempt budget of a check when none is given.
	DefaultRetries = 1

	// DefaultMaxDelay caps retry delays when none is given.
	DefaultMaxDelay = 30 * time.Second
)

// Sentinels for CheckEntry and CheckOptions. Zero values mean "default".
const (
	// RetryForever keeps retrying until the check succeeds or ctx ends.
	RetryForever = -1

	// NoMaxDelay leaves retry delays unbounded.
	NoMaxDelay time.Duration = -1
)

// ProbeFunc is one probe attempt.
type ProbeFunc func(ctx context.Context) (any, error)

// Interceptor wraps every probe attempt of a dependency, e.g. for tracing.
type Interceptor func(ctx context.Context, dep *Dependency, next ProbeFunc) (any, error)

// DependencyConfig configures a Dependency.
type DependencyConfig struct {
	// Name identifies the dependency. Required.
	Name string

	// URL locates the dependency. Optional: some strategies resolve their
	// target themselves.
	URL string

	// Level is HARD or SOFT. Required.
	Level Level

	// Strategy probes the dependency. Required.
	Strategy Strategy

	// Backoff retries failed probes. Required.
	Backoff *backoff.Policy

	// Interceptor wraps each probe attempt. Optional.
	Interceptor Interceptor
}

// Dependency holds the identity and latest health of one dependency.
//
// Concurrent Check calls are permitted and race to set the final snapshot;
// they share the dependency's backoff policy.
type Dependency struct {
	name        string
	url         string
	level       Level
	strategy    Strategy
	backoff     *backoff.Policy
	interceptor Interceptor

	mu          sync.RWMutex
	healthy     bool
	lastChecked time.Time
	lastResult  any
}

// NewDependency validates cfg and creates a dependency. New dependencies
// are healthy until a check proves otherwise.
func NewDependency(cfg DependencyConfig) (*Dependency, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, invalid("dependency name is required")
	}
	if !cfg.Level.Valid() {
		return nil, invalid("dependency %q: level must be HARD or SOFT, got %q", cfg.Name, cfg.Level)
	}
	if cfg.Strategy == nil {
		return nil, invalid("dependency %q: strategy is required", cfg.Name)
	}
	if cfg.Backoff == nil {
		return nil, invalid("dependency %q: backoff policy is required", cfg.Name)
	}

	return &Dependency{
		name:        cfg.Name,
		url:         cfg.URL,
		level:       cfg.Level,
		strategy:    cfg.Strategy,
		backoff:     cfg.Backoff,
		interceptor: cfg.Interceptor,
		healthy:     true,
	}, nil
}

// Name returns the dependency name.
func (d *Dependency) Name() string { return d.name }

// URL returns the target locator, possibly empty.
func (d *Dependency) URL() string { return d.url }

// Level returns the dependency level.
func (d *Dependency) Level() Level { return d.level }

// Strategy returns the probe strategy.
func (d *Dependency) Strategy() Strategy { return d.strategy }

// Backoff returns the retry policy.
func (d *Dependency) Backoff() *backoff.Policy { return d.backoff }

// Healthy reports the latest known health.
func (d *Dependency) Healthy() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.healthy
}

// Check probes the dependency through its backoff policy and records the
// outcome. retries and maxDelay follow backoff.Policy.Execute.
//
// The returned Summary is always the state after the check. When the
// dependency ends up unhealthy the error is an *UnhealthyError carrying the
// same summary.
//
// Attempts cut short by ctx do not count as failures. If ctx ends before
// any attempt fails on its own, nothing is recorded and the error wraps
// ctx.Err() without ErrUnhealthy.
func (d *Dependency) Check(ctx context.Context, retries int, maxDelay time.Duration) (Summary, error) {
	probe := ProbeFunc(func(ctx context.Context) (any, error) {
		return d.strategy.Check(ctx, d.url)
	})
	if d.interceptor != nil {
		next := probe
		probe = func(ctx context.Context) (any, error) {
			return d.interceptor(ctx, d, next)
		}
	}

	failures := 0
	attempt := func(ctx context.Context) (any, error) {
		res, err := probe(ctx)
		if err != nil && ctx.Err() == nil {
			failures++
		}
		return res, err
	}

	result, err := d.backoff.Execute(ctx, attempt, retries, maxDelay)
	if err != nil {
		if failures == 0 && ctx.Err() != nil {
			if !errors.Is(err, ctx.Err()) {
				err = fmt.Errorf("%w: %w", ctx.Err(), err)
			}
			return d.Summary(), fmt.Errorf("health: check of %q interrupted: %w", d.name, err)
		}
		d.record(false, nil)
		s := d.Summary()
		return s, &UnhealthyError{Summary: s, Cause: err}
	}

	if a, ok := d.strategy.(Assessor); ok && !a.AreYouOK(result) {
		d.record(false, result)
		s := d.Summary()
		return s, &UnhealthyError{Summary: s, Cause: ErrNotOK}
	}

	d.record(true, result)
	return d.Summary(), nil
}

func (d *Dependency) record(healthy bool, result any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.healthy = healthy
	d.lastChecked = time.Now()
	d.lastResult = result
}

// Summary describes the dependency's current health.
func (d *Dependency) Summary() Summary {
	d.mu.RLock()
	s := Summary{
		Name:    d.name,
		Healthy: d.healthy,
		Level:   d.level,
	}
	if !d.lastChecked.IsZero() {
		at := d.lastChecked
		s.LastChecked = &at
	}
	last := d.lastResult
	d.mu.RUnlock()

	if imp, ok := d.strategy.(SummaryImprover); ok {
		imp.ImproveSummary(&s, last)
	}
	return s
}

// Cleanup releases the strategy's resources. Safe to call repeatedly.
func (d *Dependency) Cleanup(ctx context.Context) error {
	return d.strategy.Cleanup(ctx)
}
