package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Mode selects how Check and WaitFor deliver results.
type Mode int

const (
	// ModeDirect returns results to the caller. Default.
	ModeDirect Mode = iota
	// ModeEvents runs checks in the background and emits events.
	ModeEvents
)

// CheckEntry names one dependency of a batch check.
type CheckEntry struct {
	Name string `mapstructure:"name"`

	// Retries is the attempt budget. 0 means DefaultRetries, RetryForever
	// retries until success.
	Retries int `mapstructure:"retries"`

	// MaxDelay caps retry delays. 0 means DefaultMaxDelay, NoMaxDelay
	// leaves them unbounded.
	MaxDelay time.Duration `mapstructure:"max_delay"`
}

func (e CheckEntry) limits() (int, time.Duration) {
	retries, maxDelay := e.Retries, e.MaxDelay
	if retries == 0 {
		retries = DefaultRetries
	}
	if maxDelay == 0 {
		maxDelay = DefaultMaxDelay
	}
	return retries, maxDelay
}

// CheckOptions selects what Check runs. Exactly one of Name or
// Dependencies must be set.
type CheckOptions struct {
	// Name checks a single dependency.
	Name string

	// Dependencies checks a batch.
	Dependencies []CheckEntry

	// Retries and MaxDelay apply to Name; see CheckEntry.
	Retries  int
	MaxDelay time.Duration

	// Sequential checks a batch in order instead of concurrently.
	Sequential bool
}

// Scheduler runs one-shot and repeating checks over a Registry.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Probe failures never surface as errors from batch operations; they are
//   reflected in the returned summaries. Lookup and configuration errors are
//   returned synchronously.
type Scheduler struct {
	registry    *Registry
	mode        Mode
	concurrency int

	events emitter
	flight singleflight.Group

	mu      sync.Mutex
	session *PollSession
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithMode selects direct or event delivery for Check and WaitFor.
func WithMode(m Mode) SchedulerOption {
	return func(s *Scheduler) {
		s.mode = m
	}
}

// WithConcurrency limits how many checks of a parallel batch run at once.
// Zero means no limit.
func WithConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) {
		s.concurrency = n
	}
}

// NewScheduler creates a scheduler over registry.
func NewScheduler(registry *Registry, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{registry: registry}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the scheduler's registry.
func (s *Scheduler) Registry() *Registry {
	return s.registry
}

// On registers a listener for t and returns a function removing it.
func (s *Scheduler) On(t EventType, l Listener) (remove func()) {
	return s.events.on(t, l)
}

// CheckOne checks a single dependency.
func (s *Scheduler) CheckOne(ctx context.Context, name string, retries int, maxDelay time.Duration) (Summary, error) {
	dep, ok := s.registry.Get(name)
	if !ok {
		return Summary{}, unknown(name)
	}
	r, d := CheckEntry{Retries: retries, MaxDelay: maxDelay}.limits()
	return dep.Check(ctx, r, d)
}

// CheckShared is CheckOne with default limits, coalescing concurrent calls
// for the same name into one run. The shared run does not end with ctx; a
// caller whose ctx ends first gets the dependency's current summary and
// ctx.Err().
func (s *Scheduler) CheckShared(ctx context.Context, name string) (Summary, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(name, func() (any, error) {
		return s.CheckOne(detached, name, 0, 0)
	})

	select {
	case res := <-ch:
		summary, _ := res.Val.(Summary)
		return summary, res.Err
	case <-ctx.Done():
		dep, ok := s.registry.Get(name)
		if !ok {
			return Summary{}, ctx.Err()
		}
		return dep.Summary(), ctx.Err()
	}
}

// CheckMany checks entries concurrently or in order and returns one summary
// per entry, in entry order. All names are resolved before any check
// starts. A dependency deregistered while its check is in flight is left
// out of the result.
func (s *Scheduler) CheckMany(ctx context.Context, entries []CheckEntry, parallel bool) ([]Summary, error) {
	deps, err := s.resolve(entries)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, deps, entries, parallel), nil
}

// CheckAll checks every registered dependency once with DefaultRetries.
func (s *Scheduler) CheckAll(ctx context.Context, parallel bool) ([]Summary, error) {
	return s.CheckMany(ctx, s.allEntries(), parallel)
}

// Check runs a single or batch check. In ModeDirect it blocks and returns
// the summaries; for a single check an unhealthy dependency also yields an
// *UnhealthyError. In ModeEvents it returns immediately after resolving the
// names and emits healthy/unhealthy (single) or health (batch) when done.
//
// A single dependency deregistered while its check runs yields
// ErrUnknownDependency, and no event in ModeEvents. A single check
// interrupted by ctx emits nothing.
func (s *Scheduler) Check(ctx context.Context, opts CheckOptions) ([]Summary, error) {
	switch {
	case opts.Name != "" && len(opts.Dependencies) > 0:
		return nil, invalid("check: set either Name or Dependencies, not both")
	case opts.Name == "" && len(opts.Dependencies) == 0:
		return nil, invalid("check: Name or Dependencies is required")
	}

	if opts.Name != "" {
		dep, ok := s.registry.Get(opts.Name)
		if !ok {
			return nil, unknown(opts.Name)
		}
		retries, maxDelay := CheckEntry{Retries: opts.Retries, MaxDelay: opts.MaxDelay}.limits()

		if s.mode == ModeEvents {
			go func() {
				summary, err := dep.Check(ctx, retries, maxDelay)
				if !s.registry.owns(dep) || (err != nil && !errors.Is(err, ErrUnhealthy)) {
					return
				}
				t := EventHealthy
				if err != nil {
					t = EventUnhealthy
				}
				s.events.emit(Event{Type: t, Health: []Summary{summary}})
			}()
			return nil, nil
		}

		summary, err := dep.Check(ctx, retries, maxDelay)
		if !s.registry.owns(dep) {
			return nil, unknown(opts.Name)
		}
		return []Summary{summary}, err
	}

	deps, err := s.resolve(opts.Dependencies)
	if err != nil {
		return nil, err
	}

	if s.mode == ModeEvents {
		go func() {
			s.events.emit(Event{
				Type:   EventHealth,
				Health: s.run(ctx, deps, opts.Dependencies, !opts.Sequential),
			})
		}()
		return nil, nil
	}

	return s.run(ctx, deps, opts.Dependencies, !opts.Sequential), nil
}

// WaitFor is Check with every entry retrying until it is healthy. Entry
// delays default to unbounded; a single Name keeps its MaxDelay default.
// Use a ctx deadline to give up.
func (s *Scheduler) WaitFor(ctx context.Context, opts CheckOptions) ([]Summary, error) {
	opts.Retries = RetryForever
	if len(opts.Dependencies) > 0 {
		entries := make([]CheckEntry, len(opts.Dependencies))
		for i, e := range opts.Dependencies {
			maxDelay := e.MaxDelay
			if maxDelay == 0 {
				maxDelay = NoMaxDelay
			}
			entries[i] = CheckEntry{Name: e.Name, Retries: RetryForever, MaxDelay: maxDelay}
		}
		opts.Dependencies = entries
	}
	return s.Check(ctx, opts)
}

func (s *Scheduler) resolve(entries []CheckEntry) ([]*Dependency, error) {
	deps := make([]*Dependency, len(entries))
	for i, e := range entries {
		dep, ok := s.registry.Get(e.Name)
		if !ok {
			return nil, unknown(e.Name)
		}
		deps[i] = dep
	}
	return deps, nil
}

func (s *Scheduler) allEntries() []CheckEntry {
	names := s.registry.Names()
	entries := make([]CheckEntry, len(names))
	for i, name := range names {
		entries[i] = CheckEntry{Name: name, Retries: DefaultRetries}
	}
	return entries
}

// run checks deps[i] with entries[i]'s limits.
func (s *Scheduler) run(ctx context.Context, deps []*Dependency, entries []CheckEntry, parallel bool) []Summary {
	summaries := make([]Summary, len(deps))
	kept := make([]bool, len(deps))

	checkOne := func(i int) {
		retries, maxDelay := entries[i].limits()
		summary, _ := deps[i].Check(ctx, retries, maxDelay)
		if s.registry.owns(deps[i]) {
			summaries[i] = summary
			kept[i] = true
		}
	}

	if parallel {
		var g errgroup.Group
		if s.concurrency > 0 {
			g.SetLimit(s.concurrency)
		}
		for i := range deps {
			g.Go(func() error {
				checkOne(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range deps {
			checkOne(i)
		}
	}

	out := summaries[:0]
	for i, summary := range summaries {
		if kept[i] {
			out = append(out, summary)
		}
	}
	return out
}

func unknown(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownDependency, name)
}
