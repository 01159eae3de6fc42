package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Schedule selects how the delay between poll rounds is measured.
type Schedule string

const (
	// ScheduleStart measures the interval from the start of a round, so the
	// cadence absorbs the round's own duration. Default.
	ScheduleStart Schedule = "start"

	// ScheduleEnd waits the full interval after a round completes.
	ScheduleEnd Schedule = "end"
)

// ParseSchedule parses "start" or "end". Empty input yields ScheduleStart.
func ParseSchedule(s string) (Schedule, error) {
	switch Schedule(s) {
	case "":
		return ScheduleStart, nil
	case ScheduleStart, ScheduleEnd:
		return Schedule(s), nil
	default:
		return "", invalid("schedule must be %q or %q, got %q", ScheduleStart, ScheduleEnd, s)
	}
}

// PollOptions configures a repeating check. At most one of Name,
// Dependencies or All may be set; none means All.
type PollOptions struct {
	// Interval is the round cadence. Required.
	Interval time.Duration

	// Name polls a single dependency with one attempt per round.
	Name string

	// MaxDelay applies to Name. 0 means DefaultMaxDelay.
	MaxDelay time.Duration

	// Dependencies polls an explicit set. Names not registered at the start
	// of a round are skipped for that round.
	Dependencies []CheckEntry

	// All polls every dependency registered at the start of each round,
	// once each.
	All bool

	// Sequential checks a round in order instead of concurrently.
	Sequential bool

	// Schedule defaults to ScheduleStart.
	Schedule Schedule
}

// PollSession is a running poll loop.
type PollSession struct {
	id      string
	stopped atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newPollSession() *PollSession {
	return &PollSession{
		id:   uuid.NewString(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// ID identifies the session in emitted events.
func (p *PollSession) ID() string { return p.id }

// Done is closed after the loop has exited and emitted EventStopped.
func (p *PollSession) Done() <-chan struct{} { return p.done }

// Stop prevents further rounds. A round in flight finishes and emits its
// results; probes are not interrupted. Safe to call repeatedly.
func (p *PollSession) Stop() {
	p.once.Do(func() {
		p.stopped.Store(true)
		close(p.stop)
	})
}

// Poll starts a poll loop in the background and returns its session. The
// first round starts immediately. Every round emits EventHealth; the loop
// emits EventStopped once when it exits, after Stop or when ctx ends.
//
// Only one loop runs per Scheduler; Poll fails with ErrAlreadyPolling while
// one is active. A stopped loop still finishing its round does not count:
// the new loop starts its first round once the old one has exited.
func (s *Scheduler) Poll(ctx context.Context, opts PollOptions) (*PollSession, error) {
	if opts.Interval <= 0 {
		return nil, invalid("poll: interval must be positive, got %s", opts.Interval)
	}
	schedule, err := ParseSchedule(string(opts.Schedule))
	if err != nil {
		return nil, err
	}
	opts.Schedule = schedule

	targets := 0
	if opts.Name != "" {
		targets++
	}
	if len(opts.Dependencies) > 0 {
		targets++
	}
	if opts.All {
		targets++
	}
	switch {
	case targets > 1:
		return nil, invalid("poll: set only one of Name, Dependencies or All")
	case targets == 0:
		opts.All = true
	}
	if opts.Name != "" && !s.registry.IsRegistered(opts.Name) {
		return nil, unknown(opts.Name)
	}

	s.mu.Lock()
	prev := s.session
	if prev != nil && !prev.stopped.Load() {
		s.mu.Unlock()
		return nil, ErrAlreadyPolling
	}
	sess := newPollSession()
	s.session = sess
	s.mu.Unlock()

	go s.loop(ctx, sess, prev, opts)
	return sess, nil
}

// PollAll polls every registered dependency.
func (s *Scheduler) PollAll(ctx context.Context, interval time.Duration, schedule Schedule, sequential bool) (*PollSession, error) {
	return s.Poll(ctx, PollOptions{
		Interval:   interval,
		All:        true,
		Sequential: sequential,
		Schedule:   schedule,
	})
}

// Stop stops the active poll loop, if any.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	if sess != nil {
		sess.Stop()
	}
}

// IsPolling reports whether a poll loop is active and not stopped.
func (s *Scheduler) IsPolling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil && !s.session.stopped.Load()
}

func (s *Scheduler) loop(ctx context.Context, sess, prev *PollSession, opts PollOptions) {
	defer func() {
		s.mu.Lock()
		if s.session == sess {
			s.session = nil
		}
		s.mu.Unlock()

		s.events.emit(Event{Type: EventStopped, Session: sess.id})
		close(sess.done)
	}()

	// Rounds never overlap, so prev's in-flight round finishes first.
	if prev != nil {
		<-prev.done
		if sess.stopped.Load() || ctx.Err() != nil {
			return
		}
	}

	for {
		start := time.Now()
		summaries := s.round(ctx, opts)
		if ctx.Err() != nil {
			return
		}
		s.events.emit(Event{Type: EventHealth, Health: summaries, Session: sess.id})

		if sess.stopped.Load() {
			return
		}

		delay := opts.Interval
		if opts.Schedule == ScheduleStart {
			delay = max(delay-time.Since(start), 0)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-sess.stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (s *Scheduler) round(ctx context.Context, opts PollOptions) []Summary {
	if opts.Name != "" {
		dep, ok := s.registry.Get(opts.Name)
		if !ok {
			return nil
		}
		_, maxDelay := CheckEntry{MaxDelay: opts.MaxDelay}.limits()
		summary, _ := dep.Check(ctx, 1, maxDelay)
		if !s.registry.owns(dep) {
			return nil
		}
		return []Summary{summary}
	}

	entries := opts.Dependencies
	if opts.All {
		entries = s.allEntries()
	}

	deps := make([]*Dependency, 0, len(entries))
	known := make([]CheckEntry, 0, len(entries))
	for _, e := range entries {
		if dep, ok := s.registry.Get(e.Name); ok {
			deps = append(deps, dep)
			known = append(known, e)
		}
	}
	return s.run(ctx, deps, known, !opts.Sequential)
}
