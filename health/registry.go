package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/jonwraymond/copacetic/backoff"
)

// Options registers one dependency.
type Options struct {
	// Name identifies the dependency. Required.
	Name string

	// URL locates the dependency.
	URL string

	// Level defaults to SOFT.
	Level Level

	// Strategy is used as-is when set. Otherwise StrategyConfig is built by
	// the registry's StrategyFactory.
	Strategy Strategy

	// StrategyConfig selects a strategy by type. Type defaults to "http".
	StrategyConfig StrategyConfig

	// Backoff defaults to the registry's backoff factory.
	Backoff *backoff.Policy
}

// Named is anything that identifies a dependency by name.
type Named interface {
	Name() string
}

// Registry is a service's table of dependencies.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Names are unique; HealthInfo preserves registration order.
type Registry struct {
	name        string
	factory     StrategyFactory
	interceptor Interceptor
	newBackoff  func() (*backoff.Policy, error)

	mu    sync.RWMutex
	deps  map[string]*Dependency
	order []string
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithStrategyFactory builds strategies for Options without a Strategy.
func WithStrategyFactory(f StrategyFactory) RegistryOption {
	return func(r *Registry) {
		r.factory = f
	}
}

// WithInterceptor wraps every probe attempt of every dependency.
func WithInterceptor(i Interceptor) RegistryOption {
	return func(r *Registry) {
		r.interceptor = i
	}
}

// WithBackoffFactory overrides the default per-dependency backoff policy.
func WithBackoffFactory(f func() (*backoff.Policy, error)) RegistryOption {
	return func(r *Registry) {
		r.newBackoff = f
	}
}

// DefaultBackoff is the policy given to dependencies registered without one:
// exponential with a one second multiplier, three attempts, no delay cap.
func DefaultBackoff() (*backoff.Policy, error) {
	return backoff.NewExponentialPolicy(
		backoff.ExponentialConfig{Multiplier: time.Second},
		backoff.WithRetries(3),
	)
}

// NewRegistry creates an empty registry for the named service.
func NewRegistry(name string, opts ...RegistryOption) *Registry {
	r := &Registry{
		name:       name,
		newBackoff: DefaultBackoff,
		deps:       make(map[string]*Dependency),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the owning service name.
func (r *Registry) Name() string {
	return r.name
}

// Register builds and adds a dependency. It fails with
// ErrDuplicateDependency when the name is taken, leaving the registry as is.
func (r *Registry) Register(opts Options) (*Dependency, error) {
	if opts.Level == "" {
		opts.Level = LevelSoft
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.deps[opts.Name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateDependency, opts.Name)
	}

	strategy := opts.Strategy
	if strategy == nil {
		if r.factory == nil {
			return nil, invalid("dependency %q: no strategy and no strategy factory", opts.Name)
		}
		cfg := opts.StrategyConfig
		if cfg.Type == "" {
			cfg.Type = DefaultStrategyType
		}
		built, err := r.factory.Build(cfg)
		if err != nil {
			return nil, fmt.Errorf("dependency %q: %w", opts.Name, err)
		}
		strategy = built
	}

	policy := opts.Backoff
	if policy == nil {
		p, err := r.newBackoff()
		if err != nil {
			return nil, fmt.Errorf("dependency %q: %w", opts.Name, err)
		}
		policy = p
	}

	dep, err := NewDependency(DependencyConfig{
		Name:        opts.Name,
		URL:         opts.URL,
		Level:       opts.Level,
		Strategy:    strategy,
		Backoff:     policy,
		Interceptor: r.interceptor,
	})
	if err != nil {
		if opts.Strategy == nil {
			_ = strategy.Cleanup(context.Background())
		}
		return nil, err
	}

	r.deps[dep.name] = dep
	r.order = append(r.order, dep.name)
	return dep, nil
}

// Deregister cleans up and removes the named dependency. The dependency is
// removed even when cleanup fails; the cleanup error is returned.
func (r *Registry) Deregister(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dep, ok := r.deps[name]
	if !ok {
		return unknown(name)
	}

	err := dep.Cleanup(ctx)

	delete(r.deps, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if err != nil {
		return fmt.Errorf("health: cleanup %q: %w", name, err)
	}
	return nil
}

// DeregisterDependency is Deregister by d.Name().
func (r *Registry) DeregisterDependency(ctx context.Context, d Named) error {
	return r.Deregister(ctx, d.Name())
}

// Get returns the named dependency.
func (r *Registry) Get(name string) (*Dependency, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dep, ok := r.deps[name]
	return dep, ok
}

// Resolve looks a dependency up by d.Name().
func (r *Registry) Resolve(d Named) (*Dependency, bool) {
	return r.Get(d.Name())
}

// IsRegistered reports whether name is registered.
func (r *Registry) IsRegistered(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// owns reports whether dep is still the registered dependency for its name.
func (r *Registry) owns(dep *Dependency) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.deps[dep.name] == dep
}

// Names returns dependency names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered dependencies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Registry) dependencies() []*Dependency {
	r.mu.RLock()
	defer r.mu.RUnlock()

	deps := make([]*Dependency, len(r.order))
	for i, name := range r.order {
		deps[i] = r.deps[name]
	}
	return deps
}

// IsHealthy is false iff at least one HARD dependency is unhealthy.
func (r *Registry) IsHealthy() bool {
	for _, dep := range r.dependencies() {
		if dep.level == LevelHard && !dep.Healthy() {
			return false
		}
	}
	return true
}

// HealthInfo returns every dependency's summary in registration order.
func (r *Registry) HealthInfo() []Summary {
	deps := r.dependencies()
	info := make([]Summary, len(deps))
	for i, dep := range deps {
		info[i] = dep.Summary()
	}
	return info
}

// Report returns the aggregate health of the service.
func (r *Registry) Report() Report {
	info := r.HealthInfo()
	healthy := true
	for _, s := range info {
		if s.Level == LevelHard && !s.Healthy {
			healthy = false
			break
		}
	}
	name := r.name
	if name == "" {
		name = "service"
	}
	return Report{Name: name, Healthy: healthy, Dependencies: info}
}

// Close cleans up and removes every dependency.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	deps := make([]*Dependency, len(r.order))
	for i, name := range r.order {
		deps[i] = r.deps[name]
	}
	r.deps = make(map[string]*Dependency)
	r.order = nil
	r.mu.Unlock()

	var err error
	for _, dep := range deps {
		if cerr := dep.Cleanup(ctx); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("health: cleanup %q: %w", dep.name, cerr))
		}
	}
	return err
}
