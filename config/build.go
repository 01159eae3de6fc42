package config

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/jonwraymond/copacetic/backoff"
	"github.com/jonwraymond/copacetic/health"
	"github.com/jonwraymond/copacetic/probe"
	"github.com/jonwraymond/copacetic/secret"
)

// ResolveSecrets replaces secret references in dependency URLs, probe
// options and guard credentials. It uses secret.DefaultRegistry plus the
// providers configured under secrets.providers.
func (c *Config) ResolveSecrets(ctx context.Context) (err error) {
	r, err := secret.NewResolverFromRegistry(secret.DefaultRegistry, c.Secrets.Strict, c.Secrets.Providers)
	if err != nil {
		return fmt.Errorf("config: secrets: %w", err)
	}
	defer func() {
		err = multierr.Append(err, r.Close())
	}()

	for i := range c.Dependencies {
		d := &c.Dependencies[i]
		if d.URL, err = r.ResolveValue(ctx, d.URL); err != nil {
			return fmt.Errorf("config: dependency %q url: %w", d.Name, err)
		}
		if d.Options, err = r.ResolveOptions(ctx, d.Options); err != nil {
			return fmt.Errorf("config: dependency %q options: %w", d.Name, err)
		}
	}

	guard := &c.HTTP.Guard
	if guard.JWTSecret, err = r.ResolveValue(ctx, guard.JWTSecret); err != nil {
		return fmt.Errorf("config: guard jwt secret: %w", err)
	}
	if guard.APIKeys, err = r.ResolveSlice(ctx, guard.APIKeys); err != nil {
		return fmt.Errorf("config: guard api keys: %w", err)
	}
	return nil
}

// BackoffFactory returns a factory creating one exponential policy per
// dependency from c.Backoff.
func (c *Config) BackoffFactory() func() (*backoff.Policy, error) {
	bc := backoff.ExponentialConfig{Constant: c.Backoff.Constant, Multiplier: c.Backoff.Multiplier}
	return func() (*backoff.Policy, error) {
		return backoff.NewExponentialPolicy(bc)
	}
}

// BuildRegistry registers every configured dependency on a new registry
// named after the service. Probes come from probe.NewFactory unless opts
// select another factory. On error every dependency registered so far is
// cleaned up.
func BuildRegistry(ctx context.Context, c *Config, opts ...health.RegistryOption) (*health.Registry, error) {
	base := []health.RegistryOption{
		health.WithStrategyFactory(probe.NewFactory()),
		health.WithBackoffFactory(c.BackoffFactory()),
	}
	reg := health.NewRegistry(c.Service.Name, append(base, opts...)...)

	for _, d := range c.Dependencies {
		level, err := health.ParseLevel(d.Level)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("config: dependency %q: %w", d.Name, err), reg.Close(ctx))
		}
		_, err = reg.Register(health.Options{
			Name:           d.Name,
			URL:            d.URL,
			Level:          level,
			StrategyConfig: health.StrategyConfig{Type: d.Type, Options: d.Options},
		})
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("config: dependency %q: %w", d.Name, err), reg.Close(ctx))
		}
	}
	return reg, nil
}

// SchedulerOptions returns the scheduler settings of c.
func (c *Config) SchedulerOptions() []health.SchedulerOption {
	mode := health.ModeDirect
	if c.Poll.Mode == ModeEvents {
		mode = health.ModeEvents
	}
	return []health.SchedulerOption{
		health.WithMode(mode),
		health.WithConcurrency(c.Concurrency),
	}
}

// PollOptions returns the options polling every dependency at c.Poll's
// cadence.
func (c *Config) PollOptions() (health.PollOptions, error) {
	schedule, err := health.ParseSchedule(c.Poll.Schedule)
	if err != nil {
		return health.PollOptions{}, fmt.Errorf("config: %w", err)
	}
	return health.PollOptions{
		Interval:   c.Poll.Interval,
		All:        true,
		Sequential: c.Poll.Sequential,
		Schedule:   schedule,
	}, nil
}

// WaitOptions returns check options waiting on names, or on every
// configured dependency when names is empty.
func (c *Config) WaitOptions(names ...string) health.CheckOptions {
	if len(names) == 0 {
		for _, d := range c.Dependencies {
			names = append(names, d.Name)
		}
	}
	entries := make([]health.CheckEntry, len(names))
	for i, n := range names {
		entries[i] = health.CheckEntry{Name: n, MaxDelay: c.Wait.MaxDelay}
	}
	return health.CheckOptions{Dependencies: entries, Sequential: c.Poll.Sequential}
}
