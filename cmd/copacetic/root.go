package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/jonwraymond/copacetic/config"
	"github.com/jonwraymond/copacetic/health"
	"github.com/jonwraymond/copacetic/observe"
	"github.com/jonwraymond/copacetic/observe/exporters"
)

var errUnhealthy = errors.New("copacetic: service is unhealthy")

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "copacetic",
		Short: "Dependency health checks for services",
		Long: `Copacetic probes the dependencies a service relies on (HTTP endpoints,
Redis, Postgres, MongoDB, remote copacetic instances) and reports whether the
service is healthy. HARD dependencies decide the service's health; SOFT
dependencies are reported but never fail it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to copacetic.yaml (default: ./copacetic.yaml or ./config/copacetic.yaml)")

	root.AddCommand(newCheckCmd(&configPath))
	root.AddCommand(newWaitCmd(&configPath))
	root.AddCommand(newServeCmd(&configPath))
	return root
}

// app is the wiring shared by every command.
type app struct {
	cfg       *config.Config
	obs       observe.Observer
	mw        *observe.Middleware
	registry  *health.Registry
	scheduler *health.Scheduler
	logger    observe.Logger
}

func setup(ctx context.Context, configPath string, opts ...exporters.Option) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ResolveSecrets(ctx); err != nil {
		return nil, err
	}

	obs, err := observe.NewObserver(ctx, cfg.Observe, opts...)
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, multierr.Append(err, obs.Shutdown(ctx))
	}

	reg, err := config.BuildRegistry(ctx, cfg, health.WithInterceptor(mw.Interceptor()))
	if err != nil {
		return nil, multierr.Append(err, obs.Shutdown(ctx))
	}

	a := &app{
		cfg:       cfg,
		obs:       obs,
		mw:        mw,
		registry:  reg,
		scheduler: health.NewScheduler(reg, cfg.SchedulerOptions()...),
		logger:    obs.Logger(),
	}
	if cfg.Source != "" {
		a.logger.Debug(ctx, "loaded config file", observe.Field{Key: "file", Value: cfg.Source})
	}
	return a, nil
}

func (a *app) close(ctx context.Context) error {
	return multierr.Combine(
		a.registry.Close(ctx),
		a.obs.Shutdown(ctx),
	)
}

// directScheduler returns a scheduler that always hands results back to the
// caller, whatever poll.mode says.
func (a *app) directScheduler() *health.Scheduler {
	opts := append(a.cfg.SchedulerOptions(), health.WithMode(health.ModeDirect))
	return health.NewScheduler(a.registry, opts...)
}
