package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/copacetic/health"
	"github.com/jonwraymond/copacetic/observe"
	"github.com/jonwraymond/copacetic/observe/exporters"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Poll dependencies and serve health endpoints",
		Long: `Poll every configured dependency at poll.interval and serve:
  /healthz       liveness
  /readyz        readiness (503 while a HARD dependency is unhealthy)
  /health        JSON report
  /health/check  on-demand check of one dependency (?name=)
  /metrics       Prometheus metrics, when observe.metrics uses prometheus`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			promRegistry := promclient.NewRegistry()
			a, err := setup(ctx, *configPath, exporters.WithRegisterer(promRegistry))
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				a.cfg.HTTP.Addr = addr
			}

			lis, err := net.Listen("tcp", a.cfg.HTTP.Addr)
			if err != nil {
				return errors.Join(err, a.close(context.WithoutCancel(ctx)))
			}
			return serve(ctx, a, lis, promRegistry)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: http.addr)")
	return cmd
}

// serve runs the poll loop and HTTP server on lis until ctx ends, then
// shuts both down and releases a.
func serve(ctx context.Context, a *app, lis net.Listener, promRegistry *promclient.Registry) (err error) {
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		err = errors.Join(err, a.close(sctx))
	}()

	gauges, err := observe.RegisterHealthGauges(a.obs.Meter(), a.registry)
	if err != nil {
		return err
	}
	defer func() { _ = gauges.Unregister() }()

	logEvents := a.mw.Listener()
	for _, t := range []health.EventType{health.EventHealth, health.EventHealthy, health.EventUnhealthy, health.EventStopped} {
		defer a.scheduler.On(t, logEvents)()
	}

	guard, err := a.cfg.HTTP.Guard.Build()
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, a.scheduler, health.HandlerConfig{
		Verbose: a.cfg.HTTP.Verbose,
		Guard:   guard,
	})
	if a.cfg.Observe.Metrics.Enabled && a.cfg.Observe.Metrics.Exporter == "prometheus" {
		mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	pollOpts, err := a.cfg.PollOptions()
	if err != nil {
		return err
	}
	session, err := a.scheduler.Poll(ctx, pollOpts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info(gctx, "serving health endpoints",
			observe.Field{Key: "addr", Value: lis.Addr().String()},
			observe.Field{Key: "session", Value: session.ID()},
			observe.Field{Key: "dependencies", Value: a.registry.Len()},
		)
		if err := srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.scheduler.Stop()
		<-session.Done()

		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
