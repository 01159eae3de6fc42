// Package observe instruments dependency health checks with OpenTelemetry.
//
// An Observer owns the trace and metric providers. A Middleware built from it
// wraps every probe attempt through health.WithInterceptor, producing one
// span named dependency.check.<name>, the dependency.check.* counters and
// histogram, and a structured log line per attempt. RegisterHealthGauges
// exports the registry's last known state as gauges.
//
//	obs, _ := observe.NewObserver(ctx, cfg)
//	mw, _ := observe.MiddlewareFromObserver(obs)
//	reg := health.NewRegistry("orders", health.WithInterceptor(mw.Interceptor()))
//	_, _ = observe.RegisterHealthGauges(obs.Meter(), reg)
package observe
