// Package probe provides health.Strategy implementations.
//
//   - HTTP: GET the target; any status >= 400 is a failure.
//   - Remote: read another service's health report; healthy only when the
//     remote reports itself healthy. Its dependencies are attached to the
//     summary.
//   - ConnectThenPing: connect once, then ping the open connection. Backs
//     the Redis and MongoDB strategies.
//   - Ping: ping the target, connecting lazily. Backs the Postgres strategy.
//   - Memory: check the process's own heap against thresholds.
//
// Factory builds any of these from a health.StrategyConfig:
//
//	reg := health.NewRegistry("orders", health.WithStrategyFactory(probe.NewFactory()))
//	reg.Register(health.Options{
//	    Name: "cache",
//	    URL:  "redis://cache:6379/0",
//	    StrategyConfig: health.StrategyConfig{
//	        Type:    "redis",
//	        Options: map[string]any{"timeout": "2 seconds"},
//	    },
//	})
package probe
