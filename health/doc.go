// Package health tracks the health of a service's external dependencies.
//
// A Dependency binds a name to a probe Strategy, a backoff.Policy and a
// Level. A Registry holds a service's dependencies and computes its
// aggregate health: the service is unhealthy as soon as one HARD dependency
// is unhealthy. SOFT dependencies are reported but never flip the verdict.
//
// A Scheduler runs checks over a Registry: one-shot (CheckOne, CheckMany,
// CheckAll, Check), gating (WaitFor) and repeating (Poll).
//
// # Basic Usage
//
//	reg := health.NewRegistry("orders", health.WithStrategyFactory(probe.NewFactory()))
//	_, err := reg.Register(health.Options{
//	    Name:  "inventory",
//	    URL:   "http://inventory:8080/health",
//	    Level: health.LevelHard,
//	})
//
//	s := health.NewScheduler(reg)
//	summaries, err := s.CheckAll(ctx, true)
//	fmt.Println(reg.IsHealthy())
//
// # Polling
//
//	s.On(health.EventHealth, func(ev health.Event) {
//	    log.Printf("round: %d dependencies", len(ev.Health))
//	})
//	sess, err := s.PollAll(ctx, 5*time.Second, health.ScheduleStart, false)
//	...
//	sess.Stop()
//	<-sess.Done()
//
// # Failures
//
// Probe failures are retried by the dependency's backoff policy and then
// absorbed into its Summary; batch operations never return them. Single
// checks return an *UnhealthyError carrying the Summary. Lookup and
// configuration problems are returned immediately as ErrUnknownDependency,
// ErrDuplicateDependency or ErrInvalidConfig.
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, s, health.HandlerConfig{Verbose: true})
package health
