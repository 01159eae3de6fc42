package observe

import (
	"context"
	"time"

	"github.com/jonwraymond/copacetic/health"
)

// Middleware instruments dependency probes with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Interceptor() returns a function safe for concurrent use.
//   - Context: the span context is passed to the probe.
//   - Errors: probe errors are recorded and returned unchanged.
//   - Ownership: probe results are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	if logger == nil {
		logger = &noopLogger{}
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// Interceptor returns a health.Interceptor that wraps every probe attempt.
// Install it with health.WithInterceptor.
func (m *Middleware) Interceptor() health.Interceptor {
	return func(ctx context.Context, dep *health.Dependency, next health.ProbeFunc) (any, error) {
		meta := MetaFor(dep)

		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		result, err := next(ctx)

		duration := time.Since(start)
		exported := meta.RedactError(err)
		m.tracer.EndSpan(span, exported)
		m.metrics.RecordCheck(ctx, meta, duration, exported)

		log := m.logger.WithDependency(meta)
		fields := []Field{{Key: "duration_ms", Value: float64(duration) / float64(time.Millisecond)}}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: exported.Error()})
			log.Warn(ctx, "dependency probe failed", fields...)
		} else {
			log.Debug(ctx, "dependency probe succeeded", fields...)
		}

		return result, err
	}
}

// Listener returns a health.Listener that logs scheduler events.
// Register it for each event type of interest with Scheduler.On.
func (m *Middleware) Listener() health.Listener {
	return EventLogger(m.logger)
}

// EventLogger returns a health.Listener that logs scheduler events to logger.
func EventLogger(logger Logger) health.Listener {
	return func(ev health.Event) {
		ctx := context.Background()

		switch ev.Type {
		case health.EventStopped:
			logger.Info(ctx, "health polling stopped", Field{Key: "session", Value: ev.Session})
			return
		case health.EventHealth:
			healthy := 0
			for _, s := range ev.Health {
				if s.Healthy {
					healthy++
				}
			}
			fields := []Field{
				{Key: "dependencies", Value: len(ev.Health)},
				{Key: "healthy", Value: healthy},
			}
			if ev.Session != "" {
				fields = append(fields, Field{Key: "session", Value: ev.Session})
			}
			logger.Debug(ctx, "health round completed", fields...)
		}

		for _, s := range ev.Health {
			if s.Healthy {
				continue
			}
			logger.WithDependency(DependencyMeta{Name: s.Name, Level: s.Level.String()}).
				Warn(ctx, "dependency unhealthy")
		}
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
