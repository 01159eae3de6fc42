package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/copacetic/health"
)

// Metrics records probe attempt metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCheck records one probe attempt with its duration and outcome.
	RecordCheck(ctx context.Context, meta DependencyMeta, duration time.Duration, err error)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	failureCount metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates the probe attempt instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"dependency.check.total",
		metric.WithDescription("Total number of dependency probe attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	failureCount, err := meter.Int64Counter(
		"dependency.check.failures",
		metric.WithDescription("Total number of failed dependency probe attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"dependency.check.duration_ms",
		metric.WithDescription("Dependency probe attempt duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		failureCount: failureCount,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordCheck(ctx context.Context, meta DependencyMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{attribute.String("dependency.name", meta.Name)}
	if meta.Level != "" {
		attrs = append(attrs, attribute.String("dependency.level", meta.Level))
	}
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.failureCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration)/float64(time.Millisecond), opt)
}

type noopMetrics struct{}

func (m *noopMetrics) RecordCheck(context.Context, DependencyMeta, time.Duration, error) {}

// RegisterHealthGauges exports the last known health of every dependency in
// reg as dependency.healthy (1 or 0 per dependency) and the aggregate as
// service.healthy. Unregister the returned registration to stop observing.
func RegisterHealthGauges(meter metric.Meter, reg *health.Registry) (metric.Registration, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}

	depGauge, err := meter.Int64ObservableGauge(
		"dependency.healthy",
		metric.WithDescription("1 when the dependency passed its last check, 0 otherwise"),
	)
	if err != nil {
		return nil, err
	}

	svcGauge, err := meter.Int64ObservableGauge(
		"service.healthy",
		metric.WithDescription("1 when no HARD dependency is unhealthy, 0 otherwise"),
	)
	if err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for _, s := range reg.HealthInfo() {
			o.ObserveInt64(depGauge, boolValue(s.Healthy), metric.WithAttributes(
				attribute.String("dependency.name", s.Name),
				attribute.String("dependency.level", s.Level.String()),
			))
		}
		o.ObserveInt64(svcGauge, boolValue(reg.IsHealthy()), metric.WithAttributes(
			attribute.String("service.name", reg.Name()),
		))
		return nil
	}, depGauge, svcGauge)
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
