package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jonwraymond/copacetic/backoff"
	"github.com/jonwraymond/copacetic/health"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s data = %T, want Sum[int64]", name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordCheck(t *testing.T) {
	reader, mp := newTestMeter(t)
	m, err := newMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("newMetrics() error = %v", err)
	}

	meta := DependencyMeta{Name: "db", Level: "HARD"}
	m.RecordCheck(context.Background(), meta, 40*time.Millisecond, nil)
	m.RecordCheck(context.Background(), meta, 60*time.Millisecond, errors.New("refused"))

	rm := collect(t, reader)
	if got := sumValue(t, rm, "dependency.check.total"); got != 2 {
		t.Errorf("dependency.check.total = %d, want 2", got)
	}
	if got := sumValue(t, rm, "dependency.check.failures"); got != 1 {
		t.Errorf("dependency.check.failures = %d, want 1", got)
	}

	hist := findMetric(rm, "dependency.check.duration_ms")
	if hist == nil {
		t.Fatal("dependency.check.duration_ms not found")
	}
	data, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok || len(data.DataPoints) != 1 {
		t.Fatalf("duration data = %#v, want one histogram point", hist.Data)
	}
	dp := data.DataPoints[0]
	if dp.Count != 2 || dp.Sum != 100 {
		t.Errorf("histogram count=%d sum=%v, want 2 and 100", dp.Count, dp.Sum)
	}
	if v, ok := dp.Attributes.Value("dependency.level"); !ok || v.AsString() != "HARD" {
		t.Errorf("dependency.level attribute = %v, want HARD", v)
	}
}

func TestRegisterHealthGauges(t *testing.T) {
	reader, mp := newTestMeter(t)

	reg := health.NewRegistry("orders")
	pol := backoff.New(backoff.Constant{Delay: time.Microsecond})
	_, err := reg.Register(health.Options{
		Name:     "db",
		Level:    health.LevelHard,
		Backoff:  pol,
		Strategy: health.StrategyFunc(func(context.Context, string) (any, error) { return nil, errors.New("down") }),
	})
	if err != nil {
		t.Fatal(err)
	}

	registration, err := RegisterHealthGauges(mp.Meter("test"), reg)
	if err != nil {
		t.Fatalf("RegisterHealthGauges() error = %v", err)
	}
	defer registration.Unregister()

	gauge := func(name string) int64 {
		m := findMetric(collect(t, reader), name)
		if m == nil {
			t.Fatalf("%s not found", name)
		}
		g, ok := m.Data.(metricdata.Gauge[int64])
		if !ok || len(g.DataPoints) != 1 {
			t.Fatalf("%s data = %#v, want one gauge point", name, m.Data)
		}
		return g.DataPoints[0].Value
	}

	if got := gauge("dependency.healthy"); got != 1 {
		t.Errorf("dependency.healthy before check = %d, want 1", got)
	}

	if _, err := health.NewScheduler(reg).CheckAll(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	if got := gauge("dependency.healthy"); got != 0 {
		t.Errorf("dependency.healthy after failed check = %d, want 0", got)
	}
	if got := gauge("service.healthy"); got != 0 {
		t.Errorf("service.healthy = %d, want 0 with a HARD failure", got)
	}
}

func TestRegisterHealthGauges_NilRegistry(t *testing.T) {
	_, mp := newTestMeter(t)
	if _, err := RegisterHealthGauges(mp.Meter("test"), nil); !errors.Is(err, ErrNilRegistry) {
		t.Fatalf("RegisterHealthGauges(nil) error = %v, want ErrNilRegistry", err)
	}
}
