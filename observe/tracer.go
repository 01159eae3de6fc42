package observe

import (
	"context"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/copacetic/health"
)

// DependencyMeta describes a dependency for telemetry purposes.
type DependencyMeta struct {
	Name   string // Dependency name (required)
	Level  string // HARD or SOFT
	Target string // Probe target; credentials are redacted before export
}

// MetaFor builds the telemetry metadata of dep.
func MetaFor(dep *health.Dependency) DependencyMeta {
	return DependencyMeta{
		Name:   dep.Name(),
		Level:  dep.Level().String(),
		Target: dep.URL(),
	}
}

// SpanName returns the span name for a probe attempt: dependency.check.<name>.
func (m DependencyMeta) SpanName() string {
	return "dependency.check." + m.Name
}

// RedactedTarget returns Target with any URL password masked.
// Targets that do not parse as URLs are returned unchanged.
func (m DependencyMeta) RedactedTarget() string {
	u, err := url.Parse(m.Target)
	if err != nil || u.User == nil {
		return m.Target
	}
	return u.Redacted()
}

// RedactError returns err with the target's password masked in its
// message. The result still unwraps to err.
func (m DependencyMeta) RedactError(err error) error {
	if err == nil {
		return nil
	}
	u, perr := url.Parse(m.Target)
	if perr != nil || u.User == nil {
		return err
	}
	password, ok := u.User.Password()
	if !ok || password == "" {
		return err
	}

	msg := strings.ReplaceAll(err.Error(), m.Target, u.Redacted())
	for _, p := range []string{password, url.QueryEscape(password), url.PathEscape(password)} {
		msg = strings.ReplaceAll(msg, p, "xxxxx")
	}
	if msg == err.Error() {
		return err
	}
	return &redactedError{msg: msg, err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }

func (m DependencyMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("dependency.name", m.Name)}
	if m.Level != "" {
		attrs = append(attrs, attribute.String("dependency.level", m.Level))
	}
	if m.Target != "" {
		attrs = append(attrs, attribute.String("dependency.target", m.RedactedTarget()))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with dependency span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a span for one probe attempt.
	StartSpan(ctx context.Context, meta DependencyMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta DependencyMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("dependency.error", false))

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("dependency.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta DependencyMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
