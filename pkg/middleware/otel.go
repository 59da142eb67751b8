package middleware

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/reconciler/pkg/vango"
)

// Default tracer name for the reconciler.
const defaultTracerName = "reconciler"

// OTelConfig configures the OpenTelemetry pass observer.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "reconciler").
	TracerName string

	// TracerProvider supplies the tracer. If nil, the global provider is used.
	TracerProvider trace.TracerProvider

	// Filter determines which passes to trace.
	// Return true to trace the pass, false to skip.
	// If nil, all passes are traced.
	Filter func(kind vango.PassKind) bool

	// AttributeExtractor adds custom attributes when a traced pass ends.
	AttributeExtractor func(stats vango.PassStats) []attribute.KeyValue

	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry pass observer.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithPassFilter sets a filter function for passes.
func WithPassFilter(filter func(kind vango.PassKind) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(stats vango.PassStats) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
	}
}

// Tracing is a vango.Observer that wraps each render pass in a span.
type Tracing struct {
	config OTelConfig
}

var _ vango.Observer = (*Tracing)(nil)

// OpenTelemetry creates a pass observer that traces every render pass.
//
// The observer:
//   - Starts a span per pass, named after the pass kind
//   - Records render, skip, failure and patch counts as span attributes
//   - Records errors of aborted passes and sets span status
//
// Example:
//
//	r := vango.NewRenderer(sched, host,
//	    vango.WithObserver(middleware.OpenTelemetry(
//	        middleware.WithTracerName("my-app"),
//	    )),
//	)
//
// Unless WithTracerProvider is given, the tracer comes from the global
// OpenTelemetry tracer provider. Configure it in main() before mounting.
func OpenTelemetry(opts ...OTelOption) *Tracing {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.TracerProvider != nil {
		config.tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		config.tracer = otel.Tracer(config.TracerName)
	}
	return &Tracing{config: config}
}

// spanContextKey is the key for storing the pass span in the context.
type spanContextKey struct{}

// BeginPass implements vango.Observer.
func (t *Tracing) BeginPass(ctx context.Context, pass uint64, kind vango.PassKind) context.Context {
	if t.config.Filter != nil && !t.config.Filter(kind) {
		return ctx
	}

	spanCtx, span := t.config.tracer.Start(ctx,
		fmt.Sprintf("reconciler.%s", kind),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int64("reconciler.pass", int64(pass)),
			attribute.String("reconciler.pass_kind", string(kind)),
		),
	)
	return context.WithValue(spanCtx, spanContextKey{}, span)
}

// EndPass implements vango.Observer.
func (t *Tracing) EndPass(ctx context.Context, stats vango.PassStats, err error) {
	span := SpanFromContext(ctx)
	if span == nil {
		return
	}
	defer span.End()

	span.SetAttributes(
		attribute.Int("reconciler.mutations", stats.Mutations),
		attribute.Int("reconciler.rendered", stats.Rendered),
		attribute.Int("reconciler.skipped", stats.Skipped),
		attribute.Int("reconciler.failures", stats.Failures),
		attribute.Int("reconciler.collisions", stats.Collisions),
		attribute.Int("reconciler.patch_count", stats.Patches),
		attribute.Int("reconciler.unmounted", stats.Unmounted),
	)
	if t.config.AttributeExtractor != nil {
		span.SetAttributes(t.config.AttributeExtractor(stats)...)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

// SpanFromContext retrieves the span of the pass being traced.
// Returns nil if the pass is not traced.
func SpanFromContext(ctx context.Context) trace.Span {
	if span, ok := ctx.Value(spanContextKey{}).(trace.Span); ok {
		return span
	}
	return nil
}
