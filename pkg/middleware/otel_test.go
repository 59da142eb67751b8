package middleware

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/reconciler/pkg/vango"
)

// recordingProvider hands out tracers that keep every span they start.
type recordingProvider struct {
	embedded.TracerProvider
	spans []*recordingSpan
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return &recordingTracer{p: p}
}

type recordingTracer struct {
	embedded.Tracer
	p *recordingProvider
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordingSpan{name: name, attrs: cfg.Attributes()}
	t.p.spans = append(t.p.spans, s)
	return trace.ContextWithSpan(ctx, s), s
}

type recordingSpan struct {
	noop.Span
	name   string
	attrs  []attribute.KeyValue
	err    error
	status codes.Code
	ended  bool
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue)        { s.attrs = append(s.attrs, kv...) }
func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) { s.err = err }
func (s *recordingSpan) SetStatus(code codes.Code, _ string)           { s.status = code }
func (s *recordingSpan) End(...trace.SpanEndOption)                    { s.ended = true }

func (s *recordingSpan) attr(key string) (attribute.Value, bool) {
	for _, kv := range s.attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestOTelConfig(t *testing.T) {
	config := defaultOTelConfig()
	if config.TracerName != "reconciler" {
		t.Errorf("TracerName = %q, want reconciler", config.TracerName)
	}
	if config.Filter != nil || config.TracerProvider != nil {
		t.Error("expected no filter and the global provider by default")
	}
	WithTracerName("my-app")(&config)
	if config.TracerName != "my-app" {
		t.Errorf("TracerName = %q, want my-app", config.TracerName)
	}
}

func TestOpenTelemetryTracesEveryPass(t *testing.T) {
	tp := &recordingProvider{}
	_, set := counterApp(t, vango.WithObserver(OpenTelemetry(
		WithTracerProvider(tp),
		WithAttributeExtractor(func(stats vango.PassStats) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.kind", string(stats.Kind))}
		}),
	)))
	set(1)

	if len(tp.spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(tp.spans))
	}
	if tp.spans[0].name != "reconciler.mount" || tp.spans[1].name != "reconciler.update" {
		t.Errorf("unexpected span names %q %q", tp.spans[0].name, tp.spans[1].name)
	}
	for _, s := range tp.spans {
		if !s.ended || s.status != codes.Ok {
			t.Errorf("span %s: ended=%v status=%v", s.name, s.ended, s.status)
		}
	}

	update := tp.spans[1]
	if v, ok := update.attr("reconciler.patch_count"); !ok || v.AsInt64() != 1 {
		t.Errorf("patch_count = %v, want 1", v.AsInt64())
	}
	if v, ok := update.attr("reconciler.rendered"); !ok || v.AsInt64() != 1 {
		t.Errorf("rendered = %v, want 1", v.AsInt64())
	}
	if v, ok := update.attr("test.kind"); !ok || v.AsString() != "update" {
		t.Error("expected the extracted attribute")
	}
}

func TestOpenTelemetryRecordsAbortedPasses(t *testing.T) {
	tp := &recordingProvider{}
	tr := OpenTelemetry(WithTracerProvider(tp))

	ctx := tr.BeginPass(context.Background(), 7, vango.PassUpdate)
	if SpanFromContext(ctx) == nil {
		t.Fatal("expected SpanFromContext to return the pass span")
	}
	wantErr := errors.New("host rejected")
	tr.EndPass(ctx, vango.PassStats{Pass: 7, Kind: vango.PassUpdate, Aborted: true}, wantErr)

	s := tp.spans[0]
	if !errors.Is(s.err, wantErr) || s.status != codes.Error || !s.ended {
		t.Errorf("unexpected span state: err=%v status=%v ended=%v", s.err, s.status, s.ended)
	}
	if v, ok := s.attr("reconciler.pass"); !ok || v.AsInt64() != 7 {
		t.Error("expected the pass number attribute")
	}
}

func TestOpenTelemetryFilterSkipsTracing(t *testing.T) {
	tp := &recordingProvider{}
	_, set := counterApp(t, vango.WithObserver(OpenTelemetry(
		WithTracerProvider(tp),
		WithPassFilter(func(kind vango.PassKind) bool { return kind != vango.PassUpdate }),
	)))
	set(1)

	if len(tp.spans) != 1 || tp.spans[0].name != "reconciler.mount" {
		t.Fatalf("expected only the mount pass to be traced, got %d spans", len(tp.spans))
	}
}

func TestSpanFromContext_NoSpan(t *testing.T) {
	if SpanFromContext(context.Background()) != nil {
		t.Fatal("expected nil span when no pass is traced")
	}
}
