package middleware

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/vango"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

// counterApp mounts a counter under r and returns the setter of its state.
func counterApp(t *testing.T, opts ...vango.Option) (*vango.Renderer, func(int)) {
	t.Helper()
	sched := vango.NewRenderScheduler()
	if err := sched.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(sched.Teardown)

	var count vango.State[int]
	Counter := vango.Define("Counter", func(ctx *vango.Ctx, _ vdom.Props) *vdom.VNode {
		count = vango.UseState(ctx, 0)
		return vdom.Div(vdom.Span(vdom.Textf("%d", count.Get())))
	})

	r := vango.NewRenderer(sched, host.New(), opts...)
	if _, err := r.Mount(context.Background(), Counter.Invoke(nil)); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	return r, func(n int) {
		if _, err := r.Dispatch(context.Background(), func() { count.Set(n) }); err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
	}
}

func TestMetricsConfig(t *testing.T) {
	config := defaultMetricsConfig()
	if config.Namespace != "reconciler" {
		t.Errorf("Namespace = %q, want reconciler", config.Namespace)
	}
	if config.Registry != prometheus.DefaultRegisterer {
		t.Error("expected the default registerer")
	}

	for _, opt := range []MetricsOption{
		WithNamespace("app"),
		WithSubsystem("ui"),
		WithConstLabels(prometheus.Labels{"env": "test"}),
		WithBuckets([]float64{0.1, 1}),
	} {
		opt(&config)
	}
	if config.Namespace != "app" || config.Subsystem != "ui" || config.ConstLabels["env"] != "test" || len(config.Buckets) != 2 {
		t.Errorf("options not applied: %+v", config)
	}
}

func TestPrometheusRecordsCommittedPasses(t *testing.T) {
	m := Prometheus(WithRegistry(prometheus.NewRegistry()))
	_, set := counterApp(t, vango.WithObserver(m))
	set(1)
	set(2)

	if got := metricCounterValue(t, m.passesTotal.WithLabelValues("mount", "committed")); got != 1 {
		t.Errorf("passes_total(mount)=%v, want 1", got)
	}
	if got := metricCounterValue(t, m.passesTotal.WithLabelValues("update", "committed")); got != 2 {
		t.Errorf("passes_total(update)=%v, want 2", got)
	}
	if got := metricCounterValue(t, m.rendered); got != 3 {
		t.Errorf("components_rendered_total=%v, want 3", got)
	}
	if got := metricCounterValue(t, m.mutations); got != 2 {
		t.Errorf("state_mutations_total=%v, want 2", got)
	}
	// One insert at mount, then one SetText per update.
	if got := metricCounterValue(t, m.patches); got != 3 {
		t.Errorf("patches_applied_total=%v, want 3", got)
	}
	if got := metricHistogramCount(t, m.passDuration.WithLabelValues("update")); got != 2 {
		t.Errorf("pass_duration_seconds(update) count=%v, want 2", got)
	}
}

func TestPrometheusCategorizesErrors(t *testing.T) {
	m := Prometheus(WithRegistry(prometheus.NewRegistry()))

	tests := []struct {
		err  error
		want string
	}{
		{vango.ErrUpdateLoop, "update_loop"},
		{vango.ErrInvalidContext, "invalid_context"},
		{vango.ErrReentrantRender, "reentrant"},
		{vango.ErrNotMounted, "lifecycle"},
		{fmt.Errorf("%w: connection reset", vango.ErrHostRejected), "host"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		if got := categorizeError(tt.err); got != tt.want {
			t.Errorf("categorizeError(%v) = %q, want %q", tt.err, got, tt.want)
		}
		m.EndPass(context.Background(), vango.PassStats{Kind: vango.PassUpdate, Aborted: true}, tt.err)
	}

	if got := metricCounterValue(t, m.passesTotal.WithLabelValues("update", "aborted")); got != float64(len(tests)) {
		t.Errorf("passes_total(aborted)=%v, want %d", got, len(tests))
	}
	if got := metricCounterValue(t, m.passErrors.WithLabelValues("update", "update_loop")); got != 1 {
		t.Errorf("pass_errors_total(update_loop)=%v, want 1", got)
	}
}

func TestPrometheusRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := Prometheus(WithRegistry(reg), WithNamespace("test"))
	m.EndPass(context.Background(), vango.PassStats{Kind: vango.PassMount}, nil)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "test_passes_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected test_passes_total to be registered")
	}
}
