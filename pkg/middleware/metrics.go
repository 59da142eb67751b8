package middleware

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/reconciler/pkg/vango"
)

// MetricsConfig configures the Prometheus pass observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "reconciler").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for pass duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus pass observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "reconciler",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is a vango.Observer that records every render pass.
//
// Metrics collected:
//   - reconciler_passes_total: Counter of passes by kind and status
//   - reconciler_pass_duration_seconds: Histogram of pass duration by kind
//   - reconciler_pass_errors_total: Counter of failed passes by error type
//   - reconciler_state_mutations_total: Counter of applied state writes
//   - reconciler_components_rendered_total: Counter of render function calls
//   - reconciler_components_skipped_total: Counter of memo skips
//   - reconciler_render_failures_total: Counter of failed renders
//   - reconciler_identity_collisions_total: Counter of duplicate sibling keys
//   - reconciler_patches_applied_total: Counter of patches sent to the host
//   - reconciler_instances_unmounted_total: Counter of pruned instances
type Metrics struct {
	passesTotal  *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
	passErrors   *prometheus.CounterVec
	mutations    prometheus.Counter
	rendered     prometheus.Counter
	skipped      prometheus.Counter
	failures     prometheus.Counter
	collisions   prometheus.Counter
	patches      prometheus.Counter
	unmounted    prometheus.Counter
}

var _ vango.Observer = (*Metrics)(nil)

// Prometheus creates a pass observer registered with the configured registry.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	r := vango.NewRenderer(sched, host,
//	    vango.WithObserver(middleware.Prometheus(middleware.WithRegistry(reg))),
//	)
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
func Prometheus(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}

	return &Metrics{
		passesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "passes_total",
			Help:        "Total number of render passes",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "status"}),

		passDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pass_duration_seconds",
			Help:        "Render pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"kind"}),

		passErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pass_errors_total",
			Help:        "Total number of failed render passes",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "error_type"}),

		mutations:  counter("state_mutations_total", "Total state writes applied by passes"),
		rendered:   counter("components_rendered_total", "Total component render calls"),
		skipped:    counter("components_skipped_total", "Total components skipped by the memo guard"),
		failures:   counter("render_failures_total", "Total component renders that failed"),
		collisions: counter("identity_collisions_total", "Total duplicate sibling keys"),
		patches:    counter("patches_applied_total", "Total patches applied to the host"),
		unmounted:  counter("instances_unmounted_total", "Total component instances unmounted"),
	}
}

// BeginPass implements vango.Observer.
func (m *Metrics) BeginPass(ctx context.Context, _ uint64, _ vango.PassKind) context.Context {
	return ctx
}

// EndPass implements vango.Observer.
func (m *Metrics) EndPass(_ context.Context, stats vango.PassStats, err error) {
	kind := string(stats.Kind)
	m.passDuration.WithLabelValues(kind).Observe(stats.Duration.Seconds())

	status := "committed"
	if err != nil {
		status = "aborted"
		m.passErrors.WithLabelValues(kind, categorizeError(err)).Inc()
	}
	m.passesTotal.WithLabelValues(kind, status).Inc()

	m.mutations.Add(float64(stats.Mutations))
	m.rendered.Add(float64(stats.Rendered))
	m.skipped.Add(float64(stats.Skipped))
	m.failures.Add(float64(stats.Failures))
	m.collisions.Add(float64(stats.Collisions))
	m.patches.Add(float64(stats.Patches))
	m.unmounted.Add(float64(stats.Unmounted))
}

// categorizeError returns a category for the error type.
// This keeps error messages out of label values.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, vango.ErrInvalidContext):
		return "invalid_context"
	case errors.Is(err, vango.ErrHookOrder):
		return "hook_order"
	case errors.Is(err, vango.ErrUpdateLoop):
		return "update_loop"
	case errors.Is(err, vango.ErrReentrantRender):
		return "reentrant"
	case errors.Is(err, vango.ErrNotMounted), errors.Is(err, vango.ErrAlreadyMounted):
		return "lifecycle"
	case errors.Is(err, vango.ErrHostRejected):
		return "host"
	default:
		return "internal"
	}
}
