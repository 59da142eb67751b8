// Package middleware provides render pass observers for production use.
//
// This package includes:
//   - OpenTelemetry tracing of render passes
//   - Prometheus metrics of render passes
//
// Both are vango.Observer implementations, attached with vango.WithObserver.
//
// # OpenTelemetry
//
// The tracing observer starts one span per pass. Spans carry the pass kind
// and, when the pass ends, the numbers of components rendered, skipped and
// failed and of patches applied.
//
//	r := vango.NewRenderer(sched, host,
//	    vango.WithObserver(middleware.OpenTelemetry(
//	        middleware.WithTracerName("my-app"),
//	        middleware.WithPassFilter(func(k vango.PassKind) bool {
//	            return k != vango.PassUnmount
//	        }),
//	    )),
//	)
//
// # Prometheus Metrics
//
// The metrics observer collects:
//   - reconciler_passes_total: Passes by kind and status
//   - reconciler_pass_duration_seconds: Pass duration histogram
//   - reconciler_components_rendered_total: Render function calls
//   - reconciler_components_skipped_total: Memo skips
//   - reconciler_patches_applied_total: Patches sent to the host
//
//	reg := prometheus.NewRegistry()
//	r := vango.NewRenderer(sched, host,
//	    vango.WithObserver(middleware.Prometheus(middleware.WithRegistry(reg))),
//	)
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package middleware
