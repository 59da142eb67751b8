package vtest

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/vango"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

// Harness mounts a component tree against an in-memory host and records
// what each pass did.
type Harness struct {
	t        testing.TB
	renderer *vango.Renderer
	host     *host.Tree
	passes   []vango.PassStats
	failures []*vango.ComponentError
}

// Mount creates a renderer over an in-memory host and mounts root. The
// scheduler is torn down when the test ends.
//
// Example:
//
//	h := vtest.Mount(t, Counter.Invoke(nil))
//	h.ExpectHTML("<button>0</button>")
//	h.Dispatch(func() { count.Set(1) })
//	h.ExpectHTML("<button>1</button>")
func Mount(t testing.TB, root *vdom.VNode, opts ...vango.Option) *Harness {
	t.Helper()
	h := New(t, opts...)
	if _, err := h.renderer.Mount(context.Background(), root); err != nil {
		t.Fatalf("vtest: Mount: %v", err)
	}
	return h
}

// New creates a harness without mounting anything. Renderer options are
// applied after the harness defaults, so a logger or boundary passed here
// wins.
func New(t testing.TB, opts ...vango.Option) *Harness {
	t.Helper()
	sched := vango.NewRenderScheduler()
	if err := sched.Init(); err != nil {
		t.Fatalf("vtest: scheduler Init: %v", err)
	}
	t.Cleanup(sched.Teardown)

	h := &Harness{t: t, host: host.New()}
	base := []vango.Option{
		vango.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		vango.WithErrorBoundary(func(e *vango.ComponentError) {
			h.failures = append(h.failures, e)
		}),
		vango.WithObserver(h),
		vango.WithDebug(true),
	}
	h.renderer = vango.NewRenderer(sched, h.host, append(base, opts...)...)
	return h
}

// BeginPass implements vango.Observer.
func (h *Harness) BeginPass(ctx context.Context, _ uint64, _ vango.PassKind) context.Context {
	return ctx
}

// EndPass implements vango.Observer.
func (h *Harness) EndPass(_ context.Context, stats vango.PassStats, _ error) {
	h.passes = append(h.passes, stats)
}

// Renderer returns the underlying renderer.
func (h *Harness) Renderer() *vango.Renderer { return h.renderer }

// Host returns the in-memory host tree.
func (h *Harness) Host() *host.Tree { return h.host }

// Passes returns the stats of every pass run so far.
func (h *Harness) Passes() []vango.PassStats { return h.passes }

// LastPass returns the stats of the most recent pass.
func (h *Harness) LastPass() vango.PassStats {
	h.t.Helper()
	if len(h.passes) == 0 {
		h.t.Fatal("vtest: no pass has run")
	}
	return h.passes[len(h.passes)-1]
}

// Failures returns the component failures reported so far.
func (h *Harness) Failures() []*vango.ComponentError { return h.failures }

// HTML returns the host tree as markup.
func (h *Harness) HTML() string { return h.host.String() }

// Mount mounts root on a harness created with New.
func (h *Harness) Mount(root *vdom.VNode) []vdom.Patch {
	h.t.Helper()
	patches, err := h.renderer.Mount(context.Background(), root)
	if err != nil {
		h.t.Fatalf("vtest: Mount: %v", err)
	}
	return patches
}

// Dispatch runs fn and flushes, failing the test on error.
func (h *Harness) Dispatch(fn func()) []vdom.Patch {
	h.t.Helper()
	patches, err := h.renderer.Dispatch(context.Background(), fn)
	if err != nil {
		h.t.Fatalf("vtest: Dispatch: %v", err)
	}
	return patches
}

// Update re-renders from a new root invocation.
func (h *Harness) Update(root *vdom.VNode) []vdom.Patch {
	h.t.Helper()
	patches, err := h.renderer.Update(context.Background(), root)
	if err != nil {
		h.t.Fatalf("vtest: Update: %v", err)
	}
	return patches
}

// Flush runs pending passes.
func (h *Harness) Flush() []vdom.Patch {
	h.t.Helper()
	patches, err := h.renderer.Flush(context.Background())
	if err != nil {
		h.t.Fatalf("vtest: Flush: %v", err)
	}
	return patches
}

// Unmount removes the root.
func (h *Harness) Unmount() []vdom.Patch {
	h.t.Helper()
	patches, err := h.renderer.Unmount(context.Background())
	if err != nil {
		h.t.Fatalf("vtest: Unmount: %v", err)
	}
	return patches
}

// ExpectHTML asserts the host tree renders exactly want.
func (h *Harness) ExpectHTML(want string) {
	h.t.Helper()
	if got := h.HTML(); got != want {
		h.t.Errorf("host tree:\n got: %s\nwant: %s", got, want)
	}
}

// ExpectContains asserts the host markup contains expected.
func (h *Harness) ExpectContains(expected string) {
	h.t.Helper()
	if html := h.HTML(); !strings.Contains(html, expected) {
		h.t.Errorf("expected host tree to contain %q, got:\n%s", expected, truncate(html, 500))
	}
}

// ExpectNotContains asserts the host markup does not contain unexpected.
func (h *Harness) ExpectNotContains(unexpected string) {
	h.t.Helper()
	if html := h.HTML(); strings.Contains(html, unexpected) {
		h.t.Errorf("expected host tree to NOT contain %q, got:\n%s", unexpected, truncate(html, 500))
	}
}

// ExpectNoFailures asserts no component has failed.
func (h *Harness) ExpectNoFailures() {
	h.t.Helper()
	for _, f := range h.failures {
		h.t.Errorf("component failed: %v", f)
	}
}

// ExpectRendered asserts how many components rendered and how many the
// memo guard skipped in the last pass.
func (h *Harness) ExpectRendered(rendered, skipped int) {
	h.t.Helper()
	last := h.LastPass()
	if last.Rendered != rendered || last.Skipped != skipped {
		h.t.Errorf("last pass rendered %d and skipped %d, want %d and %d",
			last.Rendered, last.Skipped, rendered, skipped)
	}
}

// ExpectOps asserts the operations of patches, in order.
func ExpectOps(t testing.TB, patches []vdom.Patch, want ...vdom.PatchOp) {
	t.Helper()
	got := make([]vdom.PatchOp, len(patches))
	for i, p := range patches {
		got[i] = p.Op
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("patch ops mismatch (-want +got):\n%s\npatches:\n%s", diff, vdom.FormatPatches(patches))
	}
}

// RenderToString returns the markup a fully expanded VNode produces.
func RenderToString(node *vdom.VNode) string {
	return host.Render(node)
}

// truncate truncates a string to max length with ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
