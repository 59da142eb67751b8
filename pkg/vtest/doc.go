// Package vtest provides testing helpers for components.
//
// A Harness mounts a component tree against the in-memory host from
// package host, runs passes and asserts on the resulting host tree and on
// what each pass rendered.
//
// # Quick Start
//
//	func TestCounter(t *testing.T) {
//	    var count vango.State[int]
//	    Counter := vango.Define("Counter", func(ctx *vango.Ctx, _ vdom.Props) *vdom.VNode {
//	        count = vango.UseState(ctx, 0)
//	        return vdom.Button(vdom.Textf("%d", count.Get()))
//	    })
//
//	    h := vtest.Mount(t, Counter.Invoke(nil))
//	    h.ExpectHTML("<button>0</button>")
//
//	    patches := h.Dispatch(func() { count.Set(1) })
//	    vtest.ExpectOps(t, patches, vdom.PatchSetText)
//	    h.ExpectHTML("<button>1</button>")
//	}
//
// # Memoization
//
// ExpectRendered checks how many components the last pass rendered and
// how many the memo guard skipped:
//
//	h.Dispatch(func() { parentState.Set(2) })
//	h.ExpectRendered(1, 1) // parent rendered, memoized child skipped
//
// The harness enables debug mode, so hook order violations fail the
// component instead of passing silently.
package vtest
