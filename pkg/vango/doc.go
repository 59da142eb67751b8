// Package vango is the component runtime: it renders component trees,
// keeps per-instance state across renders, and turns each render pass into
// a minimal patch stream for a host.
//
// # Components
//
// A component is a render function over props and the state reached
// through its Ctx:
//
//	var Counter = vango.Define("Counter", func(ctx *vango.Ctx, p vdom.Props) *vdom.VNode {
//	    count := vango.UseState(ctx, 0)
//	    return vdom.Button(
//	        vdom.OnClick(func() { count.Update(func(n int) int { return n + 1 }) }),
//	        vdom.Textf("%d", count.Get()),
//	    )
//	})
//
//	node := Counter.Invoke(vdom.Props{"key": "a"})
//
// # Identity
//
// State belongs to a slot, not to a component value. A slot is identified
// by the path of (type, key or index) segments from the root, so state
// survives a re-render as long as the component keeps its type and its key,
// or, without a key, its position among siblings. Inserting an unkeyed
// sibling before it shifts its position and it inherits its neighbour's
// state. Give list items keys.
//
// # Passes
//
// State writes are recorded with the RenderScheduler and applied together
// at the start of the next pass:
//
//	sched := vango.NewRenderScheduler()
//	_ = sched.Init()
//	defer sched.Teardown()
//
//	r := vango.NewRenderer(sched, host)
//	patches, err := r.Mount(ctx, App.Invoke(nil))
//	...
//	patches, err = r.Dispatch(ctx, onClick)
//
// A pass re-renders only dirty instances (and what they render), skips
// memoized components whose props did not change, reconciles the new tree
// against the committed one and applies the patches to the host. Effects
// run after the host accepted the patches.
//
// # Memoization
//
// Components defined with Memoized (or Memo) skip rendering when their
// props are shallow-equal to the last committed ones. UseMemo and
// UseCallback cache values inside an instance until their Deps change.
// Shallow equality compares identity: a freshly allocated slice or map is
// a change even if its contents are the same.
//
// # Thread Safety
//
// A Renderer is driven from one goroutine. State handles may be written
// from any goroutine; the write is applied by the next pass.
package vango
