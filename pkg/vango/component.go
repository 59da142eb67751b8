package vango

import "github.com/vango-dev/reconciler/pkg/vdom"

// RenderFunc is a component's render logic: a pure function of its props
// and the state reached through ctx. It must not mutate props or any VNode
// it returned before.
type RenderFunc func(ctx *Ctx, props vdom.Props) *vdom.VNode

// Component is a component definition. Each definition has its own TypeID,
// so two definitions never reconcile as the same instance.
type Component struct {
	id     vdom.TypeID
	name   string
	render RenderFunc

	// memo opts the component into the Memo Guard.
	memo bool

	// equal replaces the shallow props comparison when set.
	equal func(prev, next vdom.Props) bool
}

var _ vdom.Component = (*Component)(nil)

// ComponentOption configures a component definition.
type ComponentOption func(*Component)

// Memoized opts the component into memoization: when its parent re-renders
// with props that are shallow-equal to the last ones, and its own state did
// not change, the previous output is reused instead of calling render.
//
// Comparing props is not free. Memoize components whose props are usually
// stable, not every component.
func Memoized() ComponentOption {
	return func(c *Component) {
		c.memo = true
	}
}

// WithPropsEqual memoizes the component using a custom props comparison.
// equal returns true when re-rendering can be skipped.
func WithPropsEqual(equal func(prev, next vdom.Props) bool) ComponentOption {
	return func(c *Component) {
		c.memo = true
		c.equal = equal
	}
}

// Define creates a component definition.
//
//	var Counter = vango.Define("Counter", func(ctx *vango.Ctx, p vdom.Props) *vdom.VNode {
//	    count := vango.UseState(ctx, 0)
//	    return vdom.Button(vdom.OnClick(func() { count.Update(inc) }), vdom.Textf("%d", count.Get()))
//	})
func Define(name string, render RenderFunc, opts ...ComponentOption) *Component {
	c := &Component{
		id:     vdom.NewType(name),
		name:   name,
		render: render,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Memo is shorthand for Define(name, render, Memoized()).
func Memo(name string, render RenderFunc) *Component {
	return Define(name, render, Memoized())
}

// TypeID implements vdom.Component.
func (c *Component) TypeID() vdom.TypeID {
	return c.id
}

// Name implements vdom.Component.
func (c *Component) Name() string {
	return c.name
}

// IsMemoized reports whether the component opted into memoization.
func (c *Component) IsMemoized() bool {
	return c.memo
}

// Invoke builds an (unexpanded) invocation of the component.
// A string "key" prop becomes the node's reconciliation key and is not
// passed on to render. Children are available to render via ctx.Children().
func (c *Component) Invoke(props vdom.Props, children ...*vdom.VNode) *vdom.VNode {
	node := &vdom.VNode{
		Kind: vdom.KindComponent,
		Type: c.id,
		Comp: c,
	}
	if key, ok := props["key"].(string); ok {
		node.Key = key
		props = props.Clone()
		delete(props, "key")
	}
	node.Props = props
	for _, child := range children {
		if child != nil {
			node.Children = append(node.Children, child)
		}
	}
	return node
}

// Keyed builds an invocation with an explicit key.
func (c *Component) Keyed(key string, props vdom.Props, children ...*vdom.VNode) *vdom.VNode {
	node := c.Invoke(props, children...)
	node.Key = key
	return node
}
