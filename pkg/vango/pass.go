package vango

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// pass is the state of one render pass.
type pass struct {
	r     *Renderer
	id    uint64
	kind  PassKind
	stats PassStats

	// dirty holds the slots drained from the scheduler.
	dirty map[vdom.SlotID]struct{}

	// records stages the component nodes built by this pass. They become
	// memo records only if the pass commits.
	records map[vdom.SlotID]*vdom.VNode

	rendered []*instance
	effects  []pendingEffect

	// err aborts the pass.
	err error
}

func newPass(r *Renderer, id uint64, kind PassKind) *pass {
	return &pass{
		r:       r,
		id:      id,
		kind:    kind,
		stats:   PassStats{Pass: id, Kind: kind},
		records: make(map[vdom.SlotID]*vdom.VNode),
	}
}

// dirtyWithin reports whether any drained slot lies inside the subtree
// rooted at slot.
func (p *pass) dirtyWithin(slot vdom.SlotID) bool {
	if _, ok := p.dirty[slot]; ok {
		return true
	}
	for d := range p.dirty {
		if slot.Contains(d) {
			return true
		}
	}
	return false
}

// expand turns a freshly built node into an expanded subtree at slot.
// Components go through the Memo Guard and are rendered when not skipped.
func (p *pass) expand(n *vdom.VNode, slot vdom.SlotID) *vdom.VNode {
	if n == nil {
		n = vdom.Empty()
	}
	if p.err != nil {
		return n
	}
	switch n.Kind {
	case vdom.KindComponent:
		return p.component(n, slot)
	case vdom.KindElement:
		cp := *n
		cp.Slot = slot
		cp.Children = p.children(slot, n.Children)
		return &cp
	default:
		if n.Slot == slot {
			return n
		}
		cp := *n
		cp.Slot = slot
		return &cp
	}
}

func (p *pass) children(parent vdom.SlotID, kids []*vdom.VNode) []*vdom.VNode {
	if len(kids) == 0 {
		return nil
	}
	ids, collisions := vdom.Identities(parent, kids)
	for _, c := range collisions {
		p.collide(c)
	}
	out := make([]*vdom.VNode, len(kids))
	for i, k := range kids {
		out[i] = p.expand(k, ids[i].Slot)
	}
	return out
}

func (p *pass) collide(c vdom.Collision) {
	p.stats.Collisions++
	p.r.logger.Warn("duplicate key among siblings",
		"parent", c.Parent,
		"key", c.Key,
		"type", c.Type,
		"index", c.Index,
		"assigned", c.Assigned,
		"error", ErrIdentityCollision,
	)
}

func (p *pass) component(n *vdom.VNode, slot vdom.SlotID) *vdom.VNode {
	comp, ok := n.Comp.(*Component)
	if !ok {
		name := "<nil>"
		if n.Comp != nil {
			name = n.Comp.Name()
		}
		p.stats.Failures++
		p.r.report(&ComponentError{
			Slot:      slot,
			Component: name,
			Phase:     PhaseRender,
			Err:       fmt.Errorf("unsupported component implementation %T", n.Comp),
		})
		return p.placeholder(n, slot)
	}

	if p.r.guard.ShouldSkip(slot, comp, n.Props) {
		rec, _ := p.r.guard.Record(slot)
		if sameNodes(rec.LastRendered.Children, n.Children) {
			p.stats.Skipped++
			return p.walk(rec.LastRendered)
		}
	}
	return p.render(n, comp, slot)
}

// render calls the component's render function and expands its output.
func (p *pass) render(n *vdom.VNode, comp *Component, slot vdom.SlotID) *vdom.VNode {
	in := p.r.store.instance(slot)
	in.name = comp.name
	c := &Ctx{pass: p, inst: in, comp: comp, children: n.Children}

	out, err := p.evaluate(c, n.Props)
	if err != nil {
		if errors.Is(err, ErrInvalidContext) {
			p.err = err
			return n
		}
		return p.failed(n, in, slot, err)
	}
	p.rendered = append(p.rendered, in)
	p.stats.Rendered++

	if out == nil {
		out = vdom.Empty()
	}
	node := &vdom.VNode{
		Kind:     vdom.KindComponent,
		Type:     comp.id,
		Comp:     comp,
		Props:    n.Props,
		Children: n.Children,
		Key:      n.Key,
		Slot:     slot,
	}
	node.Output = p.expand(out, vdom.ChildSlot(slot, out, 0))
	if p.err != nil {
		return node
	}
	p.records[slot] = node
	// Queued after the output expanded, so children's effects come first.
	p.effects = append(p.effects, c.effects...)
	return node
}

// evaluate runs the render function with panic recovery.
func (p *pass) evaluate(c *Ctx, props vdom.Props) (out *vdom.VNode, err error) {
	in := c.inst
	in.beginRender()
	c.live = true
	defer func() {
		c.live = false
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && errors.Is(e, ErrInvalidContext) {
				err = e
				return
			}
			cerr := &ComponentError{
				Slot:      in.slot,
				Component: c.comp.name,
				Phase:     PhaseRender,
				Value:     r,
				Stack:     debug.Stack(),
			}
			if e, ok := r.(error); ok {
				cerr.Err = e
			}
			err = cerr
		}
	}()

	out = c.comp.render(c, props)
	if p.r.debug && in.mounted && c.hook != len(in.hooks) {
		return nil, &ComponentError{
			Slot:      in.slot,
			Component: c.comp.name,
			Phase:     PhaseRender,
			Err:       fmt.Errorf("%w: %s called %d hooks, previously %d", ErrHookOrder, in.slot, c.hook, len(in.hooks)),
		}
	}
	return out, nil
}

// failed reports a render failure and keeps the previously committed
// output of the instance, or an empty placeholder if it never rendered.
func (p *pass) failed(n *vdom.VNode, in *instance, slot vdom.SlotID, err error) *vdom.VNode {
	var cerr *ComponentError
	if !errors.As(err, &cerr) {
		cerr = &ComponentError{Slot: slot, Component: in.name, Phase: PhaseRender, Err: err}
	}
	p.stats.Failures++
	p.r.report(cerr)

	if rec, ok := p.r.guard.Record(slot); ok {
		return p.walk(rec.LastRendered)
	}
	if !in.mounted {
		in.reset()
	}
	return p.placeholder(n, slot)
}

func (p *pass) placeholder(n *vdom.VNode, slot vdom.SlotID) *vdom.VNode {
	empty := vdom.Empty()
	empty.Slot = vdom.ChildSlot(slot, empty, 0)
	return &vdom.VNode{
		Kind:     vdom.KindComponent,
		Type:     n.Type,
		Comp:     n.Comp,
		Props:    n.Props,
		Children: n.Children,
		Key:      n.Key,
		Slot:     slot,
		Output:   empty,
	}
}

// walk revisits an expanded subtree, re-rendering only components that are
// dirty. Untouched subtrees are returned as is; changed ones are copied, so
// the committed tree is never mutated.
func (p *pass) walk(n *vdom.VNode) *vdom.VNode {
	if n == nil || p.err != nil || !p.dirtyWithin(n.Slot) {
		return n
	}
	switch n.Kind {
	case vdom.KindComponent:
		if p.r.store.Dirty(n.Slot) {
			if comp, ok := n.Comp.(*Component); ok {
				return p.render(n, comp, n.Slot)
			}
		}
		out := p.walk(n.Output)
		if out == n.Output {
			return n
		}
		cp := *n
		cp.Output = out
		p.records[n.Slot] = &cp
		return &cp

	case vdom.KindElement:
		var kids []*vdom.VNode
		for i, c := range n.Children {
			w := p.walk(c)
			if w != c && kids == nil {
				kids = make([]*vdom.VNode, len(n.Children))
				copy(kids, n.Children)
			}
			if kids != nil {
				kids[i] = w
			}
		}
		if kids == nil {
			return n
		}
		cp := *n
		cp.Children = kids
		return &cp
	}
	return n
}

// runEffects runs the effects queued by the pass, in postorder.
func (p *pass) runEffects() {
	for _, pe := range p.effects {
		if pe.inst.disposed {
			continue
		}
		if cerr := pe.run(); cerr != nil {
			p.stats.Failures++
			p.r.report(cerr)
		}
	}
}

// sameNodes reports whether two child lists hold the same nodes.
func sameNodes(a, b []*vdom.VNode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
