package vango

import (
	"log/slog"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// Ctx is the render context handed to a component's render function.
//
// A Ctx is only valid while that render runs. Hooks called on a Ctx whose
// render has returned, or outside any pass, panic with ErrInvalidContext.
// Hooks must be called unconditionally and in the same order on every
// render of an instance.
type Ctx struct {
	pass     *pass
	inst     *instance
	comp     *Component
	children []*vdom.VNode
	live     bool
	hook     int
	effects  []pendingEffect
}

// Slot returns the slot identity of the instance being rendered.
func (c *Ctx) Slot() vdom.SlotID {
	return c.inst.slot
}

// Component returns the name of the component being rendered.
func (c *Ctx) Component() string {
	return c.comp.name
}

// Children returns the children passed to the invocation.
func (c *Ctx) Children() []*vdom.VNode {
	return c.children
}

// Logger returns the renderer's logger, annotated with the slot.
func (c *Ctx) Logger() *slog.Logger {
	return c.pass.r.logger.With("component", c.comp.name, "slot", c.inst.slot)
}

// Schedule marks this instance dirty without changing any state, which
// forces a render in the next pass.
func (c *Ctx) Schedule() {
	c.pass.r.sched.Schedule(c.inst.slot)
}

// check returns ErrInvalidContext unless c is the context of a render in
// progress.
func (c *Ctx) check(op string) error {
	if c == nil || !c.live || c.pass == nil || !c.pass.r.store.Active() {
		return invalidContext(op)
	}
	return nil
}

// next returns the hook index for the next hook call.
func (c *Ctx) next() int {
	i := c.hook
	c.hook++
	return i
}
