package vango

import "runtime/debug"

// Cleanup is returned by an effect and runs before the effect runs again
// or when its instance unmounts.
type Cleanup func()

// pendingEffect is an effect queued by a render, run after its pass commits.
type pendingEffect struct {
	inst *instance
	hook *effectHook
	fn   func() Cleanup
	deps Deps
}

// UseEffect runs fn after the pass that rendered the instance has been
// committed to the host. It runs on mount and again whenever deps change;
// nil deps runs it after every render. Effects run children first, and may
// set state, which schedules another pass.
func UseEffect(ctx *Ctx, fn func() Cleanup, deps Deps) {
	if err := ctx.check("UseEffect"); err != nil {
		panic(err)
	}
	store := ctx.pass.r.store
	h, ok, err := ctx.inst.hook(ctx.next(), hookEffect, store.strict)
	if err != nil {
		panic(err)
	}
	var e *effectHook
	if ok {
		e = h.(*effectHook)
	} else {
		e = &effectHook{}
		ctx.inst.put(hookEffect, e)
	}
	if e.ran && deps != nil && depsEqual(e.deps, deps) {
		return
	}
	ctx.effects = append(ctx.effects, pendingEffect{inst: ctx.inst, hook: e, fn: fn, deps: copyDeps(deps)})
}

// run performs the cleanup of the previous run, then fn.
func (pe pendingEffect) run() *ComponentError {
	e := pe.hook
	if e.cleanup != nil {
		prev := e.cleanup
		e.cleanup = nil
		if cerr := runCleanup(pe.inst, prev); cerr != nil {
			return cerr
		}
	}
	e.deps, e.ran = pe.deps, true

	var cerr *ComponentError
	func() {
		defer func() {
			if r := recover(); r != nil {
				cerr = &ComponentError{
					Slot:      pe.inst.slot,
					Component: pe.inst.name,
					Phase:     PhaseEffect,
					Value:     r,
					Stack:     debug.Stack(),
				}
				if err, ok := r.(error); ok {
					cerr.Err = err
				}
			}
		}()
		e.cleanup = pe.fn()
	}()
	return cerr
}
