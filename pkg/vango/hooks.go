package vango

// State is a handle to one persistent state cell. Handles are comparable
// and stay equal across renders of the same instance, so passing one to a
// memoized child does not count as a props change.
type State[T any] struct {
	cell *Cell
}

// Get returns the current value.
func (s State[T]) Get() T {
	v, _ := s.cell.Value().(T)
	return v
}

// Set records a new value. The component re-renders in the next pass.
func (s State[T]) Set(v T) {
	s.cell.Set(v)
}

// Update records fn, applied to the latest value when the pass drains
// pending writes. Several updates before a pass compose in order.
func (s State[T]) Update(fn func(T) T) {
	s.cell.Update(func(old any) any {
		v, _ := old.(T)
		return fn(v)
	})
}

// Cell returns the underlying cell.
func (s State[T]) Cell() *Cell {
	return s.cell
}

// UseState returns the state cell for the next hook index of the instance,
// initialized with initial on its first render.
//
//	count := vango.UseState(ctx, 0)
//	vdom.Button(vdom.OnClick(func() { count.Update(func(n int) int { return n + 1 }) }))
func UseState[T any](ctx *Ctx, initial T) State[T] {
	if err := ctx.check("UseState"); err != nil {
		panic(err)
	}
	cell, err := ctx.pass.r.store.GetOrInit(ctx.inst.slot, ctx.next(), initial)
	if err != nil {
		panic(err)
	}
	return State[T]{cell: cell}
}

// UseMemo returns compute's result, cached for the instance until deps
// change. A nil deps recomputes on every render; Once() computes once per
// mount.
func UseMemo[T any](ctx *Ctx, compute func() T, deps Deps) T {
	if err := ctx.check("UseMemo"); err != nil {
		panic(err)
	}
	v, err := ctx.pass.r.cache.MemoValue(ctx.inst.slot, ctx.next(), func() any { return compute() }, deps)
	if err != nil {
		panic(err)
	}
	out, _ := v.(T)
	return out
}

// UseCallback returns a stable fn: the first fn seen is returned on every
// render until deps change.
func UseCallback[F any](ctx *Ctx, fn F, deps Deps) F {
	if err := ctx.check("UseCallback"); err != nil {
		panic(err)
	}
	v, err := ctx.pass.r.cache.MemoCallback(ctx.inst.slot, ctx.next(), fn, deps)
	if err != nil {
		panic(err)
	}
	out, _ := v.(F)
	return out
}
