package vango

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync/atomic"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// hookKind identifies the kind of a hook call for order validation.
type hookKind uint8

const (
	hookState hookKind = iota + 1
	hookMemo
	hookCallback
	hookEffect
)

// String returns a human-readable name for the hook kind.
func (k hookKind) String() string {
	switch k {
	case hookState:
		return "State"
	case hookMemo:
		return "Memo"
	case hookCallback:
		return "Callback"
	case hookEffect:
		return "Effect"
	default:
		return "Unknown"
	}
}

// Cell is one persistent state value bound to a (slot, hook index) pair.
//
// Writes never take effect immediately: Set and Update record a pending
// mutation and schedule the owning slot. The value changes when the next
// pass drains the scheduler.
type Cell struct {
	store *Store
	slot  vdom.SlotID
	index int

	value      any
	generation uint64

	dirty atomic.Bool
	dead  atomic.Bool
}

// Slot returns the slot identity the cell is bound to.
func (c *Cell) Slot() vdom.SlotID {
	return c.slot
}

// Index returns the hook index of the cell within its slot.
func (c *Cell) Index() int {
	return c.index
}

// Value returns the value committed by the last applied mutation.
func (c *Cell) Value() any {
	return c.value
}

// Generation counts applied mutations.
func (c *Cell) Generation() uint64 {
	return c.generation
}

// Dirty reports whether a mutation was recorded since the owning component
// last rendered.
func (c *Cell) Dirty() bool {
	return c.dirty.Load()
}

// Dead reports whether the owning instance was unmounted.
func (c *Cell) Dead() bool {
	return c.dead.Load()
}

// Set records a new value.
func (c *Cell) Set(v any) {
	c.store.Set(c, v)
}

// Update records a function of the value current at apply time.
func (c *Cell) Update(fn func(old any) any) {
	c.store.Update(c, fn)
}

// mutation is a pending write to a cell.
type mutation struct {
	cell   *Cell
	value  any
	update func(old any) any
}

// effectHook is the stored state of one UseEffect call.
type effectHook struct {
	deps    Deps
	ran     bool
	cleanup Cleanup
}

// cacheEntry is the stored state of one UseMemo or UseCallback call.
type cacheEntry struct {
	value    any
	deps     Deps
	computed bool
}

// instance is the per-slot record of a mounted component: its hook list
// and whether it needs to render.
type instance struct {
	slot vdom.SlotID
	name string

	hooks []any
	kinds []hookKind

	dirty    bool
	mounted  bool
	disposed bool
}

// hook returns the stored hook at index. existing is false when index is
// one past the last stored hook, in which case the caller must put it.
func (in *instance) hook(index int, kind hookKind, strict bool) (h any, existing bool, err error) {
	if index < len(in.hooks) {
		if in.kinds[index] != kind {
			return nil, false, hookOrder(in.slot, index, in.kinds[index], kind)
		}
		return in.hooks[index], true, nil
	}
	if index > len(in.hooks) {
		return nil, false, fmt.Errorf("%w: %s hook %d requested with only %d stored", ErrHookOrder, in.slot, index, len(in.hooks))
	}
	if strict && in.mounted {
		return nil, false, fmt.Errorf("%w: %s called an extra %s hook at index %d", ErrHookOrder, in.slot, kind, index)
	}
	return nil, false, nil
}

func (in *instance) put(kind hookKind, h any) {
	in.hooks = append(in.hooks, h)
	in.kinds = append(in.kinds, kind)
}

// beginRender clears the pending flags that the coming render consumes.
func (in *instance) beginRender() {
	in.dirty = false
	for i, h := range in.hooks {
		if in.kinds[i] == hookState {
			h.(*Cell).dirty.Store(false)
		}
	}
}

// reset drops all hooks. Used when a first render fails, so the next
// attempt starts from a clean hook list.
func (in *instance) reset() {
	for i, h := range in.hooks {
		if in.kinds[i] == hookState {
			h.(*Cell).dead.Store(true)
		}
	}
	in.hooks = nil
	in.kinds = nil
}

// Store holds persistent state for every mounted component instance,
// keyed by slot identity.
//
// The store is owned by a single Renderer and is only touched from the
// goroutine driving it. Set and Update are the exception: they only record
// mutations with the scheduler, which is safe from any goroutine.
type Store struct {
	sched     *RenderScheduler
	logger    *slog.Logger
	instances map[vdom.SlotID]*instance
	active    bool
	strict    bool

	// onCleanupError receives panics raised by effect cleanups run on unmount.
	onCleanupError func(*ComponentError)
}

// NewStore creates a store that records mutations with sched.
func NewStore(sched *RenderScheduler, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sched:     sched,
		logger:    logger,
		instances: make(map[vdom.SlotID]*instance),
	}
}

// Active reports whether a render pass is in progress.
func (s *Store) Active() bool {
	return s.active
}

func (s *Store) begin() { s.active = true }
func (s *Store) end()   { s.active = false }

// Len returns the number of live instances.
func (s *Store) Len() int {
	return len(s.instances)
}

// Has reports whether slot has a live instance.
func (s *Store) Has(slot vdom.SlotID) bool {
	_, ok := s.instances[slot]
	return ok
}

// Slots returns the live instance slots in sorted order.
func (s *Store) Slots() []vdom.SlotID {
	out := make([]vdom.SlotID, 0, len(s.instances))
	for slot := range s.instances {
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Store) instance(slot vdom.SlotID) *instance {
	in, ok := s.instances[slot]
	if !ok {
		in = &instance{slot: slot}
		s.instances[slot] = in
	}
	return in
}

// GetOrInit returns the cell stored at (slot, index), creating it with
// initial on first use. It fails with ErrInvalidContext outside a render
// pass and with ErrHookOrder when a different hook kind lives at index.
func (s *Store) GetOrInit(slot vdom.SlotID, index int, initial any) (*Cell, error) {
	if !s.active {
		return nil, invalidContext("GetOrInit")
	}
	in := s.instance(slot)
	h, ok, err := in.hook(index, hookState, s.strict)
	if err != nil {
		return nil, err
	}
	if ok {
		return h.(*Cell), nil
	}
	c := &Cell{store: s, slot: slot, index: index, value: initial}
	in.put(hookState, c)
	return c, nil
}

// Set records a write of v to cell and schedules its slot. Writes to a
// cell whose instance was unmounted are dropped.
func (s *Store) Set(c *Cell, v any) {
	s.record(mutation{cell: c, value: v})
}

// Update records fn to be applied to the cell's value at flush time.
func (s *Store) Update(c *Cell, fn func(old any) any) {
	s.record(mutation{cell: c, update: fn})
}

func (s *Store) record(m mutation) {
	if m.cell.dead.Load() {
		return
	}
	m.cell.dirty.Store(true)
	s.sched.enqueue(m)
}

// Dirty reports whether slot has a pending render, either from an applied
// mutation or from an explicit schedule.
func (s *Store) Dirty(slot vdom.SlotID) bool {
	in, ok := s.instances[slot]
	return ok && in.dirty
}

func (s *Store) markDirty(slot vdom.SlotID) {
	if in, ok := s.instances[slot]; ok {
		in.dirty = true
	}
}

// apply applies drained mutations in the order they were recorded and
// marks their instances dirty. It returns the number applied.
func (s *Store) apply(ms []mutation, dirty map[vdom.SlotID]struct{}) int {
	applied := 0
	for _, m := range ms {
		c := m.cell
		if c.dead.Load() {
			s.logger.Debug("dropping write to unmounted state", "slot", c.slot, "hook", c.index)
			continue
		}
		if m.update != nil {
			c.value = m.update(c.value)
		} else {
			c.value = m.value
		}
		c.generation++
		dirty[c.slot] = struct{}{}
		applied++
	}
	for slot := range dirty {
		s.markDirty(slot)
	}
	return applied
}

// Prune disposes every instance whose slot is not in alive: its cells are
// marked dead and its effect cleanups run in reverse order. It returns the
// pruned slots in sorted order.
func (s *Store) Prune(alive map[vdom.SlotID]struct{}) []vdom.SlotID {
	var pruned []vdom.SlotID
	for slot := range s.instances {
		if _, ok := alive[slot]; !ok {
			pruned = append(pruned, slot)
		}
	}
	sort.Slice(pruned, func(i, j int) bool { return pruned[i] < pruned[j] })
	for _, slot := range pruned {
		s.dispose(s.instances[slot])
		delete(s.instances, slot)
	}
	return pruned
}

func (s *Store) dispose(in *instance) {
	in.disposed = true
	for i := len(in.hooks) - 1; i >= 0; i-- {
		switch h := in.hooks[i].(type) {
		case *Cell:
			h.dead.Store(true)
		case *effectHook:
			if h.cleanup != nil {
				if err := runCleanup(in, h.cleanup); err != nil && s.onCleanupError != nil {
					s.onCleanupError(err)
				}
				h.cleanup = nil
			}
		}
	}
}

// runCleanup calls fn, converting a panic into a ComponentError.
func runCleanup(in *instance, fn Cleanup) (cerr *ComponentError) {
	defer func() {
		if r := recover(); r != nil {
			cerr = &ComponentError{
				Slot:      in.slot,
				Component: in.name,
				Phase:     PhaseEffect,
				Value:     r,
				Stack:     debug.Stack(),
			}
			if e, ok := r.(error); ok {
				cerr.Err = e
			}
		}
	}()
	fn()
	return nil
}
