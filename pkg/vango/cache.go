package vango

import "github.com/vango-dev/reconciler/pkg/vdom"

// CacheStats counts value cache lookups.
type CacheStats struct {
	Hits   uint64
	Misses uint64
}

// ValueCache stores memoized values and callbacks in the hook list of the
// owning instance, so entries live exactly as long as the instance.
type ValueCache struct {
	store *Store
	stats CacheStats
}

// NewValueCache creates a cache backed by store.
func NewValueCache(store *Store) *ValueCache {
	return &ValueCache{store: store}
}

// Stats returns the lookup counters.
func (c *ValueCache) Stats() CacheStats {
	return c.stats
}

// MemoValue returns the value cached at (slot, index), calling compute when
// there is none yet, deps is nil, or deps differ from the cached ones.
func (c *ValueCache) MemoValue(slot vdom.SlotID, index int, compute func() any, deps Deps) (any, error) {
	return c.lookup("MemoValue", hookMemo, slot, index, compute, deps)
}

// MemoCallback returns the callback cached at (slot, index), replacing it
// with fn when deps is nil or differ. A stable callback keeps memoized
// children that receive it from re-rendering.
func (c *ValueCache) MemoCallback(slot vdom.SlotID, index int, fn any, deps Deps) (any, error) {
	return c.lookup("MemoCallback", hookCallback, slot, index, func() any { return fn }, deps)
}

func (c *ValueCache) lookup(op string, kind hookKind, slot vdom.SlotID, index int, compute func() any, deps Deps) (any, error) {
	if !c.store.Active() {
		return nil, invalidContext(op)
	}
	in := c.store.instance(slot)
	h, ok, err := in.hook(index, kind, c.store.strict)
	if err != nil {
		return nil, err
	}
	var e *cacheEntry
	if ok {
		e = h.(*cacheEntry)
	} else {
		e = &cacheEntry{}
		in.put(kind, e)
	}

	if e.computed && deps != nil && depsEqual(e.deps, deps) {
		c.stats.Hits++
		return e.value, nil
	}
	c.stats.Misses++
	v := compute()
	e.value, e.deps, e.computed = v, copyDeps(deps), true
	return v, nil
}
