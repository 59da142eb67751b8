package vango

import "github.com/vango-dev/reconciler/pkg/vdom"

// MemoRecord is what the Memo Guard remembers about a component instance
// after a committed pass.
type MemoRecord struct {
	Slot      vdom.SlotID
	LastProps vdom.Props

	// LastRendered is the committed component node. Its Output is the
	// expanded subtree that is reused when rendering is skipped.
	LastRendered *vdom.VNode
}

// MemoGuard decides whether a component's render can be skipped.
//
// Records change only when a pass commits. A pass stages the nodes it built
// and the renderer hands them to commit after the host accepted the patches,
// so an aborted pass never leaves a record pointing at an uncommitted tree.
type MemoGuard struct {
	store   *Store
	records map[vdom.SlotID]*MemoRecord
}

// NewMemoGuard creates a guard that consults store for pending state.
func NewMemoGuard(store *Store) *MemoGuard {
	return &MemoGuard{
		store:   store,
		records: make(map[vdom.SlotID]*MemoRecord),
	}
}

// Record returns the committed record for slot.
func (g *MemoGuard) Record(slot vdom.SlotID) (*MemoRecord, bool) {
	rec, ok := g.records[slot]
	return rec, ok
}

// ShouldSkip reports whether comp at slot can reuse its previous output
// instead of rendering with next.
//
// It is true only when comp opted into memoization, a record exists for
// slot, the props compare equal and the instance has no pending state of
// its own. Skipping never hides the instance's own updates.
func (g *MemoGuard) ShouldSkip(slot vdom.SlotID, comp *Component, next vdom.Props) bool {
	if comp == nil || !comp.memo {
		return false
	}
	rec, ok := g.records[slot]
	if !ok || rec.LastRendered == nil {
		return false
	}
	if g.store.Dirty(slot) {
		return false
	}
	if comp.equal != nil {
		return comp.equal(rec.LastProps, next)
	}
	return PropsShallowEqual(rec.LastProps, next)
}

// commit replaces the records for the staged component nodes.
func (g *MemoGuard) commit(staged map[vdom.SlotID]*vdom.VNode) {
	for slot, node := range staged {
		g.records[slot] = &MemoRecord{
			Slot:         slot,
			LastProps:    node.Props,
			LastRendered: node,
		}
	}
}

// Prune forgets records for slots that are no longer mounted.
func (g *MemoGuard) Prune(alive map[vdom.SlotID]struct{}) {
	for slot := range g.records {
		if _, ok := alive[slot]; !ok {
			delete(g.records, slot)
		}
	}
}

// Len returns the number of records.
func (g *MemoGuard) Len() int {
	return len(g.records)
}
