package vdom

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// Options configures Reconcile.
type Options struct {
	// OnCollision is called for every pair of next-tree siblings that
	// resolve to the same identity.
	OnCollision func(Collision)
}

// Result is the outcome of reconciling two trees.
type Result struct {
	// Patches transform the host from prev into next, in application order.
	Patches []Patch

	// Unmounted lists the component identities whose instances were torn
	// down (removed, or destroyed by a type change at their identity).
	Unmounted []SlotID

	// Collisions lists duplicate identities found in the next tree.
	Collisions []Collision
}

// Diff compares two VNode trees and returns the patches needed to transform prev into next.
func Diff(prev, next *VNode) []Patch {
	return Reconcile(prev, next, Options{}).Patches
}

// Reconcile compares two VNode trees sibling group by sibling group.
//
// Siblings are matched by identity (explicit key, else position, plus type).
// A match with the same type is updated in place; the same key or position
// with a different type is destroyed and recreated; a next sibling without a
// match is inserted; a previous sibling without a match is removed.
// Surviving instances that changed relative order are moved, never removed
// and re-inserted.
//
// Positional identity is deliberately naive. Inserting an unkeyed sibling
// anywhere but the tail shifts every later sibling, and each of them is
// reconciled against whatever previously sat at its new index.
func Reconcile(prev, next *VNode, opts Options) Result {
	r := &reconciler{opts: opts}
	var prevList, nextList []*VNode
	if prev != nil {
		prevList = []*VNode{prev}
	}
	if next != nil {
		nextList = []*VNode{next}
	}
	r.diffChildren(RootSlot, Path{}, prevList, nextList)
	return r.res
}

type reconciler struct {
	opts Options
	res  Result
}

func (r *reconciler) emit(p Patch) {
	r.res.Patches = append(r.res.Patches, p)
}

func (r *reconciler) collide(c Collision) {
	r.res.Collisions = append(r.res.Collisions, c)
	if r.opts.OnCollision != nil {
		r.opts.OnCollision(c)
	}
}

// unmount records every component identity inside a discarded subtree.
func (r *reconciler) unmount(node *VNode, slot SlotID) {
	Walk(node, slot, nil, func(n *VNode, s SlotID, _ Path) bool {
		if n.Kind == KindComponent {
			r.res.Unmounted = append(r.res.Unmounted, s)
		}
		return true
	})
}

type matchOp uint8

const (
	matchInsert matchOp = iota
	matchUpdate
	matchReplace
)

type match struct {
	op   matchOp
	prev int
}

// diffChildren reconciles one sibling group. parentPath is the host path of
// the element that owns the group.
func (r *reconciler) diffChildren(parent SlotID, parentPath Path, prev, next []*VNode) {
	if len(prev) == 0 && len(next) == 0 {
		return
	}

	prevIDs, _ := Identities(parent, prev)
	nextIDs, collisions := Identities(parent, next)
	for _, c := range collisions {
		r.collide(c)
	}

	// 1. Index previous siblings by identity.
	bySlot := make(map[SlotID]int, len(prev))
	bySeg := make(map[string][]int, len(prev))
	for j, id := range prevIDs {
		bySlot[id.Slot] = j
		bySeg[id.Seg] = append(bySeg[id.Seg], j)
	}

	// 2. Match next siblings. Exact identities claim their previous sibling
	// first; only then may a sibling whose type changed replace one left
	// over at the same position or key.
	plans := make([]match, len(next))
	used := make([]bool, len(prev))
	for i, id := range nextIDs {
		plans[i] = match{op: matchInsert, prev: -1}
		if j, ok := bySlot[id.Slot]; ok && !used[j] {
			used[j] = true
			plans[i] = match{op: matchUpdate, prev: j}
		}
	}
	for i, id := range nextIDs {
		if plans[i].op != matchInsert {
			continue
		}
		for _, j := range bySeg[id.Seg] {
			if !used[j] && prev[j].Type != next[i].Type {
				used[j] = true
				plans[i] = match{op: matchReplace, prev: j}
				break
			}
		}
	}

	// 3. Remove unmatched previous siblings, last first so indices hold.
	for j := len(prev) - 1; j >= 0; j-- {
		if !used[j] {
			r.emit(Patch{Op: PatchRemoveNode, Path: parentPath.Child(j)})
			r.unmount(prev[j], prevIDs[j].Slot)
		}
	}

	// work mirrors the host's child list. Entries are prev indices for
	// surviving nodes and len(prev)+i for nodes inserted at next index i.
	work := make([]int, 0, len(next))
	for j := range prev {
		if used[j] {
			work = append(work, j)
		}
	}
	entry := func(i int) int {
		if plans[i].op == matchInsert {
			return len(prev) + i
		}
		return plans[i].prev
	}

	// Survivors on the longest run that already has the right relative
	// order stay put; everything else moves.
	stable := r.stableSet(plans, len(next))

	// 4. Place next siblings in order.
	for i := range next {
		p := plans[i]
		dest := 0
		if i > 0 {
			dest = indexOf(work, entry(i-1)) + 1
		}

		switch {
		case p.op == matchInsert:
			r.emit(Patch{Op: PatchInsertNode, Path: parentPath.Child(dest), Node: next[i]})
			work = insertAt(work, dest, entry(i))

		case stable[i]:
			if p.op == matchReplace {
				cur := indexOf(work, p.prev)
				r.emit(Patch{Op: PatchReplaceNode, Path: parentPath.Child(cur), Node: next[i]})
				r.unmount(prev[p.prev], prevIDs[p.prev].Slot)
			}

		case p.op == matchUpdate:
			cur := indexOf(work, p.prev)
			work = removeAt(work, cur)
			if cur < dest {
				dest--
			}
			if cur != dest {
				r.emit(Patch{Op: PatchMoveNode, Path: parentPath.Child(cur), Index: dest})
			}
			work = insertAt(work, dest, p.prev)

		default:
			// Type changed and the position changed too: tear down, then mount.
			cur := indexOf(work, p.prev)
			r.emit(Patch{Op: PatchRemoveNode, Path: parentPath.Child(cur)})
			r.unmount(prev[p.prev], prevIDs[p.prev].Slot)
			work = removeAt(work, cur)
			if cur < dest {
				dest--
			}
			r.emit(Patch{Op: PatchInsertNode, Path: parentPath.Child(dest), Node: next[i]})
			work = insertAt(work, dest, p.prev)
		}
	}

	// 5. Recurse into updated siblings, now at their final positions.
	for i, p := range plans {
		if p.op == matchUpdate {
			r.diffNode(prev[p.prev], next[i], nextIDs[i].Slot, parentPath.Child(i))
		}
	}
}

// stableSet marks the matched siblings on a longest increasing run of
// previous indices.
func (r *reconciler) stableSet(plans []match, n int) []bool {
	stable := make([]bool, n)
	var seq, at []int
	for i, p := range plans {
		if p.op != matchInsert {
			seq = append(seq, p.prev)
			at = append(at, i)
		}
	}
	for k, keep := range longestIncreasing(seq) {
		stable[at[k]] = keep
	}
	return stable
}

// diffNode compares two nodes that share an identity (and therefore a type).
func (r *reconciler) diffNode(prev, next *VNode, slot SlotID, path Path) {
	if prev == next {
		return
	}

	switch next.Kind {
	case KindText:
		if prev.Text != next.Text {
			r.emit(Patch{Op: PatchSetText, Path: path, Value: next.Text})
		}
	case KindElement:
		r.diffProps(prev, next, path)
		r.diffChildren(slot, path, prev.Children, next.Children)
	case KindComponent:
		r.diffOutput(slot, path, prev.Output, next.Output)
	}
}

// diffOutput compares the outputs of one component instance. The output
// occupies the component's own host position.
func (r *reconciler) diffOutput(slot SlotID, path Path, prevOut, nextOut *VNode) {
	if prevOut == nil {
		prevOut = emptyPlaceholder
	}
	if nextOut == nil {
		nextOut = emptyPlaceholder
	}
	prevSlot := ChildSlot(slot, prevOut, 0)
	nextSlot := ChildSlot(slot, nextOut, 0)
	if prevSlot == nextSlot {
		r.diffNode(prevOut, nextOut, nextSlot, path)
		return
	}
	r.emit(Patch{Op: PatchReplaceNode, Path: path, Node: nextOut})
	r.unmount(prevOut, prevSlot)
}

// diffProps compares and patches attributes in key order.
func (r *reconciler) diffProps(prev, next *VNode, path Path) {
	keys := make([]string, 0, len(prev.Props)+len(next.Props))
	for key := range prev.Props {
		keys = append(keys, key)
	}
	for key := range next.Props {
		if _, ok := prev.Props[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		if isEventHandler(key) || key == "key" {
			continue // Handlers and keys are not host attributes
		}
		prevVal, inPrev := prev.Props[key]
		nextVal, inNext := next.Props[key]
		switch {
		case !inNext:
			r.emit(Patch{Op: PatchRemoveAttr, Path: path, Key: key})
		case !inPrev || !propsEqual(prevVal, nextVal):
			r.emit(Patch{Op: PatchSetAttr, Path: path, Key: key, Value: propToString(nextVal)})
		}
	}
}

// longestIncreasing returns, for each element of seq, whether it belongs to
// one longest strictly increasing subsequence.
func longestIncreasing(seq []int) []bool {
	keep := make([]bool, len(seq))
	if len(seq) == 0 {
		return keep
	}

	// tails[k] is the index in seq of the smallest tail of a run of length k+1.
	tails := make([]int, 0, len(seq))
	back := make([]int, len(seq))
	for i, v := range seq {
		k := sort.Search(len(tails), func(n int) bool { return seq[tails[n]] >= v })
		if k > 0 {
			back[i] = tails[k-1]
		} else {
			back[i] = -1
		}
		if k == len(tails) {
			tails = append(tails, i)
		} else {
			tails[k] = i
		}
	}
	for i := tails[len(tails)-1]; i >= 0; i = back[i] {
		keep[i] = true
	}
	return keep
}

func indexOf(list []int, v int) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

func insertAt(list []int, i, v int) []int {
	list = append(list, 0)
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}

func removeAt(list []int, i int) []int {
	return append(list[:i], list[i+1:]...)
}

// propsEqual compares two attribute values for equality.
func propsEqual(a, b any) bool {
	// Fast path for common types
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return av == bv
		}
		return false
	case int:
		if bv, ok := b.(int); ok {
			return av == bv
		}
		return false
	case int64:
		if bv, ok := b.(int64); ok {
			return av == bv
		}
		return false
	case float64:
		if bv, ok := b.(float64); ok {
			return av == bv
		}
		return false
	case bool:
		if bv, ok := b.(bool); ok {
			return av == bv
		}
		return false
	case nil:
		return b == nil
	}
	// Fallback to reflect for complex types
	return reflect.DeepEqual(a, b)
}

// propToString converts an attribute value to a string for the patch.
func propToString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
