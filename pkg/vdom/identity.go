package vdom

import (
	"strconv"
	"strings"
)

// SlotID is the address persistent state is bound to. It is built from the
// parent's SlotID plus one segment per level:
//
//	/App.4[0]/ul[0]/Item.5[k:b]
//
// The segment holds the type and either the explicit key ("k:" prefix) or
// the sibling index (positional identity). Because a SlotID spells out the
// whole path, "is X inside Y" is a prefix check.
type SlotID string

// RootSlot is the parent identity of the root node.
const RootSlot SlotID = ""

// Contains reports whether other is s itself or lies in the subtree rooted at s.
func (s SlotID) Contains(other SlotID) bool {
	if other == s {
		return true
	}
	return strings.HasPrefix(string(other), string(s)+"/")
}

// Identity is the resolved identity of one sibling.
type Identity struct {
	Slot SlotID // Full slot identity including the type
	Seg  string // Sibling-local segment: "k:<key>" or the index
}

// Collision describes two siblings that resolved to the same identity.
type Collision struct {
	Parent   SlotID
	Key      string
	Type     TypeID
	Index    int    // Index of the duplicate in the sibling list
	Assigned SlotID // Synthesized identity given to the duplicate
}

// ChildSlot returns the identity of a child at index under parent.
func ChildSlot(parent SlotID, child *VNode, index int) SlotID {
	return makeSlot(parent, child.Type, segment(child, index))
}

// Identities resolves the identity of every sibling in children.
//
// Keyed children are identified by (type, key), the rest by (type, index).
// A duplicate key is reported as a Collision and the duplicate receives a
// synthesized identity ("key~1", "key~2", ...), so it is reconciled as a
// new instance instead of being dropped.
func Identities(parent SlotID, children []*VNode) ([]Identity, []Collision) {
	ids := make([]Identity, len(children))
	var collisions []Collision
	var seen map[SlotID]struct{}
	if len(children) > 1 {
		seen = make(map[SlotID]struct{}, len(children))
	}

	for i, child := range children {
		seg := segment(child, i)
		slot := makeSlot(parent, child.Type, seg)

		if seen != nil {
			if _, dup := seen[slot]; dup {
				for n := 1; ; n++ {
					seg = "k:" + child.Key + "~" + strconv.Itoa(n)
					slot = makeSlot(parent, child.Type, seg)
					if _, taken := seen[slot]; !taken {
						break
					}
				}
				collisions = append(collisions, Collision{
					Parent:   parent,
					Key:      child.Key,
					Type:     child.Type,
					Index:    i,
					Assigned: slot,
				})
			}
			seen[slot] = struct{}{}
		}

		ids[i] = Identity{Slot: slot, Seg: seg}
	}
	return ids, collisions
}

// RootIdentity returns the identity of the root node.
func RootIdentity(root *VNode) SlotID {
	return ChildSlot(RootSlot, root, 0)
}

func segment(child *VNode, index int) string {
	if child.Key != "" {
		return "k:" + child.Key
	}
	return strconv.Itoa(index)
}

func makeSlot(parent SlotID, t TypeID, seg string) SlotID {
	var b strings.Builder
	b.Grow(len(parent) + len(seg) + 16)
	b.WriteString(string(parent))
	b.WriteByte('/')
	b.WriteString(t.String())
	if t >= firstDynamicType {
		b.WriteByte('.')
		b.WriteString(strconv.FormatUint(uint64(t), 10))
	}
	b.WriteByte('[')
	b.WriteString(seg)
	b.WriteByte(']')
	return SlotID(b.String())
}

// Walk visits node and every descendant in document order together with
// its slot identity and host path. Component outputs are visited at the
// component's own host path. Returning false skips the node's subtree.
func Walk(node *VNode, slot SlotID, path Path, visit func(n *VNode, slot SlotID, path Path) bool) {
	if node == nil {
		return
	}
	if !visit(node, slot, path) {
		return
	}
	switch node.Kind {
	case KindComponent:
		if node.Output != nil {
			Walk(node.Output, ChildSlot(slot, node.Output, 0), path, visit)
		}
	case KindElement:
		ids, _ := Identities(slot, node.Children)
		for i, child := range node.Children {
			Walk(child, ids[i].Slot, path.Child(i), visit)
		}
	}
}

// Slots returns the set of component slot identities present in the tree.
func Slots(root *VNode) map[SlotID]struct{} {
	alive := make(map[SlotID]struct{})
	if root == nil {
		return alive
	}
	Walk(root, RootIdentity(root), Path{0}, func(n *VNode, slot SlotID, _ Path) bool {
		if n.Kind == KindComponent {
			alive[slot] = struct{}{}
		}
		return true
	})
	return alive
}
