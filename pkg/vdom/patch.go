package vdom

import (
	"fmt"
	"strings"
)

// PatchOp is the type of patch operation.
type PatchOp uint8

const (
	PatchSetText     PatchOp = 0x01 // Update text content
	PatchSetAttr     PatchOp = 0x02 // Set/update attribute
	PatchRemoveAttr  PatchOp = 0x03 // Remove attribute
	PatchInsertNode  PatchOp = 0x04 // Insert new node
	PatchRemoveNode  PatchOp = 0x05 // Remove node
	PatchMoveNode    PatchOp = 0x06 // Move node to new position
	PatchReplaceNode PatchOp = 0x07 // Replace node entirely
)

// String returns the string representation of the PatchOp.
func (op PatchOp) String() string {
	switch op {
	case PatchSetText:
		return "SetText"
	case PatchSetAttr:
		return "SetAttr"
	case PatchRemoveAttr:
		return "RemoveAttr"
	case PatchInsertNode:
		return "InsertNode"
	case PatchRemoveNode:
		return "RemoveNode"
	case PatchMoveNode:
		return "MoveNode"
	case PatchReplaceNode:
		return "ReplaceNode"
	default:
		return "Unknown"
	}
}

// Patch represents a single host operation to apply.
//
// Path is always interpreted against the host tree as it stands when the
// patch is applied, after every earlier patch in the same sequence:
//
//   - InsertNode: Path is where the new node ends up; its parent is
//     Path.Parent() and it is inserted before the node currently at Path.Last().
//   - RemoveNode, ReplaceNode, SetText, SetAttr, RemoveAttr: Path is the target.
//   - MoveNode: Path is the node's current position; Index is its new index
//     within the same parent, counted after the node has been taken out.
type Patch struct {
	Op    PatchOp // Operation type
	Path  Path    // Target host path
	Key   string  // Attribute key (for SetAttr/RemoveAttr)
	Value string  // New value
	Node  *VNode  // For InsertNode/ReplaceNode
	Index int     // Destination for MoveNode
}

// String returns a compact, human-readable description of the patch.
func (p Patch) String() string {
	switch p.Op {
	case PatchSetText:
		return fmt.Sprintf("SetText %s %q", p.Path, p.Value)
	case PatchSetAttr:
		return fmt.Sprintf("SetAttr %s %s=%q", p.Path, p.Key, p.Value)
	case PatchRemoveAttr:
		return fmt.Sprintf("RemoveAttr %s %s", p.Path, p.Key)
	case PatchInsertNode:
		return fmt.Sprintf("InsertNode %s %s", p.Path, describe(p.Node))
	case PatchRemoveNode:
		return fmt.Sprintf("RemoveNode %s", p.Path)
	case PatchMoveNode:
		return fmt.Sprintf("MoveNode %s -> %d", p.Path, p.Index)
	case PatchReplaceNode:
		return fmt.Sprintf("ReplaceNode %s %s", p.Path, describe(p.Node))
	default:
		return "Unknown " + p.Path.String()
	}
}

// FormatPatches renders a patch sequence one patch per line.
func FormatPatches(patches []Patch) string {
	var b strings.Builder
	for _, p := range patches {
		b.WriteString(p.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func describe(n *VNode) string {
	h := n.Host()
	switch h.Kind {
	case KindText:
		return fmt.Sprintf("%q", h.Text)
	case KindEmpty:
		return "<empty>"
	default:
		return "<" + h.Tag + ">"
	}
}
