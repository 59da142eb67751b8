package host

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// ErrBadPath is returned when a patch addresses a node that does not exist.
var ErrBadPath = errors.New("host: path does not address a node")

// Node is one host node.
type Node struct {
	Kind     vdom.VKind        `json:"kind"` // KindElement, KindText or KindEmpty
	Tag      string            `json:"tag,omitempty"`
	Text     string            `json:"text,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Children []*Node           `json:"children,omitempty"`
}

// Tree is an in-memory host that applies patch streams by path.
// The root node lives at path [0] under an implicit container.
type Tree struct {
	container *Node
	applied   int
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{container: &Node{Kind: vdom.KindElement, Tag: "#root"}}
}

// PatchError reports the patch that could not be applied.
type PatchError struct {
	Index int
	Patch vdom.Patch
	Err   error
}

// Error implements the error interface.
func (e *PatchError) Error() string {
	return fmt.Sprintf("host: patch %d (%s): %v", e.Index, e.Patch, e.Err)
}

// Unwrap returns the underlying error.
func (e *PatchError) Unwrap() error {
	return e.Err
}

// Apply applies patches in order. The batch is all-or-nothing: if any
// patch cannot be applied the tree is left as it was.
func (t *Tree) Apply(patches []vdom.Patch) error {
	if len(patches) == 0 {
		return nil
	}
	work := &Tree{container: t.container.clone()}
	for i, p := range patches {
		if err := work.apply(p); err != nil {
			return &PatchError{Index: i, Patch: p, Err: err}
		}
	}
	t.container = work.container
	t.applied += len(patches)
	return nil
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	return &Tree{container: t.container.clone(), applied: t.applied}
}

func (n *Node) clone() *Node {
	c := &Node{Kind: n.Kind, Tag: n.Tag, Text: n.Text}
	if n.Attrs != nil {
		c.Attrs = make(map[string]string, len(n.Attrs))
		for k, v := range n.Attrs {
			c.Attrs[k] = v
		}
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.clone()
		}
	}
	return c
}

// Applied returns the number of patches applied so far.
func (t *Tree) Applied() int {
	return t.applied
}

// Root returns the root node, or nil when nothing is mounted.
func (t *Tree) Root() *Node {
	if len(t.container.Children) == 0 {
		return nil
	}
	return t.container.Children[0]
}

// Lookup returns the node at path.
func (t *Tree) Lookup(path vdom.Path) (*Node, error) {
	n := t.container
	for _, i := range path {
		if i < 0 || i >= len(n.Children) {
			return nil, fmt.Errorf("%w: %s", ErrBadPath, path)
		}
		n = n.Children[i]
	}
	return n, nil
}

func (t *Tree) apply(p vdom.Patch) error {
	if len(p.Path) == 0 {
		return fmt.Errorf("%w: empty path", ErrBadPath)
	}
	parent, err := t.Lookup(p.Path.Parent())
	if err != nil {
		return err
	}
	idx := p.Path.Last()

	switch p.Op {
	case vdom.PatchInsertNode:
		if idx < 0 || idx > len(parent.Children) {
			return fmt.Errorf("%w: insert at %s", ErrBadPath, p.Path)
		}
		parent.Children = insertNode(parent.Children, idx, Materialize(p.Node))
		return nil

	case vdom.PatchRemoveNode:
		if idx < 0 || idx >= len(parent.Children) {
			return fmt.Errorf("%w: remove at %s", ErrBadPath, p.Path)
		}
		parent.Children = append(parent.Children[:idx], parent.Children[idx+1:]...)
		return nil

	case vdom.PatchMoveNode:
		if idx < 0 || idx >= len(parent.Children) {
			return fmt.Errorf("%w: move from %s", ErrBadPath, p.Path)
		}
		if p.Index < 0 || p.Index >= len(parent.Children) {
			return fmt.Errorf("%w: move to %d", ErrBadPath, p.Index)
		}
		n := parent.Children[idx]
		parent.Children = append(parent.Children[:idx], parent.Children[idx+1:]...)
		parent.Children = insertNode(parent.Children, p.Index, n)
		return nil

	case vdom.PatchReplaceNode:
		if idx < 0 || idx >= len(parent.Children) {
			return fmt.Errorf("%w: replace at %s", ErrBadPath, p.Path)
		}
		parent.Children[idx] = Materialize(p.Node)
		return nil
	}

	target, err := t.Lookup(p.Path)
	if err != nil {
		return err
	}
	switch p.Op {
	case vdom.PatchSetText:
		if target.Kind != vdom.KindText {
			return fmt.Errorf("host: SetText on %s node", target.Kind)
		}
		target.Text = p.Value
	case vdom.PatchSetAttr:
		if target.Kind != vdom.KindElement {
			return fmt.Errorf("host: SetAttr on %s node", target.Kind)
		}
		if target.Attrs == nil {
			target.Attrs = make(map[string]string)
		}
		target.Attrs[p.Key] = p.Value
	case vdom.PatchRemoveAttr:
		if target.Kind != vdom.KindElement {
			return fmt.Errorf("host: RemoveAttr on %s node", target.Kind)
		}
		delete(target.Attrs, p.Key)
	default:
		return fmt.Errorf("host: unknown patch op %d", p.Op)
	}
	return nil
}

func insertNode(list []*Node, i int, n *Node) []*Node {
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = n
	return list
}

// Materialize converts a VNode subtree into host nodes. Components are
// resolved to the host node they render.
func Materialize(v *vdom.VNode) *Node {
	h := v.Host()
	switch h.Kind {
	case vdom.KindText:
		return &Node{Kind: vdom.KindText, Text: h.Text}
	case vdom.KindElement:
		n := &Node{Kind: vdom.KindElement, Tag: h.Tag, Attrs: vdom.HostAttrs(h.Props)}
		if len(h.Children) > 0 {
			n.Children = make([]*Node, len(h.Children))
			for i, c := range h.Children {
				n.Children[i] = Materialize(c)
			}
		}
		return n
	default:
		return &Node{Kind: vdom.KindEmpty}
	}
}

// Render returns the string form of the host tree a VNode produces.
func Render(v *vdom.VNode) string {
	if v == nil {
		return ""
	}
	return Materialize(v).String()
}

// String renders the whole tree.
func (t *Tree) String() string {
	if r := t.Root(); r != nil {
		return r.String()
	}
	return ""
}

// String renders the node as compact markup with sorted attributes.
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	switch n.Kind {
	case vdom.KindText:
		b.WriteString(n.Text)
	case vdom.KindEmpty:
		b.WriteString("<!---->")
	default:
		b.WriteByte('<')
		b.WriteString(n.Tag)
		keys := make([]string, 0, len(n.Attrs))
		for k := range n.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(b, " %s=%q", k, n.Attrs[k])
		}
		b.WriteByte('>')
		for _, c := range n.Children {
			c.write(b)
		}
		b.WriteString("</")
		b.WriteString(n.Tag)
		b.WriteByte('>')
	}
}
