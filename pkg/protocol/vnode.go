package protocol

import (
	"sort"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// VNodeWire is the wire format for host nodes.
// It contains only serializable data: components are resolved to the host
// node they render, and event handlers are dropped.
type VNodeWire struct {
	Kind     vdom.VKind        // KindElement, KindText or KindEmpty
	Tag      string            // Element tag name
	Attrs    map[string]string // String attributes only (no handlers)
	Children []*VNodeWire      // Child nodes
	Text     string            // For Text nodes
}

// VNodeToWire converts an expanded vdom.VNode to wire format.
func VNodeToWire(node *vdom.VNode) *VNodeWire {
	if node == nil {
		return nil
	}
	h := node.Host()

	w := &VNodeWire{Kind: h.Kind}
	switch h.Kind {
	case vdom.KindText:
		w.Text = h.Text
	case vdom.KindElement:
		w.Tag = h.Tag
		if attrs := vdom.HostAttrs(h.Props); len(attrs) > 0 {
			w.Attrs = attrs
		}
		if len(h.Children) > 0 {
			w.Children = make([]*VNodeWire, 0, len(h.Children))
			for _, child := range h.Children {
				w.Children = append(w.Children, VNodeToWire(child))
			}
		}
	}
	return w
}

// EncodeVNodeWire encodes a VNodeWire to bytes using the provided encoder.
// Attributes are written in key order, so equal trees encode identically.
func EncodeVNodeWire(e *Encoder, node *VNodeWire) {
	if node == nil {
		e.WriteByte(0xFF) // Null marker
		return
	}

	e.WriteByte(byte(node.Kind))

	switch node.Kind {
	case vdom.KindElement:
		e.WriteString(node.Tag)

		keys := make([]string, 0, len(node.Attrs))
		for k := range node.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		e.WriteUvarint(uint64(len(keys)))
		for _, k := range keys {
			e.WriteString(k)
			e.WriteString(node.Attrs[k])
		}

		e.WriteUvarint(uint64(len(node.Children)))
		for _, child := range node.Children {
			EncodeVNodeWire(e, child)
		}

	case vdom.KindText:
		e.WriteString(node.Text)

	case vdom.KindEmpty:
		// No payload
	}
}

// DecodeVNodeWire decodes a VNodeWire from the decoder.
// SECURITY: Enforces MaxVNodeDepth to prevent stack overflow attacks.
func DecodeVNodeWire(d *Decoder) (*VNodeWire, error) {
	return decodeVNodeWireWithDepth(d, 0)
}

func decodeVNodeWireWithDepth(d *Decoder, depth int) (*VNodeWire, error) {
	if err := checkDepth(depth, MaxVNodeDepth); err != nil {
		return nil, err
	}

	kindByte, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if kindByte == 0xFF {
		return nil, nil
	}

	node := &VNodeWire{Kind: vdom.VKind(kindByte)}

	switch node.Kind {
	case vdom.KindElement:
		node.Tag, err = d.ReadString()
		if err != nil {
			return nil, err
		}

		// SECURITY: Use ReadCollectionCount to prevent DoS
		attrCount, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		if attrCount > 0 {
			node.Attrs = make(map[string]string, attrCount)
			for i := 0; i < attrCount; i++ {
				key, err := d.ReadString()
				if err != nil {
					return nil, err
				}
				value, err := d.ReadString()
				if err != nil {
					return nil, err
				}
				node.Attrs[key] = value
			}
		}

		childCount, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		if childCount > 0 {
			node.Children = make([]*VNodeWire, childCount)
			for i := 0; i < childCount; i++ {
				child, err := decodeVNodeWireWithDepth(d, depth+1)
				if err != nil {
					return nil, err
				}
				node.Children[i] = child
			}
		}

	case vdom.KindText:
		node.Text, err = d.ReadString()
		if err != nil {
			return nil, err
		}

	case vdom.KindEmpty:

	default:
		return nil, ErrInvalidNodeKind
	}

	return node, nil
}

// ToVNode converts a VNodeWire back to a host-only vdom.VNode.
func (w *VNodeWire) ToVNode() *vdom.VNode {
	if w == nil {
		return nil
	}
	switch w.Kind {
	case vdom.KindText:
		return vdom.Text(w.Text)
	case vdom.KindEmpty:
		return vdom.Empty()
	}

	args := make([]any, 0, len(w.Attrs)+len(w.Children))
	for k, v := range w.Attrs {
		args = append(args, vdom.Attr{Key: k, Value: v})
	}
	for _, child := range w.Children {
		args = append(args, child.ToVNode())
	}
	return vdom.H(w.Tag, args...)
}

// NewTextWire creates a text VNodeWire.
func NewTextWire(text string) *VNodeWire {
	return &VNodeWire{Kind: vdom.KindText, Text: text}
}

// NewElementWire creates an element VNodeWire.
func NewElementWire(tag string, attrs map[string]string, children ...*VNodeWire) *VNodeWire {
	return &VNodeWire{
		Kind:     vdom.KindElement,
		Tag:      tag,
		Attrs:    attrs,
		Children: children,
	}
}
