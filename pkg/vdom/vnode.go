package vdom

import "strings"

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement   VKind = iota // <div>, <button>, etc.
	KindText                   // Plain text node
	KindEmpty                  // Placeholder for a component that rendered nothing
	KindComponent              // Composite component invocation
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindEmpty:
		return "Empty"
	case KindComponent:
		return "Component"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the kind by name, as in JSON tree dumps.
func (k VKind) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(k.String())), nil
}

// IsHost reports whether nodes of this kind occupy a host position themselves.
// Components are transparent: their Output takes their place.
func (k VKind) IsHost() bool {
	return k != KindComponent
}

// VNode is the virtual DOM node.
//
// VNodes are immutable once a render pass has produced them. A new pass builds
// a new tree and reuses unchanged subtrees by pointer; the previous tree is
// only kept for diffing. Nodes never point at their parent; positions are
// computed during traversal (see Path and SlotID).
type VNode struct {
	Kind     VKind     // Node type
	Type     TypeID    // Tagged type used for the same-instance check
	Tag      string    // Element tag name (e.g., "div")
	Props    Props     // Attributes, event handlers or component props
	Children []*VNode  // Child nodes (for components: children passed by the caller)
	Key      string    // Reconciliation key
	Text     string    // For KindText
	Comp     Component // For KindComponent
	Output   *VNode    // Expanded output of a component (set by the renderer)
	Slot     SlotID    // Slot identity (set by the renderer)
}

// Props holds attributes and event handlers.
type Props map[string]any

// Get returns the prop value for key, or nil.
func (p Props) Get(key string) any {
	if p == nil {
		return nil
	}
	return p[key]
}

// String returns the prop value for key if it is a string.
func (p Props) String(key string) string {
	s, _ := p.Get(key).(string)
	return s
}

// Clone returns a shallow copy of the props.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Host returns the node that occupies this node's host position: the node
// itself for host kinds, or the end of the Output chain for components.
// A component without output resolves to an empty placeholder.
func (v *VNode) Host() *VNode {
	for v != nil && v.Kind == KindComponent {
		if v.Output == nil {
			return emptyPlaceholder
		}
		v = v.Output
	}
	if v == nil {
		return emptyPlaceholder
	}
	return v
}

// Attr represents a single attribute.
type Attr struct {
	Key   string
	Value any
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Key == ""
}

// EventHandler represents an event handler.
type EventHandler struct {
	Event   string // "onclick", "oninput", etc.
	Handler any    // Function to call
}

// Component is anything the renderer can expand into a VNode.
// The renderer in pkg/vango provides the concrete implementation.
type Component interface {
	TypeID() TypeID
	Name() string
}

var emptyPlaceholder = &VNode{Kind: KindEmpty, Type: TypeEmpty}

// Empty returns a placeholder node. It occupies one host position and has no
// content, so a component that renders nothing keeps sibling positions stable.
func Empty() *VNode {
	return &VNode{Kind: KindEmpty, Type: TypeEmpty}
}

// isEventHandler returns true if the key is an event handler (starts with "on").
// Case-insensitive to catch onclick, ONCLICK, onClick, OnLoad, etc.
func isEventHandler(key string) bool {
	return len(key) > 2 && strings.EqualFold(key[:2], "on")
}

// HostAttrs returns the attributes a host stores for an element: every prop
// except event handlers and the key, stringified the same way SetAttr
// patches are.
func HostAttrs(props Props) map[string]string {
	attrs := make(map[string]string, len(props))
	for k, v := range props {
		if isEventHandler(k) || k == "key" {
			continue
		}
		attrs[k] = propToString(v)
	}
	return attrs
}
