package vdom

import (
	"strconv"
	"sync"
)

// TypeID is the tagged type of a VNode. Two nodes are candidates for the
// same instance only if their TypeIDs are equal; the check is a plain
// integer comparison, never a structural one.
//
// Host tags are interned, so Tag("li") always returns the same TypeID.
// Every call to NewType returns a fresh TypeID, so two component
// definitions never share a type even if they share a name.
type TypeID uint32

const (
	TypeInvalid TypeID = iota
	TypeText
	TypeEmpty

	firstDynamicType
)

var types = struct {
	sync.RWMutex
	names map[TypeID]string
	tags  map[string]TypeID
	next  TypeID
}{
	names: map[TypeID]string{
		TypeInvalid: "#invalid",
		TypeText:    "#text",
		TypeEmpty:   "#empty",
	},
	tags: make(map[string]TypeID),
	next: firstDynamicType,
}

// Tag returns the interned TypeID for a host element tag.
func Tag(name string) TypeID {
	types.RLock()
	id, ok := types.tags[name]
	types.RUnlock()
	if ok {
		return id
	}

	types.Lock()
	defer types.Unlock()
	if id, ok := types.tags[name]; ok {
		return id
	}
	id = types.next
	types.next++
	types.tags[name] = id
	types.names[id] = name
	return id
}

// NewType allocates a fresh TypeID for a component definition.
func NewType(name string) TypeID {
	types.Lock()
	defer types.Unlock()
	id := types.next
	types.next++
	types.names[id] = name
	return id
}

// String returns the registered name of the type.
func (t TypeID) String() string {
	types.RLock()
	name, ok := types.names[t]
	types.RUnlock()
	if !ok {
		return "#" + strconv.FormatUint(uint64(t), 10)
	}
	return name
}
