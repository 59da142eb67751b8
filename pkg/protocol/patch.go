package protocol

import (
	"errors"
	"fmt"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// Patch decoding errors.
var (
	ErrInvalidPatchOp  = errors.New("protocol: invalid patch op")
	ErrInvalidNodeKind = errors.New("protocol: invalid node kind")
	ErrMissingNode     = errors.New("protocol: patch requires a node")
)

// Patch is the wire form of a vdom.Patch.
type Patch struct {
	Op    vdom.PatchOp
	Path  vdom.Path  // Target host path
	Key   string     // Attribute key
	Value string     // Text or attribute value
	Index int        // Destination for MoveNode
	Node  *VNodeWire // For InsertNode/ReplaceNode
}

// PatchFromVDOM converts a reconciler patch to wire form.
func PatchFromVDOM(p vdom.Patch) Patch {
	return Patch{
		Op:    p.Op,
		Path:  p.Path,
		Key:   p.Key,
		Value: p.Value,
		Index: p.Index,
		Node:  VNodeToWire(p.Node),
	}
}

// PatchesFromVDOM converts a patch sequence to wire form.
func PatchesFromVDOM(patches []vdom.Patch) []Patch {
	out := make([]Patch, len(patches))
	for i, p := range patches {
		out[i] = PatchFromVDOM(p)
	}
	return out
}

// ToVDOM converts the patch back into a vdom.Patch. Nodes are host-only.
func (p Patch) ToVDOM() vdom.Patch {
	return vdom.Patch{
		Op:    p.Op,
		Path:  p.Path,
		Key:   p.Key,
		Value: p.Value,
		Index: p.Index,
		Node:  p.Node.ToVNode(),
	}
}

// String returns a compact, human-readable description of the patch.
func (p Patch) String() string {
	return fmt.Sprintf("%s %s", p.Op, p.Path)
}

// PatchesFrame is the patch batch of one committed pass.
type PatchesFrame struct {
	Seq     uint64
	Patches []Patch
}

// EncodePatches encodes a patches frame to bytes.
func EncodePatches(pf *PatchesFrame) []byte {
	e := NewEncoder()
	EncodePatchesTo(e, pf)
	return e.Bytes()
}

// EncodePatchesTo encodes a patches frame using the provided encoder.
//
//	[Seq: varint][Count: varint]{[Op: byte][Path: count + varints][op data]}
func EncodePatchesTo(e *Encoder, pf *PatchesFrame) {
	e.WriteUvarint(pf.Seq)
	e.WriteUvarint(uint64(len(pf.Patches)))
	for i := range pf.Patches {
		encodePatch(e, &pf.Patches[i])
	}
}

func encodePatch(e *Encoder, p *Patch) {
	e.WriteByte(byte(p.Op))
	e.WriteUvarint(uint64(len(p.Path)))
	for _, i := range p.Path {
		e.WriteUvarint(uint64(i))
	}

	switch p.Op {
	case vdom.PatchSetText:
		e.WriteString(p.Value)
	case vdom.PatchSetAttr:
		e.WriteString(p.Key)
		e.WriteString(p.Value)
	case vdom.PatchRemoveAttr:
		e.WriteString(p.Key)
	case vdom.PatchInsertNode, vdom.PatchReplaceNode:
		EncodeVNodeWire(e, p.Node)
	case vdom.PatchRemoveNode:
		// Path is sufficient
	case vdom.PatchMoveNode:
		e.WriteUvarint(uint64(p.Index))
	}
}

// DecodePatches decodes a patches frame from bytes.
func DecodePatches(data []byte) (*PatchesFrame, error) {
	return DecodePatchesFrom(NewDecoder(data))
}

// DecodePatchesFrom decodes a patches frame from a decoder.
func DecodePatchesFrom(d *Decoder) (*PatchesFrame, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}

	// SECURITY: Use ReadCollectionCount to prevent DoS
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}

	patches := make([]Patch, count)
	for i := 0; i < count; i++ {
		if err := decodePatch(d, &patches[i]); err != nil {
			return nil, fmt.Errorf("patch %d: %w", i, err)
		}
	}
	return &PatchesFrame{Seq: seq, Patches: patches}, nil
}

func decodePatch(d *Decoder, p *Patch) error {
	opByte, err := d.ReadByte()
	if err != nil {
		return err
	}
	p.Op = vdom.PatchOp(opByte)

	n, err := d.ReadCollectionCount()
	if err != nil {
		return err
	}
	if err := checkDepth(n, MaxPathDepth); err != nil {
		return err
	}
	p.Path = make(vdom.Path, n)
	for i := range p.Path {
		v, err := d.ReadUvarint()
		if err != nil {
			return err
		}
		if v > MaxCollectionCount {
			return ErrCollectionTooLarge
		}
		p.Path[i] = int(v)
	}

	switch p.Op {
	case vdom.PatchSetText:
		p.Value, err = d.ReadString()
	case vdom.PatchSetAttr:
		if p.Key, err = d.ReadString(); err != nil {
			return err
		}
		p.Value, err = d.ReadString()
	case vdom.PatchRemoveAttr:
		p.Key, err = d.ReadString()
	case vdom.PatchInsertNode, vdom.PatchReplaceNode:
		if p.Node, err = DecodeVNodeWire(d); err != nil {
			return err
		}
		if p.Node == nil {
			return ErrMissingNode
		}
	case vdom.PatchRemoveNode:
	case vdom.PatchMoveNode:
		var idx uint64
		if idx, err = d.ReadUvarint(); err != nil {
			return err
		}
		if idx > MaxCollectionCount {
			return ErrCollectionTooLarge
		}
		p.Index = int(idx)
	default:
		return fmt.Errorf("%w: 0x%02x", ErrInvalidPatchOp, opByte)
	}
	return err
}
