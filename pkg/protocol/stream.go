package protocol

import (
	"fmt"
	"io"
	"sync"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// FrameWriter is a host that serializes every committed pass into one or
// more FramePatches frames. A pass whose encoding exceeds MaxPayloadSize is
// split across frames; only the last frame of a pass carries FlagFinal.
type FrameWriter struct {
	mu  sync.Mutex
	w   io.Writer
	seq uint64
}

// NewFrameWriter returns a FrameWriter writing to w.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// Seq returns the sequence number of the last frame written.
func (fw *FrameWriter) Seq() uint64 {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.seq
}

// Apply encodes patches and writes them. Nothing is written and the
// sequence number does not advance when the patches cannot be encoded.
func (fw *FrameWriter) Apply(patches []vdom.Patch) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	frames, err := encodePatchFrames(fw.seq, PatchesFromVDOM(patches))
	if err != nil {
		return err
	}
	for _, f := range frames {
		if err := WriteFrame(fw.w, f); err != nil {
			return err
		}
		fw.seq++
	}
	return nil
}

// encodePatchFrames packs patches into frames under MaxPayloadSize,
// numbering them after seq.
func encodePatchFrames(seq uint64, patches []Patch) ([]*Frame, error) {
	var frames []*Frame
	pending := patches
	for {
		seq++
		n, payload, err := packPatches(seq, pending)
		if err != nil {
			return nil, err
		}
		pending = pending[n:]
		flags := FlagSequenced
		if len(pending) == 0 {
			flags |= FlagFinal
		}
		frames = append(frames, NewFrameWithFlags(FramePatches, flags, payload))
		if len(pending) == 0 {
			return frames, nil
		}
	}
}

// packPatches encodes the longest prefix of patches that fits in one frame.
func packPatches(seq uint64, patches []Patch) (int, []byte, error) {
	n := len(patches)
	for {
		payload := EncodePatches(&PatchesFrame{Seq: seq, Patches: patches[:n]})
		if len(payload) <= MaxPayloadSize {
			return n, payload, nil
		}
		if n == 1 {
			return 0, nil, fmt.Errorf("%w: single %s patch encodes to %d bytes", ErrFrameTooLarge, patches[0].Op, len(payload))
		}
		n = (n + 1) / 2
	}
}

// EncodeTree encodes a snapshot of the host tree as a FrameTree frame. seq
// is the sequence number of the last patch frame the snapshot includes.
// A nil root encodes an empty tree.
func EncodeTree(seq uint64, root *VNodeWire) (*Frame, error) {
	e := NewEncoder()
	e.WriteUvarint(seq)
	EncodeVNodeWire(e, root)
	if e.Len() > MaxPayloadSize {
		return nil, ErrFrameTooLarge
	}
	return NewFrame(FrameTree, e.Bytes()), nil
}

// DecodeTree decodes a FrameTree payload.
func DecodeTree(payload []byte) (uint64, *VNodeWire, error) {
	d := NewDecoder(payload)
	seq, err := d.ReadUvarint()
	if err != nil {
		return 0, nil, err
	}
	node, err := DecodeVNodeWire(d)
	if err != nil {
		return 0, nil, err
	}
	return seq, node, nil
}
