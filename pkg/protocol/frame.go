package protocol

import (
	"errors"
	"io"
)

const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 4

	// MaxPayloadSize is the largest payload a frame can carry.
	MaxPayloadSize = 65535
)

// FrameType identifies the type of frame.
type FrameType uint8

const (
	FrameTree    FrameType = 0x01 // Snapshot of the committed host tree
	FramePatches FrameType = 0x02 // Patches of one committed pass
	FrameError   FrameType = 0x05 // Error message
)

func (ft FrameType) String() string {
	switch ft {
	case FrameTree:
		return "Tree"
	case FramePatches:
		return "Patches"
	case FrameError:
		return "Error"
	default:
		return "Unknown"
	}
}

func (ft FrameType) valid() bool {
	return ft == FrameTree || ft == FramePatches || ft == FrameError
}

// FrameFlags qualify a frame's payload.
type FrameFlags uint8

const (
	FlagSequenced FrameFlags = 0x02 // Payload starts with a sequence number
	FlagFinal     FrameFlags = 0x04 // Last frame of a pass
)

// Has reports whether ff contains flag.
func (ff FrameFlags) Has(flag FrameFlags) bool {
	return ff&flag != 0
}

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame is one protocol message.
//
// Wire format:
//
//	┌────────────┬───────────┬──────────────────────────┬─────────────┐
//	│ Type (1B)  │ Flags (1B)│ Payload length (2B, BE)  │ Payload ... │
//	└────────────┴───────────┴──────────────────────────┴─────────────┘
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// NewFrame returns a frame without flags.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{Type: ft, Payload: payload}
}

// NewFrameWithFlags returns a frame with flags set.
func NewFrameWithFlags(ft FrameType, flags FrameFlags, payload []byte) *Frame {
	return &Frame{Type: ft, Flags: flags, Payload: payload}
}

// Encode returns the header followed by the payload.
func (f *Frame) Encode() []byte {
	n := len(f.Payload)
	buf := make([]byte, FrameHeaderSize+n)
	buf[0] = byte(f.Type)
	buf[1] = byte(f.Flags)
	buf[2] = byte(n >> 8)
	buf[3] = byte(n)
	copy(buf[FrameHeaderSize:], f.Payload)
	return buf
}

// header parses a frame header.
func header(h []byte) (FrameType, FrameFlags, int, error) {
	ft := FrameType(h[0])
	if !ft.valid() {
		return 0, 0, 0, ErrInvalidFrameType
	}
	return ft, FrameFlags(h[1]), int(h[2])<<8 | int(h[3]), nil
}

// DecodeFrame decodes one complete frame. Bytes after the payload are
// ignored; the payload is copied.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, io.ErrUnexpectedEOF
	}
	ft, flags, n, err := header(data)
	if err != nil {
		return nil, err
	}
	if len(data) < FrameHeaderSize+n {
		return nil, io.ErrUnexpectedEOF
	}
	payload := make([]byte, n)
	copy(payload, data[FrameHeaderSize:])
	return &Frame{Type: ft, Flags: flags, Payload: payload}, nil
}

// ReadFrame reads one frame from r.
func ReadFrame(r io.Reader) (*Frame, error) {
	var h [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return nil, err
	}
	ft, flags, n, err := header(h[:])
	if err != nil {
		return nil, err
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return &Frame{Type: ft, Flags: flags, Payload: payload}, nil
}

// WriteFrame writes f to w in a single Write call.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}
