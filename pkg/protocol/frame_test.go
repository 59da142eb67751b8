package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFrameEncodeDecode(t *testing.T) {
	tests := []struct {
		name  string
		frame *Frame
	}{
		{"empty patches", NewFrame(FramePatches, []byte{})},
		{"sequenced final", NewFrameWithFlags(FramePatches, FlagSequenced|FlagFinal, []byte{1, 2, 3})},
		{"tree", NewFrame(FrameTree, bytes.Repeat([]byte{0xab}, 300))},
		{"max payload", NewFrame(FrameError, make([]byte, MaxPayloadSize))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.frame.Encode()
			if len(data) != FrameHeaderSize+len(tt.frame.Payload) {
				t.Fatalf("encoded %d bytes, want %d", len(data), FrameHeaderSize+len(tt.frame.Payload))
			}
			got, err := DecodeFrame(data)
			if err != nil {
				t.Fatalf("DecodeFrame: %v", err)
			}
			if diff := cmp.Diff(tt.frame, got); diff != "" {
				t.Errorf("frame mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", []byte{0x02, 0x00}, io.ErrUnexpectedEOF},
		{"short payload", []byte{0x02, 0x00, 0x00, 0x05, 1, 2}, io.ErrUnexpectedEOF},
		{"unknown type", []byte{0x7f, 0x00, 0x00, 0x00}, ErrInvalidFrameType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeFrame(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("DecodeFrame() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReadWriteFrameStream(t *testing.T) {
	frames := []*Frame{
		NewFrame(FrameTree, []byte("snapshot")),
		NewFrameWithFlags(FramePatches, FlagSequenced, []byte{1}),
		NewFrameWithFlags(FramePatches, FlagSequenced|FlagFinal, []byte{}),
	}
	var buf bytes.Buffer
	for _, f := range frames {
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	for i, want := range frames {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame %d: %v", i, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("frame %d mismatch (-want +got):\n%s", i, diff)
		}
	}
	if _, err := ReadFrame(&buf); err != io.EOF {
		t.Errorf("ReadFrame at end = %v, want io.EOF", err)
	}

	if _, err := ReadFrame(bytes.NewReader([]byte{0x02, 0x00, 0x00, 0x04, 1})); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("truncated payload: got %v", err)
	}
}

func TestWriteFrameTooLarge(t *testing.T) {
	f := NewFrame(FramePatches, make([]byte, MaxPayloadSize+1))
	if err := WriteFrame(io.Discard, f); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("WriteFrame() = %v, want ErrFrameTooLarge", err)
	}
}

func TestFrameTypeAndFlags(t *testing.T) {
	if FramePatches.String() != "Patches" || FrameType(0x42).String() != "Unknown" {
		t.Error("unexpected FrameType names")
	}
	flags := FlagSequenced | FlagFinal
	if !flags.Has(FlagFinal) || FlagSequenced.Has(FlagFinal) {
		t.Error("Has() is wrong")
	}
}
