package protocol

import (
	"errors"
	"io"
	"math"
	"strings"
	"testing"
)

func TestUvarintSizes(t *testing.T) {
	tests := []struct {
		value uint64
		size  int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
		{1<<32 - 1, 5},
		{math.MaxUint64, maxVarintLen},
	}
	for _, tt := range tests {
		e := NewEncoder()
		e.WriteUvarint(tt.value)
		if e.Len() != tt.size {
			t.Errorf("WriteUvarint(%d) wrote %d bytes, want %d", tt.value, e.Len(), tt.size)
		}
		d := NewDecoder(e.Bytes())
		got, err := d.ReadUvarint()
		if err != nil || got != tt.value {
			t.Errorf("ReadUvarint() = %d, %v; want %d", got, err, tt.value)
		}
		if !d.EOF() {
			t.Errorf("%d: %d bytes left unread", tt.value, d.Remaining())
		}
	}
}

func TestEncoderDecoderSequence(t *testing.T) {
	e := NewEncoder()
	e.WriteByte(0x7f)
	e.WriteString("héllo")
	e.WriteString("")
	e.WriteBool(true)
	e.WriteBool(false)
	e.WriteUvarint(300)
	e.WriteBytes([]byte{0xde, 0xad})

	d := NewDecoder(e.Bytes())
	if b, err := d.ReadByte(); err != nil || b != 0x7f {
		t.Fatalf("ReadByte() = %x, %v", b, err)
	}
	if s, err := d.ReadString(); err != nil || s != "héllo" {
		t.Fatalf("ReadString() = %q, %v", s, err)
	}
	if s, err := d.ReadString(); err != nil || s != "" {
		t.Fatalf("ReadString() empty = %q, %v", s, err)
	}
	if v, err := d.ReadBool(); err != nil || !v {
		t.Fatalf("ReadBool() = %v, %v; want true", v, err)
	}
	if v, err := d.ReadBool(); err != nil || v {
		t.Fatalf("ReadBool() = %v, %v; want false", v, err)
	}
	if v, err := d.ReadUvarint(); err != nil || v != 300 {
		t.Fatalf("ReadUvarint() = %d, %v", v, err)
	}
	if d.Remaining() != 2 {
		t.Errorf("Remaining() = %d, want 2", d.Remaining())
	}

	e.Reset()
	if e.Len() != 0 {
		t.Errorf("Len() after Reset = %d", e.Len())
	}
}

func TestDecoderErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		read func(*Decoder) error
		want error
	}{
		{"byte on empty", nil, func(d *Decoder) error { _, err := d.ReadByte(); return err }, io.ErrUnexpectedEOF},
		{"incomplete varint", []byte{0x80, 0x80}, func(d *Decoder) error { _, err := d.ReadUvarint(); return err }, io.ErrUnexpectedEOF},
		{"varint overflow", []byte(strings.Repeat("\xff", 11)), func(d *Decoder) error { _, err := d.ReadUvarint(); return err }, ErrVarintOverflow},
		{"truncated string", []byte{5, 'a', 'b'}, func(d *Decoder) error { _, err := d.ReadString(); return err }, io.ErrUnexpectedEOF},
		{"bool out of range", []byte{2}, func(d *Decoder) error { _, err := d.ReadBool(); return err }, ErrInvalidBool},
		{"count beyond input", []byte{10, 1}, func(d *Decoder) error { _, err := d.ReadCollectionCount(); return err }, io.ErrUnexpectedEOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.read(NewDecoder(tt.data)); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func BenchmarkEncodePatches(b *testing.B) {
	e := NewEncoder()
	for i := 0; i < b.N; i++ {
		e.Reset()
		for j := 0; j < 32; j++ {
			e.WriteByte(0x01)
			e.WriteUvarint(uint64(j))
			e.WriteString("item text")
		}
	}
}
