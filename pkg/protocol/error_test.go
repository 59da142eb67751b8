package protocol

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestErrorMessageEncodeDecode(t *testing.T) {
	tests := []*ErrorMessage{
		NewError(ErrRenderFailed, "component Counter panicked"),
		NewFatalError(ErrServerError, "snapshot failed"),
		NewError(ErrUnknown, ""),
		NewError(ErrorCode(0xffff), "max code"),
	}
	for _, want := range tests {
		got, err := DecodeErrorMessage(EncodeErrorMessage(want))
		if err != nil {
			t.Fatalf("DecodeErrorMessage(%v): %v", want, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestDecodeErrorMessageRejects(t *testing.T) {
	if _, err := DecodeErrorMessage([]byte{0x10, 2, 'o'}); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("truncated message: got %v", err)
	}
	e := NewEncoder()
	e.WriteUvarint(0x10000)
	e.WriteString("x")
	e.WriteBool(false)
	if _, err := DecodeErrorMessage(e.Bytes()); err == nil {
		t.Error("out of range code should fail")
	}
}

func TestErrorMessageString(t *testing.T) {
	tests := []struct {
		em   *ErrorMessage
		want string
	}{
		{NewError(ErrUpdateLoop, "50 passes"), "UpdateLoop: 50 passes"},
		{NewFatalError(ErrHostRejected, "bad path"), "fatal: HostRejected: bad path"},
		{NewError(ErrorCode(0x0abc), "?"), "ErrorCode(0x0abc): ?"},
	}
	for _, tt := range tests {
		if got := tt.em.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
