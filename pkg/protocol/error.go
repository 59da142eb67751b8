package protocol

import "fmt"

// ErrorCode classifies an ErrorMessage.
type ErrorCode uint16

const (
	ErrUnknown      ErrorCode = 0x0000
	ErrInvalidFrame ErrorCode = 0x0001 // Malformed frame
	ErrRenderFailed ErrorCode = 0x0010 // A component failed to render
	ErrEffectFailed ErrorCode = 0x0011 // An effect or cleanup failed
	ErrPassAborted  ErrorCode = 0x0012 // A pass was discarded
	ErrUpdateLoop   ErrorCode = 0x0013 // Updates did not settle
	ErrHostRejected ErrorCode = 0x0014 // The host failed to apply patches
	ErrServerError  ErrorCode = 0x0100 // Internal server error
)

var errorCodeNames = map[ErrorCode]string{
	ErrUnknown:      "Unknown",
	ErrInvalidFrame: "InvalidFrame",
	ErrRenderFailed: "RenderFailed",
	ErrEffectFailed: "EffectFailed",
	ErrPassAborted:  "PassAborted",
	ErrUpdateLoop:   "UpdateLoop",
	ErrHostRejected: "HostRejected",
	ErrServerError:  "ServerError",
}

func (ec ErrorCode) String() string {
	if name, ok := errorCodeNames[ec]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(0x%04x)", uint16(ec))
}

// ErrorMessage is the payload of a FrameError.
//
//	code    uvarint
//	message string
//	fatal   bool
type ErrorMessage struct {
	Code    ErrorCode
	Message string
	Fatal   bool // The sender closes the connection after this frame
}

// NewError returns a non-fatal ErrorMessage.
func NewError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message}
}

// NewFatalError returns a fatal ErrorMessage.
func NewFatalError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message, Fatal: true}
}

func (em *ErrorMessage) Error() string {
	if em.Fatal {
		return "fatal: " + em.Code.String() + ": " + em.Message
	}
	return em.Code.String() + ": " + em.Message
}

// EncodeErrorMessage encodes em as a FrameError payload.
func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoder()
	e.WriteUvarint(uint64(em.Code))
	e.WriteString(em.Message)
	e.WriteBool(em.Fatal)
	return e.Bytes()
}

// DecodeErrorMessage decodes a FrameError payload.
func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	d := NewDecoder(data)
	code, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if code > 0xffff {
		return nil, fmt.Errorf("protocol: error code %d out of range", code)
	}
	msg, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	fatal, err := d.ReadBool()
	if err != nil {
		return nil, err
	}
	return &ErrorMessage{Code: ErrorCode(code), Message: msg, Fatal: fatal}, nil
}
