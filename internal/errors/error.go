package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/protocol"
	"github.com/vango-dev/reconciler/pkg/vango"
)

// Category represents the type of error.
type Category string

const (
	CategoryRender    Category = "render"
	CategoryEffect    Category = "effect"
	CategoryIdentity  Category = "identity"
	CategoryScheduler Category = "scheduler"
	CategoryHost      Category = "host"
	CategoryProtocol  Category = "protocol"
	CategoryConfig    Category = "config"
	CategoryCLI       Category = "cli"
)

// ReconcilerError is a structured error with the component it concerns and
// a suggestion on how to fix it.
type ReconcilerError struct {
	// Code is a unique error identifier (e.g., "R001").
	Code string

	// Category is the error type (render, host, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Component and Slot identify the component instance involved, if any.
	Component string
	Slot      string

	// Stack is the goroutine stack captured when a component panicked.
	Stack string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *ReconcilerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *ReconcilerError) Unwrap() error {
	return e.Wrapped
}

// WithComponent records the component instance involved.
func (e *ReconcilerError) WithComponent(name, slot string) *ReconcilerError {
	e.Component = name
	e.Slot = slot
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *ReconcilerError) WithSuggestion(s string) *ReconcilerError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *ReconcilerError) WithDetail(d string) *ReconcilerError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *ReconcilerError) Wrap(err error) *ReconcilerError {
	e.Wrapped = err
	return e
}

// New creates a ReconcilerError from a registered error code.
func New(code string) *ReconcilerError {
	template, ok := registry[code]
	if !ok {
		return &ReconcilerError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &ReconcilerError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new ReconcilerError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *ReconcilerError {
	return &ReconcilerError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps err in a ReconcilerError. Errors the engine defines are
// mapped to their registered code; anything else gets code.
func FromError(err error, code string) *ReconcilerError {
	if err == nil {
		return nil
	}
	var re *ReconcilerError
	if stderrors.As(err, &re) {
		return re
	}
	if known := Classify(err); known != "" {
		code = known
	}
	e := New(code).Wrap(err)

	var cerr *vango.ComponentError
	if stderrors.As(err, &cerr) {
		e.WithComponent(cerr.Component, string(cerr.Slot))
		e.Stack = string(cerr.Stack)
		e.Detail = cerr.Error()
	}
	return e
}

// Classify returns the registered code for an error the engine defines,
// or "" when err is not one of them.
func Classify(err error) string {
	var cerr *vango.ComponentError
	if stderrors.As(err, &cerr) {
		switch {
		case stderrors.Is(err, vango.ErrHookOrder):
			return "R002"
		case cerr.Phase == vango.PhaseEffect:
			return "R011"
		default:
			return "R010"
		}
	}

	for _, c := range classes {
		if stderrors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

// classes maps sentinel errors to codes, most specific first.
var classes = []struct {
	err  error
	code string
}{
	{vango.ErrInvalidContext, "R001"},
	{vango.ErrHookOrder, "R002"},
	{vango.ErrIdentityCollision, "R003"},
	{vango.ErrUpdateLoop, "R004"},
	{vango.ErrReentrantRender, "R005"},
	{vango.ErrNotMounted, "R006"},
	{vango.ErrAlreadyMounted, "R007"},
	{vango.ErrSchedulerStopped, "R008"},
	{host.ErrBadPath, "R021"},
	{vango.ErrHostRejected, "R020"},
	{protocol.ErrFrameTooLarge, "R030"},
	{protocol.ErrInvalidPatchOp, "R031"},
	{protocol.ErrInvalidNodeKind, "R031"},
	{protocol.ErrMaxDepthExceeded, "R032"},
}
