package vango

import (
	"errors"
	"fmt"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// ErrInvalidContext is returned (or, from hooks, panicked) when a state or
// cache primitive is used outside an active render pass, or with a Ctx that
// belongs to a render that has already finished.
//
// A pass that observes this error is aborted: no patch reaches the host and
// the previously committed tree stays authoritative.
var ErrInvalidContext = errors.New("vango: state primitive used outside an active render pass")

// ErrIdentityCollision is reported when two siblings resolve to the same
// slot identity, which happens when an explicit key is used twice. The
// duplicate gets a synthesized identity and is mounted as a new instance.
var ErrIdentityCollision = errors.New("vango: duplicate key among siblings")

// ErrReentrantRender is returned when a flush is requested while a render
// pass is already running.
var ErrReentrantRender = errors.New("vango: render pass already in progress")

// ErrUpdateLoop is returned when state keeps being updated during render or
// effects, so that a flush does not settle within the configured number of
// passes.
var ErrUpdateLoop = errors.New("vango: too many consecutive render passes")

// ErrNotMounted is returned by operations that need a mounted root.
var ErrNotMounted = errors.New("vango: renderer has no mounted root")

// ErrAlreadyMounted is returned by Mount when a root is already mounted.
var ErrAlreadyMounted = errors.New("vango: renderer already has a mounted root")

// ErrHookOrder is returned when a component calls its hooks in a different
// order (or a different number of them) than on its previous render.
var ErrHookOrder = errors.New("vango: hook order changed between renders")

// ErrSchedulerStopped is returned when the render scheduler has not been
// initialized or has been torn down.
var ErrSchedulerStopped = errors.New("vango: render scheduler is not running")

// ErrHostRejected is returned when the host fails to apply the patches of a
// pass. The host's error is wrapped as well.
var ErrHostRejected = errors.New("vango: host rejected patches")

// Phase identifies where a component failure happened.
type Phase string

const (
	PhaseRender Phase = "render"
	PhaseEffect Phase = "effect"
)

// ComponentError reports a component whose render logic (or effect) failed.
// It is delivered to the renderer's error boundary; the failing subtree keeps
// its previously committed output.
type ComponentError struct {
	Slot      vdom.SlotID
	Component string
	Phase     Phase
	Value     any    // The recovered panic value
	Err       error  // Value as an error, when it is one
	Stack     []byte // Stack captured at recovery
}

// Error implements the error interface.
func (e *ComponentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vango: %s %s failed at %s: %v", e.Component, e.Phase, e.Slot, e.Err)
	}
	return fmt.Sprintf("vango: %s %s failed at %s: %v", e.Component, e.Phase, e.Slot, e.Value)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ComponentError) Unwrap() error {
	return e.Err
}

// invalidContext wraps ErrInvalidContext with the operation that hit it.
func invalidContext(op string) error {
	return fmt.Errorf("%w: %s", ErrInvalidContext, op)
}

// hookOrder wraps ErrHookOrder with details.
func hookOrder(slot vdom.SlotID, index int, want, got hookKind) error {
	return fmt.Errorf("%w: %s hook %d was %s, now %s", ErrHookOrder, slot, index, want, got)
}
