package protocol

import "errors"

const (
	// MaxVNodeDepth limits the nesting depth of a decoded tree.
	MaxVNodeDepth = 256

	// MaxPathDepth limits the length of a decoded patch path.
	MaxPathDepth = MaxVNodeDepth + 1
)

// ErrMaxDepthExceeded is returned when a decoded tree or path nests deeper
// than the limits above.
var ErrMaxDepthExceeded = errors.New("protocol: maximum nesting depth exceeded")

func checkDepth(current, max int) error {
	if current > max {
		return ErrMaxDepthExceeded
	}
	return nil
}
