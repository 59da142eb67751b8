// Package errors provides structured, actionable diagnostics for the
// reconciler's errors.
//
// Each error the engine can produce has a code (e.g., "R001") that maps to:
//   - A category (render, effect, identity, scheduler, host, protocol, ...)
//   - A short message and a detailed explanation
//   - A suggestion on how to fix it
//
// # Usage
//
// FromError maps engine sentinel errors and component failures to their
// code, keeping the original error wrapped:
//
//	if _, err := r.Flush(ctx); err != nil {
//	    errors.PrintError(os.Stderr, err)
//	}
//	// Output:
//	// ERROR R004: Updates did not settle
//	//
//	//   Renders or effects kept writing state, so every pass scheduled
//	//   another one.
//	//
//	//   Cause: vango: too many consecutive render passes: ...
//	//
//	//   Hint: Guard state writes in effects with a comparison, or give
//	//   the effect dependencies.
package errors
