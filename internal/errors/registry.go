package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Scheduler and lifecycle errors (R001-R009)
	// ============================================

	"R001": {
		Category:   CategoryScheduler,
		Message:    "State primitive used outside an active render pass",
		Detail:     "UseState, UseMemo, UseCallback and UseEffect may only be called while the renderer is rendering the component that owns them.",
		Suggestion: "Call hooks from the render function itself, not from goroutines, handlers or a Ctx kept from an earlier render.",
	},
	"R002": {
		Category:   CategoryRender,
		Message:    "Hook order changed between renders",
		Detail:     "A component called its hooks in a different order or number than on its previous render, so stored state would be handed to the wrong hook.",
		Suggestion: "Call hooks unconditionally and in the same order on every render.",
	},
	"R003": {
		Category:   CategoryIdentity,
		Message:    "Duplicate key among siblings",
		Detail:     "Two siblings of the same type share an explicit key. The later one was given a synthesized identity and will not keep its state across reorders.",
		Suggestion: "Derive keys from a stable, unique field of each item.",
	},
	"R004": {
		Category:   CategoryScheduler,
		Message:    "Updates did not settle",
		Detail:     "Renders or effects kept writing state, so every pass scheduled another one.",
		Suggestion: "Guard state writes in effects with a comparison, or give the effect dependencies.",
	},
	"R005": {
		Category: CategoryScheduler,
		Message:  "Flush called during a render pass",
		Detail:   "A render function or effect tried to start a pass while one was running. Writes made during a pass are picked up by a follow-up pass automatically.",
	},
	"R006": {
		Category:   CategoryScheduler,
		Message:    "Nothing is mounted",
		Suggestion: "Call Mount before Update, Flush or Dispatch.",
	},
	"R007": {
		Category:   CategoryScheduler,
		Message:    "A root is already mounted",
		Suggestion: "Use Update to render a new root invocation, or Unmount first.",
	},
	"R008": {
		Category:   CategoryScheduler,
		Message:    "Render scheduler is not running",
		Suggestion: "Call Init on the RenderScheduler before mounting. A scheduler cannot be restarted after Teardown.",
	},

	// ============================================
	// Component failures (R010-R019)
	// ============================================

	"R010": {
		Category: CategoryRender,
		Message:  "Component render failed",
		Detail:   "The render function panicked. Its previous output was kept, or a placeholder on first mount.",
	},
	"R011": {
		Category: CategoryEffect,
		Message:  "Effect or cleanup failed",
		Detail:   "An effect or its cleanup panicked. Other effects of the pass still ran.",
	},

	// ============================================
	// Host errors (R020-R029)
	// ============================================

	"R020": {
		Category: CategoryHost,
		Message:  "Host rejected patches",
		Detail:   "The host failed to apply the patches of a pass. The pass was discarded and will be retried with the next flush.",
	},
	"R021": {
		Category:   CategoryHost,
		Message:    "Patch path does not address a node",
		Detail:     "The host tree does not match the tree the patches were computed against.",
		Suggestion: "Make sure nothing but the renderer modifies the host tree.",
	},

	// ============================================
	// Protocol errors (R030-R039)
	// ============================================

	"R030": {
		Category: CategoryProtocol,
		Message:  "Frame too large",
		Detail:   "A single patch or snapshot does not fit in one frame.",
	},
	"R031": {
		Category: CategoryProtocol,
		Message:  "Malformed patch frame",
	},
	"R032": {
		Category: CategoryProtocol,
		Message:  "Tree nested too deeply",
	},

	// ============================================
	// Config and CLI errors (R040-R059)
	// ============================================

	"R040": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration",
		Suggestion: "Check reconciler.json (or reconciler.yaml) against the documented fields.",
	},
	"R041": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
	},
	"R050": {
		Category:   CategoryCLI,
		Message:    "Unknown demo scenario",
		Suggestion: "Run 'reconciler demo --list' to see the available scenarios.",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
