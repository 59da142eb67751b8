package vango

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// DefaultMaxFlushIterations bounds the passes a single flush may run
// before it reports ErrUpdateLoop.
const DefaultMaxFlushIterations = 50

// Host receives the patches of each committed pass, in order.
// If Apply fails the pass is not committed.
type Host interface {
	Apply(patches []vdom.Patch) error
}

// HostFunc adapts a function to Host.
type HostFunc func(patches []vdom.Patch) error

// Apply implements Host.
func (f HostFunc) Apply(patches []vdom.Patch) error {
	return f(patches)
}

// PassKind says what started a pass.
type PassKind string

const (
	PassMount   PassKind = "mount"
	PassUpdate  PassKind = "update"
	PassProps   PassKind = "props"
	PassUnmount PassKind = "unmount"
)

// PassStats summarizes one render pass.
type PassStats struct {
	Pass       uint64
	Kind       PassKind
	Duration   time.Duration
	Mutations  int // State writes applied at the start of the pass
	Rendered   int // Components whose render function ran
	Skipped    int // Components the Memo Guard skipped
	Failures   int // Components whose render failed
	Collisions int // Duplicate keys found while expanding
	Patches    int
	Unmounted  int
	Aborted    bool
}

// Observer is notified around every pass. BeginPass may return a derived
// context, which is handed back to EndPass.
type Observer interface {
	BeginPass(ctx context.Context, pass uint64, kind PassKind) context.Context
	EndPass(ctx context.Context, stats PassStats, err error)
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithErrorBoundary sets the function that receives component failures.
// Without one, failures are only logged.
func WithErrorBoundary(fn func(*ComponentError)) Option {
	return func(r *Renderer) {
		r.boundary = fn
	}
}

// WithObserver adds a pass observer. Observers are called in the order
// they were added.
func WithObserver(o Observer) Option {
	return func(r *Renderer) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// WithDebug enables strict hook validation: a component that calls more or
// fewer hooks than on its previous render fails with ErrHookOrder.
func WithDebug(enabled bool) Option {
	return func(r *Renderer) {
		r.debug = enabled
	}
}

// WithMaxFlushIterations sets how many passes a flush may run.
func WithMaxFlushIterations(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.maxPasses = n
		}
	}
}

// Renderer drives render passes for one root: it expands the component tree,
// reconciles it against the committed tree and hands the patches to the host.
//
// A Renderer is not safe for concurrent use. State writes may come from any
// goroutine, but Mount, Flush, Update, Dispatch and Unmount must be called
// from one goroutine at a time.
type Renderer struct {
	sched *RenderScheduler
	host  Host
	store *Store
	guard *MemoGuard
	cache *ValueCache

	logger    *slog.Logger
	boundary  func(*ComponentError)
	observers []Observer
	debug     bool
	maxPasses int

	tree      *vdom.VNode
	passes    uint64
	rendering bool
}

// NewRenderer creates a renderer that records state writes with sched and
// applies patches to host.
func NewRenderer(sched *RenderScheduler, host Host, opts ...Option) *Renderer {
	r := &Renderer{
		sched:     sched,
		host:      host,
		logger:    slog.Default(),
		maxPasses: DefaultMaxFlushIterations,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.store = NewStore(sched, r.logger)
	r.store.strict = r.debug
	r.store.onCleanupError = r.report
	r.guard = NewMemoGuard(r.store)
	r.cache = NewValueCache(r.store)
	return r
}

// Store returns the state store.
func (r *Renderer) Store() *Store { return r.store }

// Guard returns the memo guard.
func (r *Renderer) Guard() *MemoGuard { return r.guard }

// Cache returns the value cache.
func (r *Renderer) Cache() *ValueCache { return r.cache }

// Scheduler returns the render scheduler.
func (r *Renderer) Scheduler() *RenderScheduler { return r.sched }

// Tree returns the committed tree, or nil when nothing is mounted.
func (r *Renderer) Tree() *vdom.VNode { return r.tree }

// Mounted reports whether a root is mounted.
func (r *Renderer) Mounted() bool { return r.tree != nil }

// Mount renders root for the first time. The host receives a single
// InsertNode at [0]; further passes follow if renders or effects wrote
// state. It returns every patch applied.
func (r *Renderer) Mount(ctx context.Context, root *vdom.VNode) ([]vdom.Patch, error) {
	if root == nil {
		return nil, errors.New("vango: Mount with nil root")
	}
	if r.tree != nil {
		return nil, ErrAlreadyMounted
	}
	if !r.sched.Running() {
		return nil, ErrSchedulerStopped
	}
	patches, err := r.run(ctx, PassMount, func(p *pass) *vdom.VNode {
		return p.expand(root, vdom.RootIdentity(root))
	})
	if err != nil {
		return patches, err
	}
	return r.settle(ctx, patches)
}

// Update re-renders from a new root invocation, as when the root's props
// change. Memoized components whose props did not change are skipped.
func (r *Renderer) Update(ctx context.Context, root *vdom.VNode) ([]vdom.Patch, error) {
	if r.tree == nil {
		return nil, ErrNotMounted
	}
	if root == nil {
		return nil, errors.New("vango: Update with nil root; use Unmount")
	}
	patches, err := r.run(ctx, PassProps, func(p *pass) *vdom.VNode {
		return p.expand(root, vdom.RootIdentity(root))
	})
	if err != nil {
		return patches, err
	}
	return r.settle(ctx, patches)
}

// ScheduleUpdate marks slot dirty so it renders in the next pass even
// though none of its state changed.
func (r *Renderer) ScheduleUpdate(slot vdom.SlotID) {
	r.sched.Schedule(slot)
}

// Flush runs passes until no work is pending. Writes made during render or
// effects start another pass; after the configured number of passes it
// gives up with ErrUpdateLoop. Calling Flush while a pass is running
// returns ErrReentrantRender.
func (r *Renderer) Flush(ctx context.Context) ([]vdom.Patch, error) {
	if r.rendering {
		return nil, ErrReentrantRender
	}
	if r.tree == nil {
		return nil, ErrNotMounted
	}
	return r.settle(ctx, nil)
}

// Dispatch runs fn, typically an event handler that writes state, then
// flushes. All writes fn makes are applied in a single pass.
func (r *Renderer) Dispatch(ctx context.Context, fn func()) ([]vdom.Patch, error) {
	if r.rendering {
		return nil, ErrReentrantRender
	}
	if r.tree == nil {
		return nil, ErrNotMounted
	}
	fn()
	return r.Flush(ctx)
}

// Unmount removes the root from the host and disposes every instance,
// running effect cleanups.
func (r *Renderer) Unmount(ctx context.Context) ([]vdom.Patch, error) {
	if r.tree == nil {
		return nil, ErrNotMounted
	}
	return r.run(ctx, PassUnmount, func(*pass) *vdom.VNode { return nil })
}

// settle flushes follow-up passes, appending to patches.
func (r *Renderer) settle(ctx context.Context, patches []vdom.Patch) ([]vdom.Patch, error) {
	for i := 0; r.sched.Pending(); i++ {
		if r.tree == nil {
			return patches, nil
		}
		if i >= r.maxPasses {
			return patches, fmt.Errorf("%w: still pending after %d passes", ErrUpdateLoop, r.maxPasses)
		}
		more, err := r.run(ctx, PassUpdate, func(p *pass) *vdom.VNode {
			return p.walk(r.tree)
		})
		patches = append(patches, more...)
		if err != nil {
			return patches, err
		}
	}
	return patches, nil
}

// run executes one pass: drain, expand, reconcile, apply, commit, effects.
func (r *Renderer) run(ctx context.Context, kind PassKind, build func(*pass) *vdom.VNode) (patches []vdom.Patch, err error) {
	if r.rendering {
		return nil, ErrReentrantRender
	}
	r.rendering = true
	defer func() { r.rendering = false }()

	r.passes++
	p := newPass(r, r.passes, kind)
	start := time.Now()
	for _, o := range r.observers {
		ctx = o.BeginPass(ctx, p.id, kind)
	}
	defer func() {
		p.stats.Duration = time.Since(start)
		p.stats.Patches = len(patches)
		p.stats.Aborted = err != nil
		r.logger.Debug("render pass",
			"pass", p.id,
			"kind", kind,
			"rendered", p.stats.Rendered,
			"skipped", p.stats.Skipped,
			"patches", p.stats.Patches,
			"duration", p.stats.Duration,
		)
		for _, o := range r.observers {
			o.EndPass(ctx, p.stats, err)
		}
	}()

	ms, dirty := r.sched.drain()
	p.dirty = dirty
	p.stats.Mutations = r.store.apply(ms, dirty)

	r.store.begin()
	next := build(p)
	r.store.end()

	if p.err != nil {
		r.abort(p)
		return nil, p.err
	}

	res := vdom.Reconcile(r.tree, next, vdom.Options{})
	if len(res.Patches) > 0 {
		if err := r.host.Apply(res.Patches); err != nil {
			r.abort(p)
			return nil, fmt.Errorf("%w: %w", ErrHostRejected, err)
		}
	}

	r.tree = next
	r.guard.commit(p.records)
	alive := vdom.Slots(next)
	pruned := r.store.Prune(alive)
	r.guard.Prune(alive)
	p.stats.Unmounted = len(pruned)
	for _, in := range p.rendered {
		in.mounted = true
	}
	if len(pruned) > 0 {
		r.logger.Debug("instances unmounted", "pass", p.id, "count", len(pruned))
	}

	p.runEffects()
	return res.Patches, nil
}

// abort discards everything the pass built. The committed tree and memo
// records stay as they were; instances created by the pass are dropped
// and the drained slots are scheduled again.
func (r *Renderer) abort(p *pass) {
	for slot := range p.dirty {
		r.store.markDirty(slot)
	}
	r.sched.restore(p.dirty)
	r.store.Prune(vdom.Slots(r.tree))
	r.logger.Warn("render pass aborted", "pass", p.id, "kind", p.kind)
}

// report delivers a component failure to the boundary.
func (r *Renderer) report(cerr *ComponentError) {
	r.logger.Error("component failed",
		"component", cerr.Component,
		"slot", cerr.Slot,
		"phase", cerr.Phase,
		"error", cerr.Error(),
	)
	if r.boundary != nil {
		r.boundary(cerr)
	}
}
