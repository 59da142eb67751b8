package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vango-dev/reconciler/internal/errors"
	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/protocol"
	"github.com/vango-dev/reconciler/pkg/vango"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

// Item shows its label and the label it was first mounted with. The two
// differ when positional identity hands an instance's state to a new item.
var Item = vango.Define("Item", func(ctx *vango.Ctx, p vdom.Props) *vdom.VNode {
	label := p["label"].(string)
	first := vango.UseState(ctx, label)
	return vdom.Li(vdom.Textf("%s (mounted as %s)", label, first.Get()))
})

// List renders items as Item children, keyed when props["keyed"] is true.
var List = vango.Define("List", func(_ *vango.Ctx, p vdom.Props) *vdom.VNode {
	items := p["items"].([]string)
	keyed, _ := p["keyed"].(bool)
	rows := make([]*vdom.VNode, len(items))
	for i, it := range items {
		if keyed {
			rows[i] = Item.Keyed(it, vdom.Props{"label": it})
		} else {
			rows[i] = Item.Invoke(vdom.Props{"label": it})
		}
	}
	return vdom.Ul(rows)
})

func list(keyed bool, items ...string) *vdom.VNode {
	return List.Invoke(vdom.Props{"items": items, "keyed": keyed})
}

// scenario is one demo walkthrough.
type scenario struct {
	name        string
	description string
	run         func(s *demo) error
}

var scenarios = []scenario{
	{
		name:        "positional",
		description: "prepend to an unkeyed list: state stays with the position",
		run: func(s *demo) error {
			if err := s.step("mount [b c]", func(ctx context.Context) ([]vdom.Patch, error) {
				return s.r.Mount(ctx, list(false, "b", "c"))
			}); err != nil {
				return err
			}
			return s.step("update [a b c]", func(ctx context.Context) ([]vdom.Patch, error) {
				return s.r.Update(ctx, list(false, "a", "b", "c"))
			})
		},
	},
	{
		name:        "keyed",
		description: "prepend to a keyed list: one insert, state follows the key",
		run: func(s *demo) error {
			if err := s.step("mount [b c]", func(ctx context.Context) ([]vdom.Patch, error) {
				return s.r.Mount(ctx, list(true, "b", "c"))
			}); err != nil {
				return err
			}
			return s.step("update [a b c]", func(ctx context.Context) ([]vdom.Patch, error) {
				return s.r.Update(ctx, list(true, "a", "b", "c"))
			})
		},
	},
	{
		name:        "reorder",
		description: "rotate then reverse a keyed list: minimal moves",
		run: func(s *demo) error {
			steps := []struct {
				title string
				items []string
			}{
				{"update [e a b c d]", []string{"e", "a", "b", "c", "d"}},
				{"update [d c b a e]", []string{"d", "c", "b", "a", "e"}},
			}
			if err := s.step("mount [a b c d e]", func(ctx context.Context) ([]vdom.Patch, error) {
				return s.r.Mount(ctx, list(true, "a", "b", "c", "d", "e"))
			}); err != nil {
				return err
			}
			for _, st := range steps {
				if err := s.step(st.title, func(ctx context.Context) ([]vdom.Patch, error) {
					return s.r.Update(ctx, list(true, st.items...))
				}); err != nil {
					return err
				}
			}
			return nil
		},
	},
	{
		name:        "memo",
		description: "parent state changes: memoized child with equal props is skipped",
		run: func(s *demo) error {
			var count vango.State[int]
			Label := vango.Memo("Label", func(_ *vango.Ctx, p vdom.Props) *vdom.VNode {
				return vdom.Span(p["text"].(string))
			})
			Counter := vango.Define("Counter", func(ctx *vango.Ctx, _ vdom.Props) *vdom.VNode {
				count = vango.UseState(ctx, 0)
				return vdom.Div(
					vdom.Button(vdom.Textf("clicked %d", count.Get())),
					Label.Invoke(vdom.Props{"text": "memoized"}),
				)
			})
			if err := s.step("mount", func(ctx context.Context) ([]vdom.Patch, error) {
				return s.r.Mount(ctx, Counter.Invoke(nil))
			}); err != nil {
				return err
			}
			return s.step("click", func(ctx context.Context) ([]vdom.Patch, error) {
				return s.r.Dispatch(ctx, func() { count.Update(func(n int) int { return n + 1 }) })
			})
		},
	},
	{
		name:        "loop",
		description: "an effect that always writes state: the flush gives up",
		run: func(s *demo) error {
			Runaway := vango.Define("Runaway", func(ctx *vango.Ctx, _ vdom.Props) *vdom.VNode {
				n := vango.UseState(ctx, 0)
				vango.UseEffect(ctx, func() vango.Cleanup {
					n.Set(n.Get() + 1)
					return nil
				}, nil)
				return vdom.Span(vdom.Textf("%d", n.Get()))
			})
			err := s.step("mount", func(ctx context.Context) ([]vdom.Patch, error) {
				return s.r.Mount(ctx, Runaway.Invoke(nil))
			})
			if err == nil {
				return fmt.Errorf("expected the update loop to be detected")
			}
			errors.PrintError(s.w, err)
			return nil
		},
	},
}

func findScenario(name string) (scenario, error) {
	for _, sc := range scenarios {
		if sc.name == name {
			return sc, nil
		}
	}
	return scenario{}, errors.New("R050").WithDetail(fmt.Sprintf("No scenario named %q.", name))
}

// demo runs a scenario against an in-memory host and prints each step.
type demo struct {
	w      io.Writer
	r      *vango.Renderer
	tree   *host.Tree
	frames *protocol.FrameWriter
	wire   bytes.Buffer
	last   vango.PassStats
	passes int
}

func newDemo(w io.Writer, sched *vango.RenderScheduler, logger *slog.Logger) *demo {
	d := &demo{w: w, tree: host.New()}
	d.frames = protocol.NewFrameWriter(&d.wire)
	h := vango.HostFunc(func(patches []vdom.Patch) error {
		if err := d.tree.Apply(patches); err != nil {
			return err
		}
		return d.frames.Apply(patches)
	})
	d.r = vango.NewRenderer(sched, h,
		vango.WithLogger(logger),
		vango.WithObserver(d),
		vango.WithMaxFlushIterations(5),
	)
	return d
}

// BeginPass implements vango.Observer.
func (d *demo) BeginPass(ctx context.Context, _ uint64, _ vango.PassKind) context.Context {
	return ctx
}

// EndPass implements vango.Observer.
func (d *demo) EndPass(_ context.Context, stats vango.PassStats, _ error) {
	d.last = stats
	d.passes++
}

func (d *demo) step(title string, fn func(ctx context.Context) ([]vdom.Patch, error)) error {
	fmt.Fprintf(d.w, "\n── %s\n", title)
	before, wireBefore, seqBefore := d.passes, d.wire.Len(), d.frames.Seq()

	patches, err := fn(context.Background())
	if err != nil {
		return err
	}
	if len(patches) == 0 {
		fmt.Fprintln(d.w, "  (no patches)")
	} else {
		fmt.Fprint(d.w, vdom.FormatPatches(patches))
	}
	fmt.Fprintf(d.w, "  host:   %s\n", d.tree)
	fmt.Fprintf(d.w, "  passes: %d, last rendered %d, skipped %d\n",
		d.passes-before, d.last.Rendered, d.last.Skipped)
	fmt.Fprintf(d.w, "  wire:   %d frames, %d bytes\n",
		d.frames.Seq()-seqBefore, d.wire.Len()-wireBefore)
	return nil
}
