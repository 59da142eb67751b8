package main

import (
	"github.com/vango-dev/reconciler/pkg/vango"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

// board is the app the serve command mounts: a keyed list that rotates on
// every tick under a memoized header.
type board struct {
	App *vango.Component

	order vango.State[[]string]
	ticks vango.State[int]
}

func newBoard(title string, items []string) *board {
	b := &board{}

	Header := vango.Memo("Header", func(_ *vango.Ctx, p vdom.Props) *vdom.VNode {
		return vdom.H1(p["title"].(string))
	})
	Row := vango.Define("Row", func(ctx *vango.Ctx, p vdom.Props) *vdom.VNode {
		label := p["label"].(string)
		seen := vango.UseState(ctx, p["tick"].(int))
		return vdom.Li(vdom.Textf("%s (since tick %d)", label, seen.Get()))
	})

	b.App = vango.Define("Board", func(ctx *vango.Ctx, _ vdom.Props) *vdom.VNode {
		b.order = vango.UseState(ctx, items)
		b.ticks = vango.UseState(ctx, 0)
		tick := b.ticks.Get()

		order := b.order.Get()
		rows := make([]*vdom.VNode, len(order))
		for i, label := range order {
			rows[i] = Row.Keyed(label, vdom.Props{"label": label, "tick": tick})
		}
		return vdom.Div(
			Header.Invoke(vdom.Props{"title": title}),
			vdom.P(vdom.Textf("tick %d", tick)),
			vdom.Ul(rows),
		)
	})
	return b
}

// tick advances the clock and moves the last row to the front.
func (b *board) tick() {
	b.ticks.Update(func(n int) int { return n + 1 })
	b.order.Update(func(old []string) []string {
		if len(old) < 2 {
			return old
		}
		next := make([]string, 0, len(old))
		next = append(next, old[len(old)-1])
		return append(next, old[:len(old)-1]...)
	})
}
