package vdom_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

// randomTree builds a small tree whose lists mix keyed and unkeyed items,
// several tags and attributes, so that random pairs exercise every patch op.
func randomTree(rng *rand.Rand, depth int) *vdom.VNode {
	tags := []string{"div", "ul", "section"}
	var kids []*vdom.VNode
	n := rng.Intn(6)
	perm := rng.Perm(8)
	for i := 0; i < n; i++ {
		switch {
		case depth > 0 && rng.Intn(3) == 0:
			kids = append(kids, randomTree(rng, depth-1))
		case rng.Intn(2) == 0:
			k := perm[i]
			kids = append(kids, vdom.Li(vdom.Key(k), vdom.Class(fmt.Sprintf("c%d", rng.Intn(2))), fmt.Sprintf("item %d", k)))
		case rng.Intn(2) == 0:
			kids = append(kids, vdom.Span(fmt.Sprintf("s%d", rng.Intn(3))))
		default:
			kids = append(kids, vdom.Text(fmt.Sprintf("t%d", rng.Intn(3))))
		}
	}
	return vdom.H(tags[rng.Intn(len(tags))], vdom.AttrIf(rng.Intn(2) == 0, vdom.ID("x")), kids)
}

func TestPatchesTransformHostIntoNextTree(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 500; round++ {
		prev := randomTree(rng, 2)
		next := randomTree(rng, 2)

		tree := host.New()
		if err := tree.Apply(vdom.Diff(nil, prev)); err != nil {
			t.Fatalf("round %d: mount: %v", round, err)
		}
		patches := vdom.Diff(prev, next)
		if err := tree.Apply(patches); err != nil {
			t.Fatalf("round %d: %v\nprev: %s\nnext: %s\npatches:\n%s",
				round, err, host.Render(prev), host.Render(next), vdom.FormatPatches(patches))
		}
		if got, want := tree.String(), host.Render(next); got != want {
			t.Fatalf("round %d:\n got: %s\nwant: %s\npatches:\n%s", round, got, want, vdom.FormatPatches(patches))
		}
	}
}

func TestKeyedShuffleOnlyMoves(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	list := func(keys []int) *vdom.VNode {
		return vdom.Ul(vdom.Range(keys, func(k int, _ int) *vdom.VNode {
			return vdom.Li(vdom.Key(k), fmt.Sprint(k))
		}))
	}

	for round := 0; round < 200; round++ {
		keys := rng.Perm(10)
		shuffled := append([]int(nil), keys...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		prev, next := list(keys), list(shuffled)
		tree := host.New()
		if err := tree.Apply(vdom.Diff(nil, prev)); err != nil {
			t.Fatal(err)
		}
		patches := vdom.Diff(prev, next)
		for _, p := range patches {
			if p.Op != vdom.PatchMoveNode {
				t.Fatalf("round %d: shuffle produced %s", round, p)
			}
		}
		if err := tree.Apply(patches); err != nil {
			t.Fatal(err)
		}
		if got, want := tree.String(), host.Render(next); got != want {
			t.Fatalf("round %d:\n got: %s\nwant: %s", round, got, want)
		}
	}
}
