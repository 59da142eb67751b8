package vdom

import "testing"

func TestConditionalHelpers(t *testing.T) {
	a, b := Text("a"), Text("b")

	if got := IfElse(true, a, b); got != a {
		t.Errorf("IfElse(true) = %v, want a", got)
	}
	if got := IfElse(false, a, b); got != b {
		t.Errorf("IfElse(false) = %v, want b", got)
	}

	called := false
	build := func() *VNode { called = true; return a }
	if got := When(false, build); got != nil || called {
		t.Error("When(false) must not build the node")
	}
	if got := When(true, build); got != a || !called {
		t.Error("When(true) must build and return the node")
	}

	if Nothing() != nil {
		t.Error("Nothing() must be nil")
	}
	if n := Div(Nothing(), If(false, a), "x"); len(n.Children) != 1 {
		t.Errorf("nil children must be dropped, got %d", len(n.Children))
	}
}

func TestWithKeyCopiesNode(t *testing.T) {
	orig := Li("a")
	keyed := WithKey(7, orig)

	if keyed == orig {
		t.Fatal("WithKey must return a copy")
	}
	if keyed.Key != "7" || orig.Key != "" {
		t.Errorf("keys: copy %q, original %q", keyed.Key, orig.Key)
	}
	if WithKey("k", nil) != nil {
		t.Error("WithKey(nil) must be nil")
	}

	ids, collisions := Identities(RootSlot, []*VNode{WithKey("x", Li("1")), WithKey("y", Li("2"))})
	if len(collisions) != 0 || ids[0].Seg != "k:x" || ids[1].Seg != "k:y" {
		t.Errorf("unexpected identities %v, collisions %v", ids, collisions)
	}
}
