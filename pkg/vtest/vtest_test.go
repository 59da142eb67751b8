package vtest_test

import (
	"testing"

	"github.com/vango-dev/reconciler/pkg/vango"
	"github.com/vango-dev/reconciler/pkg/vdom"
	"github.com/vango-dev/reconciler/pkg/vtest"
)

func TestMountAndDispatch(t *testing.T) {
	var count vango.State[int]
	Counter := vango.Define("Counter", func(ctx *vango.Ctx, _ vdom.Props) *vdom.VNode {
		count = vango.UseState(ctx, 0)
		return vdom.Button(vdom.Textf("%d", count.Get()))
	})

	h := vtest.Mount(t, Counter.Invoke(nil))
	h.ExpectHTML("<button>0</button>")
	if kind := h.LastPass().Kind; kind != vango.PassMount {
		t.Errorf("first pass kind = %s, want mount", kind)
	}

	patches := h.Dispatch(func() { count.Set(1) })
	vtest.ExpectOps(t, patches, vdom.PatchSetText)
	h.ExpectHTML("<button>1</button>")
	h.ExpectRendered(1, 0)
	h.ExpectNoFailures()
}

func TestMemoizedChildIsSkipped(t *testing.T) {
	var title vango.State[string]
	Label := vango.Memo("Label", func(_ *vango.Ctx, p vdom.Props) *vdom.VNode {
		return vdom.Span(p["text"].(string))
	})
	Page := vango.Define("Page", func(ctx *vango.Ctx, _ vdom.Props) *vdom.VNode {
		title = vango.UseState(ctx, "a")
		return vdom.Div(vdom.H1(title.Get()), Label.Invoke(vdom.Props{"text": "static"}))
	})

	h := vtest.Mount(t, Page.Invoke(nil))
	h.Dispatch(func() { title.Set("b") })
	h.ExpectHTML("<div><h1>b</h1><span>static</span></div>")
	h.ExpectRendered(1, 1)
}

func TestRenderFailureIsRecorded(t *testing.T) {
	Broken := vango.Define("Broken", func(*vango.Ctx, vdom.Props) *vdom.VNode {
		panic("boom")
	})

	h := vtest.Mount(t, vdom.Div(Broken.Invoke(nil)))
	if len(h.Failures()) != 1 {
		t.Fatalf("expected one failure, got %d", len(h.Failures()))
	}
	if got := h.Failures()[0].Component; got != "Broken" {
		t.Errorf("failure component = %q, want Broken", got)
	}
	h.ExpectNotContains("boom")
}

func TestUnmountClearsHost(t *testing.T) {
	h := vtest.New(t)
	h.Mount(vdom.Ul(vdom.Li("a")))
	h.ExpectContains("<li>a</li>")

	patches := h.Unmount()
	vtest.ExpectOps(t, patches, vdom.PatchRemoveNode)
	h.ExpectHTML("")
	if h.Renderer().Mounted() {
		t.Error("renderer should not be mounted")
	}
}

func TestRenderToString(t *testing.T) {
	got := vtest.RenderToString(vdom.Div(vdom.P("hi")))
	if got != "<div><p>hi</p></div>" {
		t.Errorf("RenderToString() = %q", got)
	}
}
