package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/protocol"
	"github.com/vango-dev/reconciler/pkg/vango"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

// todoApp mounts a keyed list on a renderer hosted by srv and returns a
// function that replaces the list.
func todoApp(t *testing.T, srv *Server) func(items ...string) {
	t.Helper()
	sched := vango.NewRenderScheduler()
	require.NoError(t, sched.Init())
	t.Cleanup(sched.Teardown)

	var items vango.State[[]string]
	List := vango.Define("List", func(ctx *vango.Ctx, _ vdom.Props) *vdom.VNode {
		items = vango.UseState(ctx, []string{"a", "b"})
		return vdom.Ul(vdom.Range(items.Get(), func(s string, _ int) *vdom.VNode {
			return vdom.Li(vdom.Key(s), s)
		}))
	})

	r := vango.NewRenderer(sched, srv)
	_, err := r.Mount(context.Background(), List.Invoke(nil))
	require.NoError(t, err)

	return func(next ...string) {
		_, err := r.Dispatch(context.Background(), func() { items.Set(next) })
		require.NoError(t, err)
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		ts.Close()
	})
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) *protocol.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	f, err := protocol.DecodeFrame(msg)
	require.NoError(t, err)
	return f
}

// viewer rebuilds the host tree from the frames a client receives.
type viewer struct {
	tree *host.Tree
	seq  uint64
}

func (v *viewer) apply(t *testing.T, f *protocol.Frame) {
	t.Helper()
	switch f.Type {
	case protocol.FrameTree:
		seq, root, err := protocol.DecodeTree(f.Payload)
		require.NoError(t, err)
		v.tree, v.seq = host.New(), seq
		if root != nil {
			require.NoError(t, v.tree.Apply([]vdom.Patch{{Op: vdom.PatchInsertNode, Path: vdom.Path{0}, Node: root.ToVNode()}}))
		}
	case protocol.FramePatches:
		pf, err := protocol.DecodePatches(f.Payload)
		require.NoError(t, err)
		assert.Equal(t, v.seq+1, pf.Seq, "frames must arrive in sequence")
		v.seq = pf.Seq
		for _, p := range pf.Patches {
			require.NoError(t, v.tree.Apply([]vdom.Patch{p.ToVDOM()}))
		}
	default:
		t.Fatalf("unexpected frame %s", f.Type)
	}
}

func TestSnapshotThenPatches(t *testing.T) {
	srv, ts := newTestServer(t)
	set := todoApp(t, srv)

	conn := dial(t, ts, "")
	v := &viewer{}
	snap := readFrame(t, conn)
	require.Equal(t, protocol.FrameTree, snap.Type)
	v.apply(t, snap)
	assert.Equal(t, "<ul><li>a</li><li>b</li></ul>", v.tree.String())

	set("c", "a", "b")
	f := readFrame(t, conn)
	assert.True(t, f.Flags.Has(protocol.FlagFinal))
	assert.True(t, f.Flags.Has(protocol.FlagSequenced))
	v.apply(t, f)

	assert.Equal(t, "<ul><li>c</li><li>a</li><li>b</li></ul>", v.tree.String())
	assert.Equal(t, srv.Seq(), v.seq)
}

func TestResumeReplaysMissedFrames(t *testing.T) {
	srv, ts := newTestServer(t)
	set := todoApp(t, srv)
	mounted := srv.Seq()

	set("a", "b", "c")
	set("b", "c")

	conn := dial(t, ts, "?since="+strconv.FormatUint(mounted, 10))
	v := &viewer{tree: host.New(), seq: mounted}
	require.NoError(t, v.tree.Apply([]vdom.Patch{{Op: vdom.PatchInsertNode, Path: vdom.Path{0}, Node: vdom.Ul(vdom.Li("a"), vdom.Li("b"))}}))

	for v.seq < srv.Seq() {
		f := readFrame(t, conn)
		require.Equal(t, protocol.FramePatches, f.Type, "a resumable client must not get a snapshot")
		v.apply(t, f)
	}
	assert.Equal(t, "<ul><li>b</li><li>c</li></ul>", v.tree.String())
}

func TestResumeTooOldGetsSnapshot(t *testing.T) {
	srv := New(&ServerConfig{MaxPatchHistory: 1})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	set := todoApp(t, srv)
	set("x")
	set("y")

	conn := dial(t, ts, "?since=1")
	f := readFrame(t, conn)
	require.Equal(t, protocol.FrameTree, f.Type)

	seq, _, err := protocol.DecodeTree(f.Payload)
	require.NoError(t, err)
	assert.Equal(t, srv.Seq(), seq)
}

func TestInvalidSinceIsRejected(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/ws?since=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTreeEndpoint(t *testing.T) {
	srv, ts := newTestServer(t)
	todoApp(t, srv)

	resp, err := http.Get(ts.URL + "/tree")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var tree struct {
		Seq  uint64 `json:"seq"`
		Root struct {
			Kind     string `json:"kind"`
			Tag      string `json:"tag"`
			Children []struct {
				Tag string `json:"tag"`
			} `json:"children"`
		} `json:"root"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tree))
	assert.Equal(t, srv.Seq(), tree.Seq)
	assert.Equal(t, "element", tree.Root.Kind)
	assert.Equal(t, "ul", tree.Root.Tag)
	assert.Len(t, tree.Root.Children, 2)

	resp2, err := http.Get(ts.URL + "/tree?format=markup")
	require.NoError(t, err)
	defer resp2.Body.Close()
	body, _ := io.ReadAll(resp2.Body)
	assert.Equal(t, "<ul><li>a</li><li>b</li></ul>", string(body))
}

func TestHealthAndMetrics(t *testing.T) {
	srv, ts := newTestServer(t)
	todoApp(t, srv)
	dial(t, ts, "")
	require.Eventually(t, func() bool { return srv.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "reconciler_inspector_clients 1")
	assert.Contains(t, string(body), `reconciler_inspector_resyncs_total{method="snapshot"} 1`)
}

func TestSlowClientIsDropped(t *testing.T) {
	srv := New(nil)
	c := &client{id: 99, send: make(chan []byte), done: make(chan struct{})}
	srv.clients[c] = struct{}{}

	require.NoError(t, srv.Apply([]vdom.Patch{{Op: vdom.PatchInsertNode, Path: vdom.Path{0}, Node: vdom.Div()}}))

	assert.Equal(t, 0, srv.Clients())
	select {
	case <-c.done:
	default:
		t.Fatal("dropped client should be closed")
	}
}

func TestApplyRejectsBadPatchesWithoutBroadcast(t *testing.T) {
	srv := New(nil)
	err := srv.Apply([]vdom.Patch{{Op: vdom.PatchRemoveNode, Path: vdom.Path{0}}})
	require.ErrorIs(t, err, host.ErrBadPath)
	assert.Equal(t, uint64(0), srv.Seq())
	assert.Equal(t, 0, srv.History().Count())
}

func TestRejectedPassLeavesMirrorAtCommittedTree(t *testing.T) {
	srv := New(nil)
	sched := vango.NewRenderScheduler()
	require.NoError(t, sched.Init())
	t.Cleanup(sched.Teardown)

	var body vango.State[string]
	Doc := vango.Define("Doc", func(ctx *vango.Ctx, _ vdom.Props) *vdom.VNode {
		body = vango.UseState(ctx, "")
		if body.Get() == "" {
			return vdom.Div()
		}
		return vdom.Div(vdom.P(body.Get()))
	})

	ctx := context.Background()
	r := vango.NewRenderer(sched, srv)
	_, err := r.Mount(ctx, Doc.Invoke(nil))
	require.NoError(t, err)
	mounted := srv.Seq()

	_, err = r.Dispatch(ctx, func() { body.Set(strings.Repeat("x", 70000)) })
	require.ErrorIs(t, err, vango.ErrHostRejected)
	require.ErrorIs(t, err, protocol.ErrFrameTooLarge)
	assert.Equal(t, "<div></div>", srv.mirror.String())
	assert.Equal(t, host.Render(r.Tree()), srv.mirror.String())

	_, err = r.Flush(ctx)
	require.ErrorIs(t, err, vango.ErrHostRejected)
	assert.Equal(t, "<div></div>", srv.mirror.String(), "a retried pass must not apply twice")
	assert.Equal(t, mounted, srv.Seq())
	assert.Equal(t, 1, srv.History().Count())

	_, err = r.Dispatch(ctx, func() { body.Set("ok") })
	require.NoError(t, err)
	assert.Equal(t, "<div><p>ok</p></div>", srv.mirror.String())
	assert.Equal(t, mounted+1, srv.Seq(), "sequence numbers stay contiguous")
}

func TestApplyAfterShutdown(t *testing.T) {
	srv := New(nil)
	require.NoError(t, srv.Shutdown(context.Background()))
	assert.ErrorIs(t, srv.Apply(nil), ErrServerClosed)
}

func TestMaxClients(t *testing.T) {
	srv := New(&ServerConfig{MaxClients: 1})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	first := dial(t, ts, "")
	readFrame(t, first)

	second := dial(t, ts, "")
	require.NoError(t, second.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := second.ReadMessage()
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, websocket.CloseTryAgainLater, ce.Code)
}
