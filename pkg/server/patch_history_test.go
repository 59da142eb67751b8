package server

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatchHistory_Add(t *testing.T) {
	h := NewPatchHistory(5)
	assert.Equal(t, uint64(0), h.MaxSeq())

	h.Add(1, []byte("frame1"))
	assert.Equal(t, 1, h.Count())
	assert.Equal(t, uint64(1), h.MinSeq())
	assert.Equal(t, uint64(1), h.MaxSeq())

	h.Add(2, []byte("frame2"))
	h.Add(3, []byte("frame3"))
	assert.Equal(t, 3, h.Count())
	assert.Equal(t, uint64(1), h.MinSeq())
	assert.Equal(t, uint64(3), h.MaxSeq())
	assert.Equal(t, 18, h.Bytes())
}

func TestPatchHistory_Since(t *testing.T) {
	h := NewPatchHistory(10)
	for i := uint64(1); i <= 5; i++ {
		h.Add(i, []byte{byte(i)})
	}

	frames, ok := h.Since(0)
	require.True(t, ok)
	assert.Equal(t, [][]byte{{1}, {2}, {3}, {4}, {5}}, frames)

	frames, ok = h.Since(3)
	require.True(t, ok)
	assert.Equal(t, [][]byte{{4}, {5}}, frames)

	frames, ok = h.Since(5)
	assert.True(t, ok, "an up-to-date client needs nothing")
	assert.Empty(t, frames)

	_, ok = h.Since(9)
	assert.False(t, ok, "a client ahead of the server needs a snapshot")
}

func TestPatchHistory_CircularOverwrite(t *testing.T) {
	h := NewPatchHistory(3)
	for i := uint64(1); i <= 5; i++ {
		h.Add(i, []byte{byte(i)})
	}

	assert.Equal(t, 3, h.Count())
	assert.Equal(t, uint64(3), h.MinSeq())
	assert.Equal(t, uint64(5), h.MaxSeq())

	_, ok := h.Since(1)
	assert.False(t, ok, "frame 2 was overwritten")

	frames, ok := h.Since(2)
	require.True(t, ok)
	assert.Equal(t, [][]byte{{3}, {4}, {5}}, frames)
}

func TestPatchHistory_Empty(t *testing.T) {
	h := NewPatchHistory(3)
	_, ok := h.Since(0)
	assert.False(t, ok)
}

func TestPatchHistory_Clear(t *testing.T) {
	h := NewPatchHistory(3)
	h.Add(1, []byte("a"))
	h.Add(2, []byte("b"))
	h.Clear()

	assert.Equal(t, 0, h.Count())
	assert.Equal(t, uint64(0), h.MaxSeq())
	assert.Equal(t, 0, h.Bytes())
}

func TestPatchHistory_FrameCopyIsolation(t *testing.T) {
	h := NewPatchHistory(3)
	buf := []byte("frame")
	h.Add(1, buf)
	buf[0] = 'X'

	frames, ok := h.Since(0)
	require.True(t, ok)
	assert.Equal(t, "frame", string(frames[0]))
}

func TestPatchHistory_DefaultCapacity(t *testing.T) {
	h := NewPatchHistory(0)
	assert.Len(t, h.entries, DefaultServerConfig().MaxPatchHistory)
}

func TestPatchHistory_Concurrent(t *testing.T) {
	h := NewPatchHistory(50)
	var wg sync.WaitGroup
	var mu sync.Mutex
	next := uint64(0)

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				mu.Lock()
				next++
				h.Add(next, []byte{byte(next)})
				mu.Unlock()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				h.Since(h.MinSeq())
				h.Bytes()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, h.Count())
	assert.Equal(t, uint64(200), h.MaxSeq())
}
