package server

import (
	"sync"
	"time"
)

// historyEntry stores a sent patch frame for replay.
type historyEntry struct {
	seq    uint64
	frame  []byte // Pre-encoded FramePatches
	sentAt time.Time
}

// PatchHistory is a thread-safe ring buffer of recently broadcast patch
// frames. A client that reconnects with the sequence number of the last
// frame it applied is sent the frames it missed instead of a full snapshot,
// as long as they are all still buffered.
type PatchHistory struct {
	mu      sync.RWMutex
	entries []historyEntry
	head    int // Next write position
	count   int
}

// NewPatchHistory creates a patch history holding up to capacity frames.
func NewPatchHistory(capacity int) *PatchHistory {
	if capacity <= 0 {
		capacity = DefaultServerConfig().MaxPatchHistory
	}
	return &PatchHistory{entries: make([]historyEntry, capacity)}
}

// Add stores a frame. Sequence numbers must increase. The frame bytes are
// copied.
func (h *PatchHistory) Add(seq uint64, frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.head] = historyEntry{
		seq:    seq,
		frame:  append([]byte(nil), frame...),
		sentAt: time.Now(),
	}
	h.head = (h.head + 1) % len(h.entries)
	if h.count < len(h.entries) {
		h.count++
	}
}

// at returns the i-th oldest entry. Must hold mu.
func (h *PatchHistory) at(i int) *historyEntry {
	return &h.entries[(h.head-h.count+i+len(h.entries))%len(h.entries)]
}

// Since returns the frames after seq, oldest first. ok is false when some
// of them are no longer buffered and the client needs a snapshot.
func (h *PatchHistory) Since(seq uint64) (frames [][]byte, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return nil, false
	}
	if oldest := h.at(0).seq; seq+1 < oldest {
		return nil, false
	}
	if seq > h.at(h.count-1).seq {
		return nil, false
	}
	for i := 0; i < h.count; i++ {
		if e := h.at(i); e.seq > seq {
			frames = append(frames, e.frame)
		}
	}
	return frames, true
}

// MaxSeq returns the sequence number of the newest frame, or 0.
func (h *PatchHistory) MaxSeq() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.count == 0 {
		return 0
	}
	return h.at(h.count - 1).seq
}

// MinSeq returns the sequence number of the oldest frame, or 0.
func (h *PatchHistory) MinSeq() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.count == 0 {
		return 0
	}
	return h.at(0).seq
}

// Count returns the number of buffered frames.
func (h *PatchHistory) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Bytes returns the total size of the buffered frames.
func (h *PatchHistory) Bytes() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for i := 0; i < h.count; i++ {
		n += len(h.at(i).frame)
	}
	return n
}

// Clear drops every frame.
func (h *PatchHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.entries {
		h.entries[i] = historyEntry{}
	}
	h.head = 0
	h.count = 0
}
