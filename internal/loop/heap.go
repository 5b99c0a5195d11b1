package loop

import (
	"container/heap"
	"time"
)

// entry is one scheduled callback.
type entry struct {
	when    time.Time
	seq     uint64 // ties on when run in scheduling order
	fn      func()
	index   int // heap position, -1 once popped or removed
	stopped bool
	fired   bool
}

// entryHeap is a min-heap of entries ordered by (when, seq).
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// due pops the earliest entry if it is due at or before t.
func (h *entryHeap) due(t time.Time) *entry {
	if h.Len() == 0 || (*h)[0].when.After(t) {
		return nil
	}
	return heap.Pop(h).(*entry)
}

// remove takes e out of the heap if it is still queued.
func (h *entryHeap) remove(e *entry) {
	if e.index >= 0 && e.index < h.Len() && (*h)[e.index] == e {
		heap.Remove(h, e.index)
	}
}
