package routing

// IndexedHeap is a binary min-heap of keys ordered by priority, with ties
// broken by insertion sequence. A key -> position index gives O(1)
// membership and O(log n) decrease-key.
//
// keys, prio and seq are parallel arrays so the frontier can be handed out
// without copying.
type IndexedHeap[K comparable] struct {
	keys []K
	prio []float64
	seq  []uint64
	pos  map[K]int
	next uint64
}

// NewIndexedHeap returns an empty heap.
func NewIndexedHeap[K comparable]() *IndexedHeap[K] {
	return &IndexedHeap[K]{pos: make(map[K]int)}
}

func (h *IndexedHeap[K]) Len() int { return len(h.keys) }

// Contains reports whether k is in the heap.
func (h *IndexedHeap[K]) Contains(k K) bool {
	_, ok := h.pos[k]
	return ok
}

// Priority returns the current priority of k.
func (h *IndexedHeap[K]) Priority(k K) (float64, bool) {
	i, ok := h.pos[k]
	if !ok {
		return 0, false
	}
	return h.prio[i], true
}

// Push inserts k, or moves it to priority p if already present. A moved key
// takes a fresh insertion sequence.
func (h *IndexedHeap[K]) Push(k K, p float64) {
	h.next++
	if i, ok := h.pos[k]; ok {
		old := h.prio[i]
		h.prio[i] = p
		h.seq[i] = h.next
		if p < old {
			h.siftUp(i)
		} else {
			h.siftDown(i)
		}
		return
	}
	h.keys = append(h.keys, k)
	h.prio = append(h.prio, p)
	h.seq = append(h.seq, h.next)
	i := len(h.keys) - 1
	h.pos[k] = i
	h.siftUp(i)
}

// Peek returns the minimum key without removing it.
func (h *IndexedHeap[K]) Peek() (K, float64, bool) {
	if len(h.keys) == 0 {
		var zero K
		return zero, 0, false
	}
	return h.keys[0], h.prio[0], true
}

// Pop removes and returns the minimum key. Panics on an empty heap.
func (h *IndexedHeap[K]) Pop() (K, float64) {
	k, p := h.keys[0], h.prio[0]
	delete(h.pos, k)

	n := len(h.keys) - 1
	if n > 0 {
		h.keys[0], h.prio[0], h.seq[0] = h.keys[n], h.prio[n], h.seq[n]
		h.pos[h.keys[0]] = 0
	}
	var zero K
	h.keys[n] = zero
	h.keys, h.prio, h.seq = h.keys[:n], h.prio[:n], h.seq[:n]
	if n > 0 {
		h.siftDown(0)
	}
	return k, p
}

// Keys returns the heap's keys in heap order. The slice is shared with the
// heap and only valid until the next mutation.
func (h *IndexedHeap[K]) Keys() []K { return h.keys }

// siftUp uses hole-sift: the floating entry is written once at its final
// position.
func (h *IndexedHeap[K]) siftUp(i int) {
	k, p, s := h.keys[i], h.prio[i], h.seq[i]
	for i > 0 {
		parent := (i - 1) / 2
		if !before(p, s, h.prio[parent], h.seq[parent]) {
			break
		}
		h.move(parent, i)
		i = parent
	}
	h.keys[i], h.prio[i], h.seq[i] = k, p, s
	h.pos[k] = i
}

func (h *IndexedHeap[K]) siftDown(i int) {
	n := len(h.keys)
	k, p, s := h.keys[i], h.prio[i], h.seq[i]
	for {
		child := 2*i + 1
		if child >= n {
			break
		}
		if right := child + 1; right < n && before(h.prio[right], h.seq[right], h.prio[child], h.seq[child]) {
			child = right
		}
		if !before(h.prio[child], h.seq[child], p, s) {
			break
		}
		h.move(child, i)
		i = child
	}
	h.keys[i], h.prio[i], h.seq[i] = k, p, s
	h.pos[k] = i
}

func (h *IndexedHeap[K]) move(from, to int) {
	h.keys[to], h.prio[to], h.seq[to] = h.keys[from], h.prio[from], h.seq[from]
	h.pos[h.keys[to]] = to
}

func before(p1 float64, s1 uint64, p2 float64, s2 uint64) bool {
	if p1 != p2 {
		return p1 < p2
	}
	return s1 < s2
}
