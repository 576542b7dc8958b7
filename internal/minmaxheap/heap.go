// Package minmaxheap implements a fixed-capacity interval (min-max)
// heap: a single array supporting cheap insertion, cheap eviction of
// the minimum once full, and cheap largest-first drain — the
// admission buffer sitting between admission scoring and the outbound
// ring.
package minmaxheap

import "math/bits"

// Heap is a bounded double-ended priority structure over T, ordered by
// less. Once len(data) reaches capacity, Push evicts and returns the
// current minimum.
type Heap[T any] struct {
	data     []T
	less     func(a, b T) bool
	capacity int
}

// New builds an empty Heap with room for capacity elements, ordered by
// less(a, b) meaning "a sorts before b".
func New[T any](capacity int, less func(a, b T) bool) *Heap[T] {
	if capacity <= 0 {
		panic("minmaxheap: capacity must be positive")
	}
	return &Heap[T]{
		data:     make([]T, 0, capacity),
		less:     less,
		capacity: capacity,
	}
}

// Len returns the current number of elements.
func (h *Heap[T]) Len() int { return len(h.data) }

// Cap returns the heap's fixed capacity.
func (h *Heap[T]) Cap() int { return h.capacity }

// Push always inserts value first, then — if that insertion brought
// the heap to exactly capacity — evicts and returns the minimum,
// leaving the heap at capacity-1. A heap that never fills
// never evicts.
func (h *Heap[T]) Push(value T) (evicted T, ok bool) {
	h.data = append(h.data, value)
	h.pushUp(len(h.data) - 1)

	if len(h.data) == h.capacity {
		return h.popMin()
	}
	return evicted, false
}

// PopMax removes and returns the current maximum, or false if empty.
// Callers drain largest-first by calling this in a loop; stopping
// early costs nothing extra, which is what makes the drain "lazy".
func (h *Heap[T]) PopMax() (T, bool) {
	var zero T
	n := len(h.data)
	switch n {
	case 0:
		return zero, false
	case 1:
		v := h.data[0]
		h.data = h.data[:0]
		return v, true
	}

	maxIdx := 1
	if n > 2 && h.less(h.data[1], h.data[2]) {
		maxIdx = 2
	}
	v := h.data[maxIdx]
	last := n - 1
	h.data[maxIdx] = h.data[last]
	h.data = h.data[:last]
	if maxIdx < len(h.data) {
		h.trickleDown(maxIdx)
	}
	return v, true
}

func (h *Heap[T]) popMin() (T, bool) {
	var zero T
	n := len(h.data)
	if n == 0 {
		return zero, false
	}
	v := h.data[0]
	last := n - 1
	h.data[0] = h.data[last]
	h.data = h.data[:last]
	if len(h.data) > 0 {
		h.trickleDown(0)
	}
	return v, true
}

func level(i int) int {
	return bits.Len(uint(i+1)) - 1
}

func isMinLevel(i int) bool {
	return level(i)%2 == 0
}

// grandparent returns the index two levels above i, if one exists.
func grandparent(i int) (int, bool) {
	if i == 0 {
		return 0, false
	}
	p := (i - 1) / 2
	if p == 0 {
		return 0, false
	}
	return (p - 1) / 2, true
}

func (h *Heap[T]) swap(i, j int) { h.data[i], h.data[j] = h.data[j], h.data[i] }

func greaterOf[T any](less func(a, b T) bool) func(a, b T) bool {
	return func(a, b T) bool { return less(b, a) }
}

func (h *Heap[T]) pushUp(i int) {
	if i == 0 {
		return
	}
	p := (i - 1) / 2
	if isMinLevel(i) {
		if h.less(h.data[p], h.data[i]) {
			h.swap(i, p)
			h.pushUpAlong(p, greaterOf(h.less))
		} else {
			h.pushUpAlong(i, h.less)
		}
	} else {
		if h.less(h.data[i], h.data[p]) {
			h.swap(i, p)
			h.pushUpAlong(p, h.less)
		} else {
			h.pushUpAlong(i, greaterOf(h.less))
		}
	}
}

// pushUpAlong bubbles i up through grandparents while lt(data[i],
// data[grandparent]) holds. Called with h.less to push up the min
// side, or its inverse to push up the max side — both levels use the
// identical grandparent-chasing logic.
func (h *Heap[T]) pushUpAlong(i int, lt func(a, b T) bool) {
	for {
		gp, ok := grandparent(i)
		if !ok || !lt(h.data[i], h.data[gp]) {
			return
		}
		h.swap(i, gp)
		i = gp
	}
}

func (h *Heap[T]) trickleDown(i int) {
	if isMinLevel(i) {
		h.trickleDownAlong(i, h.less)
	} else {
		h.trickleDownAlong(i, greaterOf(h.less))
	}
}

// trickleDownAlong sifts i down among its children and grandchildren,
// ordered by lt. Grandchildren are one level further away but sort on
// the same side as i, so the recursive call reuses the same lt.
func (h *Heap[T]) trickleDownAlong(i int, lt func(a, b T) bool) {
	n := len(h.data)
	c1, c2 := 2*i+1, 2*i+2

	m := i
	if c1 < n && lt(h.data[c1], h.data[m]) {
		m = c1
	}
	if c2 < n && lt(h.data[c2], h.data[m]) {
		m = c2
	}

	var grandchildren [4]int
	count := 0
	for _, c := range [2]int{c1, c2} {
		if c >= n {
			continue
		}
		if g := 2*c + 1; g < n {
			grandchildren[count] = g
			count++
		}
		if g := 2*c + 2; g < n {
			grandchildren[count] = g
			count++
		}
	}

	fromGrandchild := false
	for k := 0; k < count; k++ {
		g := grandchildren[k]
		if lt(h.data[g], h.data[m]) {
			m = g
			fromGrandchild = true
		}
	}

	if m == i {
		return
	}

	if fromGrandchild {
		if lt(h.data[m], h.data[i]) {
			h.swap(m, i)
			p := (m - 1) / 2
			if lt(h.data[p], h.data[m]) {
				h.swap(m, p)
			}
			h.trickleDownAlong(m, lt)
		}
		return
	}

	if lt(h.data[m], h.data[i]) {
		h.swap(m, i)
	}
}
