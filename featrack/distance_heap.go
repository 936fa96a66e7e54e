package featrack

import "sort"

// neighbor is reference descriptor candidate for a query
type neighbor struct {
	trainIdx int
	distance float64
}

// Copied from container/heap - https://golang.org/pkg/container/heap/
// Why make copy? Just want to avoid type conversion

// neighborHeap is max-heap by distance: the root is the worst of kept neighbors.
// Ties are ordered by train index so results are deterministic
type neighborHeap []neighbor

func (h neighborHeap) Len() int { return len(h) }
func (h neighborHeap) Less(i, j int) bool {
	if h[i].distance == h[j].distance {
		return h[i].trainIdx > h[j].trainIdx
	}
	return h[i].distance > h[j].distance
}
func (h neighborHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

// Push pushes the element x onto the heap.
// The complexity is O(log n) where n = h.Len().
func (h *neighborHeap) Push(x neighbor) {
	*h = append(*h, x)
	h.up(h.Len() - 1)
}

// Offer keeps x if heap holds less than k elements or x is better than the worst kept one
func (h *neighborHeap) Offer(x neighbor, k int) {
	if h.Len() < k {
		h.Push(x)
		return
	}
	if k == 0 {
		return
	}
	worst := (*h)[0]
	if x.distance < worst.distance || (x.distance == worst.distance && x.trainIdx < worst.trainIdx) {
		(*h)[0] = x
		h.down(0, h.Len())
	}
}

// Sorted returns kept elements from the best to the worst
func (h neighborHeap) Sorted() []neighbor {
	out := make([]neighbor, len(h))
	copy(out, h)
	sort.Slice(out, func(i, j int) bool {
		if out[i].distance == out[j].distance {
			return out[i].trainIdx < out[j].trainIdx
		}
		return out[i].distance < out[j].distance
	})
	return out
}

func (h neighborHeap) up(j int) {
	for {
		i := (j - 1) / 2
		if i == j || !h.Less(j, i) {
			break
		}
		h.Swap(i, j)
		j = i
	}
}

func (h neighborHeap) down(i0, n int) bool {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && h.Less(j2, j1) {
			j = j2
		}
		if !h.Less(j, i) {
			break
		}
		h.Swap(i, j)
		i = j
	}
	return i > i0
}
