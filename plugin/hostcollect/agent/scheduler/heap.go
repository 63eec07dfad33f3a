// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

// readHeap is a min-heap of read functions ordered by next due time.
type readHeap []*readFunc

func (h readHeap) Len() int { return len(h) }

func (h readHeap) Less(i, j int) bool { return h[i].next.Before(h[j].next) }

func (h readHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *readHeap) Push(x any) {
	rf := x.(*readFunc)
	rf.index = len(*h)
	*h = append(*h, rf)
}

func (h *readHeap) Pop() any {
	old := *h
	n := len(old)
	rf := old[n-1]
	old[n-1] = nil
	rf.index = -1
	*h = old[:n-1]
	return rf
}
