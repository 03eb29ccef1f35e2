package calltable

import "container/heap"

// --------------------------------------------------------------------------
// Deadline Index
// --------------------------------------------------------------------------

// entry pairs a request id with its deadline (unix nanoseconds), used as
// the heap priority.
type entry struct {
	id       uint32
	deadline int64
	index    int // position in the heap slice, maintained by heap package
}

// deadlineHeap is a min-heap over call deadlines with O(1) access by
// request id, so expiry pops the earliest deadline while a resolved call
// can be unscheduled directly.
//
// Not thread-safe; the owning table serializes access.
type deadlineHeap struct {
	entries []*entry
	byID    map[uint32]*entry
}

func newDeadlineHeap() *deadlineHeap {
	return &deadlineHeap{
		byID: make(map[uint32]*entry),
	}
}

// Len returns the number of scheduled deadlines (part of heap.Interface)
func (h *deadlineHeap) Len() int { return len(h.entries) }

// Less orders by earliest deadline first (part of heap.Interface)
func (h *deadlineHeap) Less(i, j int) bool {
	return h.entries[i].deadline < h.entries[j].deadline
}

// Swap exchanges entries at positions i and j (part of heap.Interface)
func (h *deadlineHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
	h.entries[i].index = i
	h.entries[j].index = j
}

// Push adds an entry to the heap (part of heap.Interface)
func (h *deadlineHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(h.entries)
	h.entries = append(h.entries, e)
	h.byID[e.id] = e
}

// Pop removes and returns the earliest entry (part of heap.Interface)
func (h *deadlineHeap) Pop() interface{} {
	old := h.entries
	n := len(old)
	e := old[n-1]
	old[n-1] = nil // avoid memory leak
	e.index = -1
	h.entries = old[:n-1]
	delete(h.byID, e.id)
	return e
}

// schedule adds a deadline for the given id, or moves an existing one.
func (h *deadlineHeap) schedule(id uint32, deadline int64) {
	if e, exists := h.byID[id]; exists {
		e.deadline = deadline
		heap.Fix(h, e.index)
		return
	}
	heap.Push(h, &entry{id: id, deadline: deadline})
}

// unschedule removes the deadline of a resolved call. Unknown ids are a
// no-op (the expiry path may have popped it already).
func (h *deadlineHeap) unschedule(id uint32) {
	if e, exists := h.byID[id]; exists {
		heap.Remove(h, e.index)
	}
}

// popDue removes and returns the ids of every entry due at or before now.
func (h *deadlineHeap) popDue(now int64) []uint32 {
	var due []uint32
	for len(h.entries) > 0 && h.entries[0].deadline <= now {
		e := heap.Pop(h).(*entry)
		due = append(due, e.id)
	}
	return due
}
