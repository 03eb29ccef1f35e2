package calltable

import "testing"

// TestHeapOrdering tests that popDue returns ids in deadline order
func TestHeapOrdering(t *testing.T) {
	h := newDeadlineHeap()
	h.schedule(1, 30)
	h.schedule(2, 10)
	h.schedule(3, 20)

	due := h.popDue(25)
	if len(due) != 2 || due[0] != 2 || due[1] != 3 {
		t.Fatalf("Expected [2 3], got %v", due)
	}
	if h.Len() != 1 {
		t.Errorf("Expected 1 remaining entry, got %d", h.Len())
	}
}

// TestPopDueHonorsThreshold tests that nothing past the threshold is popped
func TestPopDueHonorsThreshold(t *testing.T) {
	h := newDeadlineHeap()
	h.schedule(1, 100)

	if due := h.popDue(99); len(due) != 0 {
		t.Fatalf("Expected nothing due, got %v", due)
	}
	if due := h.popDue(100); len(due) != 1 || due[0] != 1 {
		t.Fatalf("Expected [1], got %v", due)
	}
}

// TestUnschedule tests direct removal by id, including unknown ids
func TestUnschedule(t *testing.T) {
	h := newDeadlineHeap()
	h.schedule(1, 10)
	h.schedule(2, 20)

	h.unschedule(1)
	h.unschedule(99) // unknown id is a no-op

	due := h.popDue(100)
	if len(due) != 1 || due[0] != 2 {
		t.Fatalf("Expected [2], got %v", due)
	}
}

// TestReschedule tests that scheduling an existing id moves its deadline
func TestReschedule(t *testing.T) {
	h := newDeadlineHeap()
	h.schedule(1, 10)
	h.schedule(1, 50)

	if due := h.popDue(10); len(due) != 0 {
		t.Fatalf("Expected the moved deadline not to be due, got %v", due)
	}
	if due := h.popDue(50); len(due) != 1 {
		t.Fatalf("Expected the moved deadline to pop, got %v", due)
	}
}
