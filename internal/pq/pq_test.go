package pq

import (
	"math/rand"
	"testing"
)

func intHeap(capacity int) *Heap[int] {
	return New[int](capacity, func(a, b int) bool { return a < b })
}

func TestPopMinOrdersAscending(t *testing.T) {
	h := intHeap(31)
	//1.- Push a shuffled sequence and verify the drain is sorted.
	r := rand.New(rand.NewSource(7))
	for _, v := range r.Perm(31) {
		if !h.Push(v) {
			t.Fatalf("push rejected below capacity")
		}
	}
	prev := -1
	h.Drain(func(v int) {
		if v < prev {
			t.Fatalf("drain out of order: %d after %d", v, prev)
		}
		prev = v
	})
	if h.Len() != 0 {
		t.Fatalf("drain left %d elements", h.Len())
	}
}

func TestPushRejectsWhenFull(t *testing.T) {
	h := intHeap(2)
	h.Push(1)
	h.Push(2)
	if h.Push(3) {
		t.Fatalf("push must fail at capacity")
	}
	if h.Len() != 2 {
		t.Fatalf("failed push altered the heap")
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	h := intHeap(4)
	h.Push(9)
	h.Push(3)
	if v, ok := h.Peek(); !ok || v != 3 {
		t.Fatalf("peek got %d/%v, want 3", v, ok)
	}
	if h.Len() != 2 {
		t.Fatalf("peek consumed an element")
	}
}

func TestDecreasedResiftsInPlace(t *testing.T) {
	type keyed struct{ key, id int }
	h := New[keyed](8, func(a, b keyed) bool { return a.key < b.key })
	h.Push(keyed{10, 1})
	h.Push(keyed{20, 2})
	h.Push(keyed{30, 3})
	//1.- Decrease the last element's key below the root and re-sift.
	for i := 0; i < h.n; i++ {
		if h.items[i].id == 3 {
			h.items[i].key = 1
			h.Decreased(i)
		}
	}
	if v, _ := h.PopMin(); v.id != 3 {
		t.Fatalf("expected decreased element at the root, got id %d", v.id)
	}
}

func TestClear(t *testing.T) {
	h := intHeap(4)
	h.Push(1)
	h.Clear()
	if _, ok := h.PopMin(); ok {
		t.Fatalf("cleared heap still pops")
	}
}
