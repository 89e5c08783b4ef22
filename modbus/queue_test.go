// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import "testing"

func TestQueueOrderingPriorityDrainsFirst(t *testing.T) {
	q := NewQueue()
	a := NewTelegram(1, FuncReadCoils, nil)
	b := NewTelegram(2, FuncReadCoils, nil)
	c := NewTelegram(3, FuncReadCoils, nil)

	q.Submit(a, false)
	q.Submit(b, true)
	q.Submit(c, false)

	var order []uint64
	for {
		t := q.Dequeue()
		if t == nil {
			break
		}
		order = append(order, t.ID())
	}

	want := []uint64{b.ID(), a.ID(), c.ID()}
	if len(order) != len(want) {
		t.Fatalf("got %d telegrams, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order[%d] = %d, want %d", i, order[i], want[i])
		}
	}
}

func TestQueueSizeAndClear(t *testing.T) {
	q := NewQueue()
	q.Submit(NewTelegram(1, FuncReadCoils, nil), false)
	q.Submit(NewTelegram(1, FuncReadCoils, nil), false)
	q.Submit(NewTelegram(1, FuncReadCoils, nil), true)

	if got := q.Size(false); got != 2 {
		t.Fatalf("Size(false) = %d, want 2", got)
	}
	if got := q.Size(true); got != 1 {
		t.Fatalf("Size(true) = %d, want 1", got)
	}

	q.Clear(false)
	if got := q.Size(false); got != 0 {
		t.Fatalf("Size(false) after Clear = %d, want 0", got)
	}
	if got := q.Size(true); got != 1 {
		t.Fatalf("Size(true) after clearing standard queue = %d, want 1", got)
	}
	if q.Empty() {
		t.Fatalf("Empty() = true, priority queue still holds a telegram")
	}
}

func TestQueueDequeueEmpty(t *testing.T) {
	q := NewQueue()
	if tg := q.Dequeue(); tg != nil {
		t.Fatalf("Dequeue() on empty queue = %v, want nil", tg)
	}
	if !q.Empty() {
		t.Fatalf("Empty() = false on a fresh queue")
	}
}
