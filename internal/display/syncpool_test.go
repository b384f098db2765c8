package display

import "testing"

// These exercise the free-list/busy-map bookkeeping in isolation, without a
// device: acquire/markBusy/release never touch SyncObjs fields once a slot
// index exists, so a pool seeded with zero-value slots is sufficient.

func seededPool(n int) *syncPool {
	p := &syncPool{busy: make(map[uint32]int)}
	for i := 0; i < n; i++ {
		p.slots = append(p.slots, SyncObjs{})
		p.free = append(p.free, i)
	}
	return p
}

func TestSyncPoolAcquireReusesFreedSlot(t *testing.T) {
	p := seededPool(1)

	idx, _, err := p.acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if idx != 0 {
		t.Fatalf("acquire returned slot %d, want 0", idx)
	}
	if len(p.free) != 0 {
		t.Fatalf("expected free-list drained, got %v", p.free)
	}

	p.markBusy(7, idx)
	if got, _, ok := p.busySlot(7); !ok || got != idx {
		t.Fatalf("busySlot(7) = (%d, %v), want (%d, true)", got, ok, idx)
	}

	p.release(7)
	if _, _, ok := p.busySlot(7); ok {
		t.Fatal("expected image 7 to no longer be busy after release")
	}
	if len(p.free) != 1 || p.free[0] != idx {
		t.Fatalf("expected slot %d back on the free-list, got %v", idx, p.free)
	}
}

func TestSyncPoolAcquireGrowsWhenFreeListEmpty(t *testing.T) {
	p := seededPool(0)

	idx, _, err := p.acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if idx != 0 || len(p.slots) != 1 {
		t.Fatalf("expected a freshly grown slot 0, got idx=%d len(slots)=%d", idx, len(p.slots))
	}
}

func TestSyncPoolReleaseOfUnknownImageIsNoOp(t *testing.T) {
	p := seededPool(2)
	before := len(p.free)

	p.release(999)

	if len(p.free) != before {
		t.Fatalf("release of an untracked image mutated the free-list: %v", p.free)
	}
}

func TestSyncPoolAllBusySlotsMatchesBusyMap(t *testing.T) {
	p := seededPool(3)

	for i := 0; i < 3; i++ {
		idx, _, err := p.acquire()
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		p.markBusy(uint32(i), idx)
	}

	busy := p.allBusySlots()
	if len(busy) != 3 {
		t.Fatalf("allBusySlots returned %d entries, want 3", len(busy))
	}
	seen := make(map[int]bool)
	for _, idx := range busy {
		seen[idx] = true
	}
	for i := 0; i < 3; i++ {
		if !seen[i] {
			t.Fatalf("expected slot %d among busy slots, got %v", i, busy)
		}
	}
}

func TestSyncPoolAtMostOneSlotPerImage(t *testing.T) {
	p := seededPool(2)

	idxA, _, _ := p.acquire()
	p.markBusy(5, idxA)

	idxB, _, _ := p.acquire()
	p.markBusy(5, idxB)

	if got, _, ok := p.busySlot(5); !ok || got != idxB {
		t.Fatalf("expected the later markBusy to win for image 5, got slot %d", got)
	}
}
