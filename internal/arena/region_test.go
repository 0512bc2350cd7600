package arena

import (
	"errors"
	"testing"
)

type node struct {
	ID    int
	Name  string
	Links [4]*node
}

func TestRegionAllocStableAndZeroed(t *testing.T) {
	r := New[node](8, 1, nil)
	const n = 100

	ptrs := make([]*node, 0, n)
	seen := make(map[*node]bool, n)
	for i := 0; i < n; i++ {
		p := r.Alloc(1)
		if p.ID != 0 || p.Name != "" || p.Links[0] != nil {
			t.Fatalf("alloc %d: element is not zeroed: %+v", i, *p)
		}
		if seen[p] {
			t.Fatalf("alloc %d: address returned twice", i)
		}
		seen[p] = true
		p.ID = i
		ptrs = append(ptrs, p)
	}

	// адреса не должны меняться после роста
	for i, p := range ptrs {
		if p.ID != i {
			t.Fatalf("element %d changed: got ID %d", i, p.ID)
		}
	}
	if r.Len() != n {
		t.Fatalf("Len() = %d, want %d", r.Len(), n)
	}
	if want := (n + 7) / 8; r.Chunks() != want {
		t.Fatalf("Chunks() = %d, want %d", r.Chunks(), want)
	}
}

func TestRegionFlattenOrder(t *testing.T) {
	r := New[node](3, 0, nil)
	for i := 0; i < 10; i++ {
		r.Alloc(0).ID = i
	}
	flat := r.Flatten(nil)
	if len(flat) != 10 {
		t.Fatalf("flatten returned %d elements, want 10", len(flat))
	}
	for i, p := range flat {
		if p.ID != i {
			t.Fatalf("flatten[%d].ID = %d", i, p.ID)
		}
	}
}

func TestRegionDestroyRunsFinalizer(t *testing.T) {
	var finalized []int
	r := New[node](4, 2, func(n *node) {
		finalized = append(finalized, n.ID)
	})
	for i := 0; i < 9; i++ {
		r.Alloc(2).ID = i + 1
	}
	r.Destroy()
	if len(finalized) != 9 {
		t.Fatalf("finalizer ran %d times, want 9", len(finalized))
	}
	for i, id := range finalized {
		if id != i+1 {
			t.Fatalf("finalizer order: got %v", finalized)
		}
	}
	if r.Len() != 0 || !r.Destroyed() {
		t.Fatalf("region not released after Destroy")
	}
	r.Destroy()
	if len(finalized) != 9 {
		t.Fatalf("second Destroy must be a no-op")
	}
}

func TestRegionWrongOwnerPanics(t *testing.T) {
	r := New[node](4, 3, nil)
	defer func() {
		rec := recover()
		err, ok := rec.(error)
		if !ok || !errors.Is(err, ErrWrongOwner) {
			t.Fatalf("expected ErrWrongOwner panic, got %v", rec)
		}
	}()
	r.Alloc(4)
	t.Fatalf("Alloc from a non-owner must panic")
}

func TestRegionAllocAfterDestroyPanics(t *testing.T) {
	r := New[int](4, 0, nil)
	r.Alloc(0)
	r.Destroy()
	defer func() {
		if rec := recover(); rec != ErrDestroyed {
			t.Fatalf("expected ErrDestroyed panic, got %v", rec)
		}
	}()
	r.Alloc(0)
}
