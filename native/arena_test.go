package native

import "testing"

func TestArena_AllocAlignment(t *testing.T) {
	a := NewArena(8, 1024)

	p1, err := a.Alloc(3, 1)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := a.Alloc(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if p1 != 8 {
		t.Errorf("first alloc = %d, want 8", p1)
	}
	if p2%8 != 0 || p2 < p1+3 {
		t.Errorf("aligned alloc = %d", p2)
	}
	if a.Live() != 2 {
		t.Errorf("Live = %d, want 2", a.Live())
	}
}

func TestArena_FreeCoalesces(t *testing.T) {
	a := NewArena(8, 72)

	var ptrs []uint32
	for i := 0; i < 4; i++ {
		p, err := a.Alloc(16, 1)
		if err != nil {
			t.Fatal(err)
		}
		ptrs = append(ptrs, p)
	}
	if _, err := a.Alloc(1, 1); err == nil {
		t.Fatal("expected exhaustion")
	}

	// Free out of order; the spans must merge back into one.
	for _, i := range []int{1, 3, 0, 2} {
		a.Free(ptrs[i], 16, 1)
	}
	if a.Live() != 0 {
		t.Errorf("Live = %d, want 0", a.Live())
	}
	p, err := a.Alloc(64, 1)
	if err != nil {
		t.Fatalf("whole range after coalescing: %v", err)
	}
	if p != 8 {
		t.Errorf("alloc = %d, want 8", p)
	}
}

func TestArena_Grow(t *testing.T) {
	a := NewArena(64, 64)
	var calls int
	a.SetGrow(func(need uint32) (uint32, bool) {
		calls++
		return 64 + PageSize, true
	})

	p, err := a.Alloc(100, 4)
	if err != nil {
		t.Fatal(err)
	}
	if p != 64 || calls != 1 {
		t.Errorf("alloc = %d after %d grows, want 64 after 1", p, calls)
	}
	if a.LiveBytes() != 100 {
		t.Errorf("LiveBytes = %d, want 100", a.LiveBytes())
	}
}

func TestArena_Errors(t *testing.T) {
	a := NewArena(8, 64)
	if _, err := a.Alloc(4, 3); err == nil {
		t.Error("non power of two alignment should fail")
	}
	if _, err := a.Alloc(1000, 1); err == nil {
		t.Error("oversized alloc should fail without grow")
	}

	p, _ := a.Alloc(4, 1)
	a.Free(p+1, 4, 1)
	a.Free(0, 0, 1)
	if a.Live() != 1 {
		t.Errorf("unknown frees changed Live to %d", a.Live())
	}
}

func TestArena_ZeroSize(t *testing.T) {
	a := NewArena(8, 64)
	p1, _ := a.Alloc(0, 1)
	p2, _ := a.Alloc(0, 1)
	if p1 == 0 || p1 == p2 {
		t.Errorf("zero-size allocs = %d, %d; want distinct non-null", p1, p2)
	}
}
