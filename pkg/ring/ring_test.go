package ring

import "testing"

func TestRing_Index(t *testing.T) {
	r := New[int](4, nil)

	tests := []struct {
		pos  int
		want int
	}{
		{0, 0},
		{3, 3},
		{4, 0},
		{9, 1},
		{-1, 3},
		{-5, 3},
	}

	for _, tt := range tests {
		if got := r.Index(tt.pos); got != tt.want {
			t.Errorf("Index(%d) = %d, want %d", tt.pos, got, tt.want)
		}
	}
}

func TestRing_Fill(t *testing.T) {
	r := New(3, func(i int) string { return string(rune('a' + i)) })

	if r.At(0) != "a" || r.At(1) != "b" || r.At(2) != "c" {
		t.Errorf("unexpected values: %q %q %q", r.At(0), r.At(1), r.At(2))
	}
	if r.At(5) != "c" {
		t.Errorf("At(5) should wrap to slot 2, got %q", r.At(5))
	}
}

func TestRing_FirstFree(t *testing.T) {
	r := New[int](4, nil)
	r.Occupy(1)
	r.Occupy(2)

	idx, ok := r.FirstFree(1)
	if !ok || idx != 3 {
		t.Errorf("FirstFree(1) = %d, %v; want 3, true", idx, ok)
	}

	r.Occupy(0)
	r.Occupy(3)
	if _, ok := r.FirstFree(0); ok {
		t.Error("expected no free slot in a full ring")
	}
}

func TestRing_NextOccupied(t *testing.T) {
	r := New[int](5, nil)
	r.Occupy(3)

	idx, ok := r.NextOccupied(0)
	if !ok || idx != 3 {
		t.Errorf("NextOccupied(0) = %d, %v; want 3, true", idx, ok)
	}

	// Wraps around, checking pos itself last
	idx, ok = r.NextOccupied(3)
	if !ok || idx != 3 {
		t.Errorf("NextOccupied(3) = %d, %v; want 3, true", idx, ok)
	}

	r.Vacate(3)
	if _, ok := r.NextOccupied(0); ok {
		t.Error("expected no occupied slot")
	}
}

func TestRing_Count(t *testing.T) {
	r := New[int](6, nil)
	r.Occupy(0)
	r.Occupy(4)
	r.Occupy(10) // same as 4

	if r.Count() != 2 {
		t.Errorf("expected 2 occupied, got %d", r.Count())
	}
}
