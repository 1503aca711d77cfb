// Package ring provides a fixed-capacity circular buffer whose slots carry
// their own occupancy bit.
package ring

type slot[T any] struct {
	value    T
	occupied bool
}

// Ring is a fixed set of slots addressed modulo its length.
// It is not safe for concurrent mutation.
type Ring[T any] struct {
	slots []slot[T]
}

// New creates a ring of size slots, each initialized by fill.
func New[T any](size int, fill func(i int) T) *Ring[T] {
	r := &Ring[T]{slots: make([]slot[T], size)}
	if fill != nil {
		for i := range r.slots {
			r.slots[i].value = fill(i)
		}
	}
	return r
}

// Len returns the number of slots.
func (r *Ring[T]) Len() int {
	return len(r.slots)
}

// Index maps any integer position onto a slot index.
func (r *Ring[T]) Index(pos int) int {
	n := len(r.slots)
	if n == 0 {
		return 0
	}
	i := pos % n
	if i < 0 {
		i += n
	}
	return i
}

// At returns the value stored at pos.
func (r *Ring[T]) At(pos int) T {
	return r.slots[r.Index(pos)].value
}

// Occupied reports whether the slot at pos is occupied.
func (r *Ring[T]) Occupied(pos int) bool {
	return r.slots[r.Index(pos)].occupied
}

// Occupy marks the slot at pos occupied.
func (r *Ring[T]) Occupy(pos int) {
	r.slots[r.Index(pos)].occupied = true
}

// Vacate marks the slot at pos free.
func (r *Ring[T]) Vacate(pos int) {
	r.slots[r.Index(pos)].occupied = false
}

// FirstFree scans forward from pos, pos included, for a free slot.
// It gives up after one full turn.
func (r *Ring[T]) FirstFree(pos int) (int, bool) {
	for i := 0; i < len(r.slots); i++ {
		idx := r.Index(pos + i)
		if !r.slots[idx].occupied {
			return idx, true
		}
	}
	return 0, false
}

// NextOccupied scans forward from the slot after pos for an occupied slot.
// pos itself is checked last.
func (r *Ring[T]) NextOccupied(pos int) (int, bool) {
	for i := 1; i <= len(r.slots); i++ {
		idx := r.Index(pos + i)
		if r.slots[idx].occupied {
			return idx, true
		}
	}
	return 0, false
}

// Count returns the number of occupied slots.
func (r *Ring[T]) Count() int {
	n := 0
	for i := range r.slots {
		if r.slots[i].occupied {
			n++
		}
	}
	return n
}

// Each calls fn for every slot in index order.
func (r *Ring[T]) Each(fn func(i int, v T, occupied bool)) {
	for i := range r.slots {
		fn(i, r.slots[i].value, r.slots[i].occupied)
	}
}
