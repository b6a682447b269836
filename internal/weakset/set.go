package weakset

import (
	"iter"
	"slices"
)

// DefaultCapacity is the capacity requested by New before size-class rounding.
const DefaultCapacity = 10

// Set is an ordered int-keyed collection of weak references.
type Set[E any] struct {
	keys  []int
	slots []slot

	// size counts rows in use, tombstones included.
	size int

	// garbage is set whenever a row is tombstoned and cleared by compaction.
	// It may be true when no tombstone is left, never the reverse.
	garbage bool
}

// New creates an empty set with the default capacity.
func New[E any]() *Set[E] {
	return NewWithCapacity[E](DefaultCapacity)
}

// NewWithCapacity creates an empty set able to hold at least capacity rows
// before growing. A capacity of zero allocates nothing up front.
func NewWithCapacity[E any](capacity int) *Set[E] {
	s := &Set[E]{}
	if capacity > 0 {
		n := idealCapacity(capacity)
		s.keys = make([]int, n)
		s.slots = make([]slot, n)
	}
	return s
}

// Put stores a weak reference to v under key, replacing any previous row
// with the same key, tombstoned or not.
func (s *Set[E]) Put(key int, v E) error {
	value, err := makeSlot(any(v))
	if err != nil {
		return err
	}

	i, found := slices.BinarySearch(s.keys[:s.size], key)
	if found {
		s.slots[i] = value
		return nil
	}

	// The tombstone at i sorts after key, and its left neighbour sorts
	// before it, so the row can be recycled in place.
	if i < s.size && s.slots[i].empty() {
		s.keys[i] = key
		s.slots[i] = value
		return nil
	}

	if s.garbage && s.size >= len(s.keys) {
		s.compact()
		i, _ = slices.BinarySearch(s.keys[:s.size], key)
	}

	if s.size >= len(s.keys) {
		s.grow(idealCapacity(s.size + 1))
	}

	if i < s.size {
		copy(s.keys[i+1:s.size+1], s.keys[i:s.size])
		copy(s.slots[i+1:s.size+1], s.slots[i:s.size])
	}

	s.keys[i] = key
	s.slots[i] = value
	s.size++
	return nil
}

// Remove tombstones the row stored under key. Removing an absent or already
// tombstoned key is a no-op.
func (s *Set[E]) Remove(key int) {
	i, found := slices.BinarySearch(s.keys[:s.size], key)
	if !found || s.slots[i].empty() {
		return
	}
	s.slots[i] = slot{}
	s.garbage = true
}

// Get returns the value stored under key if its row is live and the
// referent has not been reclaimed.
func (s *Set[E]) Get(key int) (E, bool) {
	i, found := slices.BinarySearch(s.keys[:s.size], key)
	if !found {
		var zero E
		return zero, false
	}
	return s.resolveAt(i)
}

// ForEach calls visit for every live value in ascending key order.
//
// Rows whose referent has been reclaimed are tombstoned and skipped. If
// visit returns an error, iteration stops and the error is returned as is;
// rows tombstoned up to that point stay tombstoned. visit must not mutate
// the set.
func (s *Set[E]) ForEach(visit func(E) error) error {
	var err error
	for _, v := range s.All() {
		if err = visit(v); err != nil {
			break
		}
	}
	return err
}

// All returns an iterator over live (key, value) pairs in ascending key
// order, with the same tombstoning behavior as ForEach. The range is fixed
// when iteration starts.
func (s *Set[E]) All() iter.Seq2[int, E] {
	return func(yield func(int, E) bool) {
		n := s.size
		for i := 0; i < n; i++ {
			if s.slots[i].empty() {
				continue
			}

			v, ok := s.resolveAt(i)
			if !ok {
				s.slots[i] = slot{}
				s.garbage = true
				continue
			}

			if !yield(s.keys[i], v) {
				return
			}
		}
	}
}

// CompactIfGarbage drops every tombstoned row if any row was tombstoned
// since the last compaction. It reports whether a compaction ran.
func (s *Set[E]) CompactIfGarbage() bool {
	if !s.garbage {
		return false
	}
	s.compact()
	return true
}

// Optimize tombstones every row whose referent has been reclaimed, without
// visiting live values, and then compacts.
func (s *Set[E]) Optimize() {
	for i := 0; i < s.size; i++ {
		if !s.slots[i].empty() && !s.slots[i].alive() {
			s.slots[i] = slot{}
			s.garbage = true
		}
	}
	s.CompactIfGarbage()
}

// Len returns the exact number of live rows. Rows whose referent has been
// reclaimed are tombstoned and the set is compacted before counting.
func (s *Set[E]) Len() int {
	s.Optimize()
	return s.size
}

// KeyAt returns the key of the index-th row, for index in [0, Len()).
func (s *Set[E]) KeyAt(index int) int {
	s.CompactIfGarbage()
	return s.keys[index]
}

// ValueAt returns the value of the index-th row, for index in [0, Len()).
// ok is false if the referent has been reclaimed.
func (s *Set[E]) ValueAt(index int) (E, bool) {
	s.CompactIfGarbage()
	return s.resolveAt(index)
}

// Keys returns a copy of the keys currently stored, in ascending order.
func (s *Set[E]) Keys() []int {
	s.CompactIfGarbage()
	return slices.Clone(s.keys[:s.size])
}

// Cap returns the number of rows the set can hold before growing.
func (s *Set[E]) Cap() int {
	return len(s.keys)
}

// HasGarbage reports whether rows were tombstoned since the last compaction.
func (s *Set[E]) HasGarbage() bool {
	return s.garbage
}

// Clear drops every row and releases its weak reference immediately.
// Capacity is retained.
func (s *Set[E]) Clear() {
	clear(s.slots[:s.size])
	s.size = 0
	s.garbage = false
}

// resolveAt resolves the slot at index i into an E.
func (s *Set[E]) resolveAt(i int) (E, bool) {
	var zero E
	if s.slots[i].empty() {
		return zero, false
	}
	v, ok := s.slots[i].resolve()
	if !ok {
		return zero, false
	}
	return v.(E), true
}

// compact shifts live rows left over tombstones in a single pass.
func (s *Set[E]) compact() {
	o := 0
	for i := 0; i < s.size; i++ {
		if s.slots[i].empty() {
			continue
		}
		if i != o {
			s.keys[o] = s.keys[i]
			s.slots[o] = s.slots[i]
		}
		o++
	}

	clear(s.slots[o:s.size])
	s.size = o
	s.garbage = false
}

// grow reallocates the backing arrays to n rows.
func (s *Set[E]) grow(n int) {
	keys := make([]int, n)
	slots := make([]slot, n)
	copy(keys, s.keys[:s.size])
	copy(slots, s.slots[:s.size])
	s.keys = keys
	s.slots = slots
}
