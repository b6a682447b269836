// Package weakset provides Set, an ordered int-keyed collection that holds
// only weak references to its elements.
//
// A Set never keeps a value alive. When the garbage collector reclaims a
// referent, the row that pointed at it is tombstoned the next time it is
// visited (ForEach, All, Optimize) and physically dropped by the next
// compaction. Removal follows the same path: Remove only tombstones, and
// compaction runs at natural checkpoints (Len, CompactIfGarbage, and before
// the backing arrays would otherwise have to grow).
//
// # Layout
//
// Keys and slots live in two index-aligned slices sorted by key. Lookups
// and inserts binary-search the keys; inserts shift the tail right by one.
// The trade-off favours small sets that are iterated far more often than
// they are mutated, which is what a subscriber list looks like.
//
//	keys:  [ 1 | 3 | 5 | 8 | . | . ]
//	slots: [ w | - | w | w | . | . ]     w = live weak ref, - = tombstone
//	                        ^ size = 4   len(keys) = capacity = 6
//
// # Values
//
// Every value stored in a Set must be a non-nil pointer to a heap object of
// non-zero size, or an interface holding one. Values with no pointer fields
// that are smaller than 16 bytes may share an allocation block with other
// tiny objects, which delays their reclamation; this does not affect
// correctness.
//
// # Thread Safety
//
// A Set is not safe for concurrent use. Callers serialize access.
package weakset
