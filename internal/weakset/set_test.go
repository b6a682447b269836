package weakset

import (
	"errors"
	"math/rand/v2"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type probe struct {
	name string
	hits int
}

type named interface {
	Name() string
}

func (p *probe) Name() string { return p.name }

type empty struct{}

// putTransient stores a probe that nothing else references.
//
//go:noinline
func putTransient(s *Set[*probe], key int) {
	if err := s.Put(key, &probe{name: "transient"}); err != nil {
		panic(err)
	}
}

// collectUntil runs the garbage collector until cond holds.
func collectUntil(t *testing.T, cond func() bool) {
	t.Helper()
	for range 20 {
		runtime.GC()
		if cond() {
			return
		}
	}
	t.Fatal("referent was not reclaimed")
}

func mustPut[E any](t *testing.T, s *Set[E], key int, v E) {
	t.Helper()
	if err := s.Put(key, v); err != nil {
		t.Fatalf("Put(%d) error = %v", key, err)
	}
}

func TestNew(t *testing.T) {
	s := New[*probe]()

	if s.Len() != 0 {
		t.Errorf("expected len 0, got %d", s.Len())
	}
	if s.Cap() < DefaultCapacity {
		t.Errorf("expected cap >= %d, got %d", DefaultCapacity, s.Cap())
	}
	if s.HasGarbage() {
		t.Error("new set should not report garbage")
	}
}

func TestNewWithCapacity_Zero(t *testing.T) {
	s := NewWithCapacity[*probe](0)
	if s.Cap() != 0 {
		t.Fatalf("expected cap 0, got %d", s.Cap())
	}

	p := &probe{name: "a"}
	mustPut(t, s, 1, p)

	if s.Len() != 1 {
		t.Errorf("expected len 1, got %d", s.Len())
	}
	if s.Cap() < 1 {
		t.Errorf("expected set to grow, cap %d", s.Cap())
	}
	runtime.KeepAlive(p)
}

func TestPut_KeepsKeysOrdered(t *testing.T) {
	s := New[*probe]()
	probes := map[int]*probe{}

	for _, k := range []int{5, 1, 9, 3, 7, -2} {
		probes[k] = &probe{name: "p"}
		mustPut(t, s, k, probes[k])
	}

	want := []int{-2, 1, 3, 5, 7, 9}
	if diff := cmp.Diff(want, s.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	runtime.KeepAlive(probes)
}

func TestPut_OverwritesExistingKey(t *testing.T) {
	s := New[*probe]()
	first := &probe{name: "first"}
	second := &probe{name: "second"}

	mustPut(t, s, 4, first)
	mustPut(t, s, 4, second)

	if s.Len() != 1 {
		t.Fatalf("expected len 1 after re-put, got %d", s.Len())
	}
	got, ok := s.Get(4)
	if !ok {
		t.Fatal("expected key 4 to resolve")
	}
	if got != second {
		t.Errorf("expected second probe, got %q", got.name)
	}
	runtime.KeepAlive(first)
}

func TestPut_ReusesTombstonedRow(t *testing.T) {
	s := New[*probe]()
	a, b, c := &probe{name: "a"}, &probe{name: "b"}, &probe{name: "c"}

	mustPut(t, s, 1, a)
	mustPut(t, s, 2, b)
	mustPut(t, s, 3, c)
	s.Remove(2)
	mustPut(t, s, 2, b)

	// No compaction has run, so a fresh row would show up in size.
	if s.size != 3 {
		t.Fatalf("expected 3 rows, got %d", s.size)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, s.keys[:s.size]); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if got, ok := s.Get(2); !ok || got != b {
		t.Error("expected key 2 to resolve to b")
	}
	runtime.KeepAlive([]*probe{a, b, c})
}

func TestPut_RecyclesFollowingTombstone(t *testing.T) {
	s := New[*probe]()
	a, b, c := &probe{name: "a"}, &probe{name: "b"}, &probe{name: "c"}

	mustPut(t, s, 1, a)
	mustPut(t, s, 5, b)
	s.Remove(5)
	mustPut(t, s, 3, c)

	if s.size != 2 {
		t.Fatalf("expected tombstone to be recycled, got %d rows", s.size)
	}
	if diff := cmp.Diff([]int{1, 3}, s.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	runtime.KeepAlive([]*probe{a, b, c})
}

func TestPut_Errors(t *testing.T) {
	var typedNil *probe

	tests := []struct {
		name  string
		value any
		want  error
	}{
		{"nil interface", nil, ErrNilValue},
		{"typed nil pointer", typedNil, ErrNilValue},
		{"non-pointer", 42, ErrNotPointer},
		{"struct value", probe{name: "v"}, ErrNotPointer},
		{"zero-sized referent", &empty{}, ErrNotPointer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New[any]()
			err := s.Put(1, tt.value)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Put() error = %v, want %v", err, tt.want)
			}
			if s.Len() != 0 {
				t.Errorf("expected set unchanged, len %d", s.Len())
			}
		})
	}
}

func TestPut_CompactsBeforeGrowing(t *testing.T) {
	s := NewWithCapacity[*probe](1)
	capacity := s.Cap()

	probes := make([]*probe, capacity+1)
	for i := range probes {
		probes[i] = &probe{name: "p"}
	}
	for i := 0; i < capacity; i++ {
		mustPut(t, s, i*10, probes[i])
	}
	s.Remove(0)
	mustPut(t, s, capacity*10, probes[capacity])

	if s.Cap() != capacity {
		t.Errorf("expected compaction instead of growth, cap %d -> %d", capacity, s.Cap())
	}
	if s.HasGarbage() {
		t.Error("expected garbage to be cleared by compaction")
	}
	if s.Len() != capacity {
		t.Errorf("expected len %d, got %d", capacity, s.Len())
	}
	runtime.KeepAlive(probes)
}

func TestPut_GrowsBySizeClass(t *testing.T) {
	s := New[*probe]()
	initial := s.Cap()

	probes := make([]*probe, initial+1)
	for i := range probes {
		probes[i] = &probe{name: "p"}
		mustPut(t, s, i, probes[i])
	}

	if s.Cap() != idealCapacity(initial+1) {
		t.Errorf("expected cap %d, got %d", idealCapacity(initial+1), s.Cap())
	}
	if s.Cap() <= initial+1 {
		t.Errorf("expected growth beyond a single row, cap %d", s.Cap())
	}
	runtime.KeepAlive(probes)
}

func TestIdealCapacity(t *testing.T) {
	prev := 0
	for need := 1; need <= 5000; need++ {
		got := idealCapacity(need)
		if got < need {
			t.Fatalf("idealCapacity(%d) = %d, want >= need", need, got)
		}
		if got < prev {
			t.Fatalf("idealCapacity(%d) = %d, smaller than previous %d", need, got, prev)
		}
		prev = got
	}
}

func TestRemove(t *testing.T) {
	s := New[*probe]()
	p := &probe{name: "a"}
	mustPut(t, s, 1, p)

	s.Remove(99)
	if s.HasGarbage() {
		t.Error("removing an absent key should not produce garbage")
	}

	s.Remove(1)
	if !s.HasGarbage() {
		t.Error("expected garbage after removing a live key")
	}
	if _, ok := s.Get(1); ok {
		t.Error("expected removed key to be absent")
	}

	s.Remove(1)
	if s.Len() != 0 {
		t.Errorf("expected len 0, got %d", s.Len())
	}
	runtime.KeepAlive(p)
}

func TestForEach_AscendingLiveOnly(t *testing.T) {
	s := New[*probe]()
	probes := map[int]*probe{}
	for _, k := range []int{30, 10, 20, 40} {
		probes[k] = &probe{name: "p"}
		mustPut(t, s, k, probes[k])
	}
	s.Remove(20)

	var visited []*probe
	err := s.ForEach(func(p *probe) error {
		visited = append(visited, p)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach() error = %v", err)
	}

	want := []*probe{probes[10], probes[30], probes[40]}
	if len(visited) != len(want) {
		t.Fatalf("expected %d visits, got %d", len(want), len(visited))
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visit %d: wrong probe", i)
		}
	}
}

func TestForEach_ErrorStopsIteration(t *testing.T) {
	s := New[*probe]()
	probes := []*probe{{name: "a"}, {name: "b"}, {name: "c"}}
	for i, p := range probes {
		mustPut(t, s, i, p)
	}

	boom := errors.New("boom")
	visits := 0
	err := s.ForEach(func(p *probe) error {
		visits++
		if p.name == "b" {
			return boom
		}
		return nil
	})

	if !errors.Is(err, boom) {
		t.Fatalf("ForEach() error = %v, want %v", err, boom)
	}
	if visits != 2 {
		t.Errorf("expected 2 visits, got %d", visits)
	}
	if s.Len() != 3 {
		t.Errorf("expected set unchanged, len %d", s.Len())
	}
	runtime.KeepAlive(probes)
}

func TestForEach_PanicLeavesSetConsistent(t *testing.T) {
	s := New[*probe]()
	a, b := &probe{name: "a"}, &probe{name: "b"}
	mustPut(t, s, 1, a)
	mustPut(t, s, 2, b)
	s.Remove(1)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = s.ForEach(func(*probe) error { panic("handler exploded") })
	}()

	if !s.HasGarbage() {
		t.Error("expected tombstone to survive the panic")
	}
	if diff := cmp.Diff([]int{2}, s.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	runtime.KeepAlive([]*probe{a, b})
}

func TestForEach_TombstonesReclaimed(t *testing.T) {
	s := New[*probe]()
	keep := &probe{name: "keep"}
	mustPut(t, s, 1, keep)
	putTransient(s, 2)

	collectUntil(t, func() bool {
		_, ok := s.Get(2)
		return !ok
	})

	if s.size != 2 {
		t.Fatalf("expected reclaimed row to linger until visited, rows %d", s.size)
	}

	visits := 0
	_ = s.ForEach(func(*probe) error {
		visits++
		return nil
	})

	if visits != 1 {
		t.Errorf("expected 1 visit, got %d", visits)
	}
	if !s.HasGarbage() {
		t.Error("expected reclaimed row to be tombstoned")
	}
	if !s.CompactIfGarbage() {
		t.Error("expected compaction to run")
	}
	if diff := cmp.Diff([]int{1}, s.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	runtime.KeepAlive(keep)
}

func TestLen_DropsReclaimedWithoutVisit(t *testing.T) {
	s := New[*probe]()
	keep := &probe{name: "keep"}
	mustPut(t, s, 1, keep)
	putTransient(s, 2)
	putTransient(s, 3)

	collectUntil(t, func() bool {
		_, ok2 := s.Get(2)
		_, ok3 := s.Get(3)
		return !ok2 && !ok3
	})

	if got := s.Len(); got != 1 {
		t.Errorf("expected len 1, got %d", got)
	}
	runtime.KeepAlive(keep)
}

func TestAll_StopsOnBreak(t *testing.T) {
	s := New[*probe]()
	probes := []*probe{{name: "a"}, {name: "b"}, {name: "c"}}
	for i, p := range probes {
		mustPut(t, s, i+1, p)
	}

	var keys []int
	for k, p := range s.All() {
		keys = append(keys, k)
		if p.name == "b" {
			break
		}
	}

	if diff := cmp.Diff([]int{1, 2}, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	runtime.KeepAlive(probes)
}

func TestCompactIfGarbage_Idempotent(t *testing.T) {
	s := New[*probe]()
	probes := []*probe{{name: "a"}, {name: "b"}, {name: "c"}, {name: "d"}}
	for i, p := range probes {
		mustPut(t, s, i, p)
	}
	s.Remove(1)
	s.Remove(3)

	if !s.CompactIfGarbage() {
		t.Fatal("expected first compaction to run")
	}
	keys, size := s.Keys(), s.size

	if s.CompactIfGarbage() {
		t.Error("expected second compaction to be a no-op")
	}
	if diff := cmp.Diff(keys, s.Keys()); diff != "" {
		t.Errorf("keys changed (-first +second):\n%s", diff)
	}
	if s.size != size {
		t.Errorf("size changed from %d to %d", size, s.size)
	}
	for i := s.size; i < len(s.slots); i++ {
		if !s.slots[i].empty() {
			t.Errorf("slot %d beyond size still holds a reference", i)
		}
	}
	runtime.KeepAlive(probes)
}

func TestLen_MatchesLastOperation(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	s := NewWithCapacity[*probe](2)
	held := map[int]*probe{}
	present := map[int]bool{}

	for range 2000 {
		key := rng.IntN(64)
		if rng.IntN(3) == 0 {
			s.Remove(key)
			present[key] = false
			continue
		}
		p := &probe{name: "p"}
		held[key] = p
		mustPut(t, s, key, p)
		present[key] = true
	}

	want := 0
	for _, ok := range present {
		if ok {
			want++
		}
	}
	if got := s.Len(); got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}

	keys := s.Keys()
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("keys not strictly ascending at %d: %v", i, keys)
		}
	}
	runtime.KeepAlive(held)
}

func TestKeyAtValueAt(t *testing.T) {
	s := New[*probe]()
	a, b, c := &probe{name: "a"}, &probe{name: "b"}, &probe{name: "c"}
	mustPut(t, s, 3, c)
	mustPut(t, s, 1, a)
	mustPut(t, s, 2, b)
	s.Remove(1)

	if got := s.KeyAt(0); got != 2 {
		t.Errorf("KeyAt(0) = %d, want 2", got)
	}
	if got, ok := s.ValueAt(1); !ok || got != c {
		t.Error("ValueAt(1) should resolve to c")
	}
	runtime.KeepAlive([]*probe{a, b, c})
}

func TestClear(t *testing.T) {
	s := New[*probe]()
	a, b := &probe{name: "a"}, &probe{name: "b"}
	mustPut(t, s, 1, a)
	mustPut(t, s, 2, b)
	s.Remove(2)
	capacity := s.Cap()

	s.Clear()

	if s.Len() != 0 {
		t.Errorf("expected len 0, got %d", s.Len())
	}
	if s.HasGarbage() {
		t.Error("expected garbage flag cleared")
	}
	if s.Cap() != capacity {
		t.Errorf("expected capacity retained, %d -> %d", capacity, s.Cap())
	}
	for i, sl := range s.slots {
		if !sl.empty() {
			t.Errorf("slot %d still holds a reference", i)
		}
	}
	if _, ok := s.Get(1); ok {
		t.Error("expected cleared key to be absent")
	}
	runtime.KeepAlive([]*probe{a, b})
}

func TestInterfaceElements(t *testing.T) {
	s := New[named]()
	p := &probe{name: "iface"}
	mustPut[named](t, s, 7, p)

	got, ok := s.Get(7)
	if !ok {
		t.Fatal("expected key 7 to resolve")
	}
	if got.Name() != "iface" {
		t.Errorf("Name() = %q, want iface", got.Name())
	}
	if got.(*probe) != p {
		t.Error("expected the original pointer back")
	}
}
