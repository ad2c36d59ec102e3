package idmap

import "testing"

func TestMappingOfSmallInts(t *testing.T) {
	b := NewBuilder()
	ids := []uint64{5, 2, 9, 2, 100}
	want := make(map[uint64]uint64)
	for i, id := range ids {
		idx := b.Insert(id)
		if idx != uint64(i) {
			t.Fatalf("Insert(%d) = %d, want %d", id, idx, i)
		}
		want[id] = idx
	}
	table := b.Finalize()
	if table.Len() != uint64(len(ids)) {
		t.Fatalf("Len() = %d, want %d", table.Len(), len(ids))
	}
	for id, wantIdx := range want {
		// duplicate 2 was inserted twice (indices 1 and 3); Finalize's sort
		// is not stable, so Find may return either - we only assert presence
		// and range validity here for duplicates.
		if id == 2 {
			gotIdx, ok := table.Find(id)
			if !ok || (gotIdx != 1 && gotIdx != 3) {
				t.Fatalf("Find(2) = (%d,%v), want index 1 or 3", gotIdx, ok)
			}
			continue
		}
		gotIdx, ok := table.Find(id)
		if !ok {
			t.Fatalf("Find(%d) not found", id)
		}
		if gotIdx != wantIdx {
			t.Fatalf("Find(%d) = %d, want %d", id, gotIdx, wantIdx)
		}
	}
	if _, ok := table.Find(999); ok {
		t.Fatalf("Find(999) should not be found")
	}
}

func TestMappingOfLargeInts(t *testing.T) {
	b := NewBuilder()
	ids := []uint64{1 << 40, (1 << 40) + 7, 1<<41 + 3}
	for _, id := range ids {
		b.Insert(id)
	}
	table := b.Finalize()
	for i, id := range ids {
		idx, ok := table.Find(id)
		if !ok || idx != uint64(i) {
			t.Fatalf("Find(%d) = (%d,%v), want (%d,true)", id, idx, ok, i)
		}
	}
	if _, ok := table.Find(1 << 41); ok {
		t.Fatalf("Find(%d) should not be found", uint64(1)<<41)
	}
}

func TestSkipReservesIndices(t *testing.T) {
	b := NewBuilder()
	b.Skip(3)
	idx := b.Insert(42)
	if idx != 3 {
		t.Fatalf("Insert after Skip(3) = %d, want 3", idx)
	}
}
