// Package strtable implements the archive's global string interner: a
// concurrent, deduplicating append-only table from byte strings to 40-bit
// offsets into a single NUL-separated byte blob.
package strtable

import (
	"hash/maphash"
	"sync"
)

const (
	// shardCount controls lock granularity for concurrent Intern calls.
	// A power of two so the shard index is a cheap mask.
	shardCount = 64

	// MaxBytes is the largest a stringtable may grow to before archive
	// generation must fail with StringtableOverflow (2^40 - 1).
	MaxBytes = 1<<40 - 1
)

type shard struct {
	mu sync.Mutex
	m  map[string]uint64
}

// Interner is a thread-safe, idempotent byte-string -> u40-offset map
// backed by a single append-only byte table. Offset 0 is reserved for the
// empty string so that INVALID_IDX never collides with a real offset.
type Interner struct {
	shards [shardCount]*shard
	seed   maphash.Seed

	dataMu sync.Mutex
	data   []byte
}

// New returns an Interner with offset 0 already populated with a NUL byte
// (the empty string).
func New() *Interner {
	in := &Interner{seed: maphash.MakeSeed()}
	for i := range in.shards {
		in.shards[i] = &shard{m: make(map[string]uint64)}
	}
	in.data = []byte{0}
	in.shards[in.shardFor("")].m[""] = 0
	return in
}

func (in *Interner) shardFor(s string) int {
	var h maphash.Hash
	h.SetSeed(in.seed)
	h.WriteString(s)
	return int(h.Sum64() & (shardCount - 1))
}

// Intern returns the offset of b in the string table, appending it
// (NUL-terminated) if this is the first time b has been seen. Concurrent
// calls with byte-equal input always agree on the returned offset.
func (in *Interner) Intern(b []byte) (uint64, error) {
	s := string(b)
	sh := in.shards[in.shardFor(s)]

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if off, ok := sh.m[s]; ok {
		return off, nil
	}

	// sh.mu stays held across the append: if it were released between the
	// miss above and the append below, every goroutine racing on the same
	// never-before-seen string would pass the miss check and each append
	// its own copy of b into the shared data buffer, leaving all but one
	// as orphaned duplicate bytes even though their returned offsets would
	// still agree. Holding the lock across append makes this shard's
	// entire check-then-append-then-record sequence atomic, so only the
	// single winner ever appends.
	off, err := in.append(b)
	if err != nil {
		return 0, err
	}
	sh.m[s] = off
	return off, nil
}

// Push always appends b as a new NUL-terminated entry, regardless of
// whether it has been seen before, and records it in the dedup index as
// well so that a later Intern of the same bytes reuses this offset. This
// matches the header feature-list use case, where entries must occupy
// contiguous positions in emission order even if some repeat.
func (in *Interner) Push(b []byte) (uint64, error) {
	off, err := in.append(b)
	if err != nil {
		return 0, err
	}
	s := string(b)
	sh := in.shards[in.shardFor(s)]
	sh.mu.Lock()
	if _, ok := sh.m[s]; !ok {
		sh.m[s] = off
	}
	sh.mu.Unlock()
	return off, nil
}

func (in *Interner) append(b []byte) (uint64, error) {
	in.dataMu.Lock()
	defer in.dataMu.Unlock()
	off := uint64(len(in.data))
	if off+uint64(len(b))+1 > MaxBytes {
		return 0, ErrStringtableOverflow
	}
	in.data = append(in.data, b...)
	in.data = append(in.data, 0)
	return off, nil
}

// Bytes returns the final NUL-terminated raw byte blob. The caller must not
// mutate the returned slice; it is only safe to call once interning has
// finished (no further Intern/Push calls in flight).
func (in *Interner) Bytes() []byte {
	in.dataMu.Lock()
	defer in.dataMu.Unlock()
	return in.data
}

// Len returns the current size in bytes of the raw string table.
func (in *Interner) Len() uint64 {
	in.dataMu.Lock()
	defer in.dataMu.Unlock()
	return uint64(len(in.data))
}
