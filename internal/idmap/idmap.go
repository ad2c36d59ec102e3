// Package idmap maps sparse 64-bit OSM ids to dense positional indices.
//
// The map is built by a single writer during a stage (Builder.Insert) and
// then frozen (Builder.Finalize) into a read-only Table queried concurrently
// by later stages.
package idmap

import "sort"

// shardBits determines how an id is split into a shard key (high bits) and
// an in-shard key (low 32 bits). OSM ids fit comfortably in 32 bits for any
// input that will exist before this archive format is retired, but ids are
// carried as full 64-bit values for correctness against pathological input.
const shardBits = 32

type entry struct {
	low32 uint32
	index uint32
}

// Builder accumulates id -> positional index pairs as they are assigned,
// in insertion order, without requiring ids to be sorted or unique ahead of
// time.
type Builder struct {
	shards map[uint32][]entry
	next   uint64
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{shards: make(map[uint32][]entry)}
}

// Insert records id -> the next sequential index and returns that index.
func (b *Builder) Insert(id uint64) uint64 {
	idx := b.next
	b.next++
	shard := uint32(id >> shardBits)
	b.shards[shard] = append(b.shards[shard], entry{low32: uint32(id), index: uint32(idx)})
	return idx
}

// Skip reserves count sequential indices without recording any id mapping
// for them, used when a caller pre-allocates indices ahead of discovering
// which ids they will belong to.
func (b *Builder) Skip(count uint64) {
	b.next += count
}

// Len reports how many indices have been assigned so far.
func (b *Builder) Len() uint64 {
	return b.next
}

// Finalize sorts each shard by its in-shard key and returns a read-only
// Table supporting binary-search lookups.
func (b *Builder) Finalize() *Table {
	t := &Table{shards: make(map[uint32][]entry, len(b.shards)), numIDs: b.next}
	for shard, entries := range b.shards {
		sort.Slice(entries, func(i, j int) bool { return entries[i].low32 < entries[j].low32 })
		t.shards[shard] = entries
	}
	return t
}

// Table is a read-only, concurrency-safe (by virtue of immutability) id ->
// index lookup structure.
type Table struct {
	shards map[uint32][]entry
	numIDs uint64
}

// Len reports how many indices the Builder assigned, including indices
// reserved by Skip and repeated inserts of the same id.
func (t *Table) Len() uint64 {
	return t.numIDs
}

// Find returns the index assigned to id and true, or (0, false) if id was
// never inserted.
func (t *Table) Find(id uint64) (uint64, bool) {
	shard := uint32(id >> shardBits)
	entries, ok := t.shards[shard]
	if !ok {
		return 0, false
	}
	low := uint32(id)
	i := sort.Search(len(entries), func(i int) bool { return entries[i].low32 >= low })
	if i < len(entries) && entries[i].low32 == low {
		return uint64(entries[i].index), true
	}
	return 0, false
}
