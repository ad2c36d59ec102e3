package compiler

import (
	"github.com/wegman-software/osmflatgo/internal/archive"
	"github.com/wegman-software/osmflatgo/internal/strtable"
)

// tagKey is the dedup key for the (key_idx, value_idx) pair a Tag record
// represents: two entities carrying the same key/value strings share one
// Tag row and differ only in their tags_index entry.
type tagKey struct{ key, val uint64 }

// TagSerializer interns tag key/value strings, deduplicates identical
// (key, value) pairs into a single shared Tag record, and appends
// tags_index entries pointing at them. It is owned by a single stage's
// ordered consumer and is not itself safe for concurrent use, matching
// main.rs's TagSerializer: the interner it wraps is concurrent, but the
// serializer's own dedup map is not.
type TagSerializer struct {
	interner *strtable.Interner
	tags     *archive.VectorWriter
	index    *archive.VectorWriter
	dedup    map[tagKey]uint64
}

// NewTagSerializer returns a TagSerializer writing into tags/index.
func NewTagSerializer(interner *strtable.Interner, tags, index *archive.VectorWriter) *TagSerializer {
	return &TagSerializer{
		interner: interner,
		tags:     tags,
		index:    index,
		dedup:    make(map[tagKey]uint64),
	}
}

// Serialize interns each (key, value) pair in order, emits a Tag row the
// first time a pair is seen (reusing it otherwise), appends one
// tags_index entry per pair, and returns the starting tags_index position
// for the caller's tag_first_idx field.
func (ts *TagSerializer) Serialize(pairs [][2][]byte) (uint64, error) {
	first := ts.index.Count()
	for _, pair := range pairs {
		keyIdx, err := ts.interner.Intern(pair[0])
		if err != nil {
			return 0, err
		}
		valIdx, err := ts.interner.Intern(pair[1])
		if err != nil {
			return 0, err
		}
		tk := tagKey{key: keyIdx, val: valIdx}
		pos, ok := ts.dedup[tk]
		if !ok {
			pos = ts.tags.Append(archive.Tag{KeyIdx: keyIdx, ValueIdx: valIdx})
			ts.dedup[tk] = pos
		}
		ts.index.Append(archive.IndexEntry{Value: pos})
	}
	return first, nil
}
