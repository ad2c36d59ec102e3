package compiler

import (
	"testing"

	"github.com/wegman-software/osmflatgo/internal/archive"
	"github.com/wegman-software/osmflatgo/internal/strtable"
)

func TestTagSerializerDedupesIdenticalPairs(t *testing.T) {
	interner := strtable.New()
	tags := archive.NewVectorWriter("tags", archive.TagStride)
	index := archive.NewVectorWriter("tags_index", archive.TagIndexStride)
	ts := NewTagSerializer(interner, tags, index)

	first, err := ts.Serialize([][2][]byte{{[]byte("highway"), []byte("residential")}})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	second, err := ts.Serialize([][2][]byte{{[]byte("highway"), []byte("residential")}})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct tag_first_idx per entity, got both %d", first)
	}
	if tags.Count() != 1 {
		t.Fatalf("expected one deduped Tag row, got %d", tags.Count())
	}
	if index.Count() != 2 {
		t.Fatalf("expected two tags_index entries, got %d", index.Count())
	}
}

func TestTagSerializerEmptyPairsReturnsCurrentPosition(t *testing.T) {
	interner := strtable.New()
	tags := archive.NewVectorWriter("tags", archive.TagStride)
	index := archive.NewVectorWriter("tags_index", archive.TagIndexStride)
	ts := NewTagSerializer(interner, tags, index)

	if _, err := ts.Serialize([][2][]byte{{[]byte("k"), []byte("v")}}); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	first, err := ts.Serialize(nil)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if first != 1 {
		t.Fatalf("expected tag_first_idx 1 (current index count) for empty tag list, got %d", first)
	}
}

func TestTagSerializerDistinctValuesGetDistinctRows(t *testing.T) {
	interner := strtable.New()
	tags := archive.NewVectorWriter("tags", archive.TagStride)
	index := archive.NewVectorWriter("tags_index", archive.TagIndexStride)
	ts := NewTagSerializer(interner, tags, index)

	if _, err := ts.Serialize([][2][]byte{{[]byte("highway"), []byte("residential")}}); err != nil {
		t.Fatal(err)
	}
	if _, err := ts.Serialize([][2][]byte{{[]byte("highway"), []byte("primary")}}); err != nil {
		t.Fatal(err)
	}
	if tags.Count() != 2 {
		t.Fatalf("expected two distinct Tag rows, got %d", tags.Count())
	}
}
