package archive

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/wegman-software/osmflatgo/internal/bitpack"
)

func TestVectorWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nodes")

	v := NewVectorWriter("nodes", NodeStride)
	v.Append(Node{Lat: 52, Lon: 13, TagFirstIdx: 0})
	v.Append(Node{Lat: -10, Lon: 20, TagFirstIdx: 1})
	// sentinel trailing record per spec §3/§4.6
	v.Append(Node{Lat: 0, Lon: 0, TagFirstIdx: 1})

	if err := v.Close(path, schemaNode); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	count := binary.LittleEndian.Uint64(data[:8])
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	payload := data[8 : 8+3*NodeStride]
	trailer := string(data[8+3*NodeStride:])
	if trailer != schemaNode {
		t.Fatalf("trailer mismatch")
	}
	lat0 := int32(binary.LittleEndian.Uint32(payload[0:4]))
	if lat0 != 52 {
		t.Fatalf("lat0 = %d, want 52", lat0)
	}
}

func TestMultiVectorSentinelMonotonic(t *testing.T) {
	mv := NewMultiVector()

	mv.StartBlock()
	mv.AppendMember(VariantNodeMember, NodeMember{NodeIdx: 0, RoleIdx: 1})
	mv.AppendMember(VariantWayMember, WayMember{WayIdx: 0, RoleIdx: 2})

	mv.StartBlock()
	mv.AppendMember(VariantRelationMember, RelationMember{RelationIdx: 0, RoleIdx: 3})

	mv.Finish()

	if mv.index.Count() != 3 { // 2 entities + sentinel
		t.Fatalf("index count = %d, want 3", mv.index.Count())
	}
	entries := mv.index.bw.Bytes()
	off0 := bitpack.ReadU40(entries, 0)
	off1 := bitpack.ReadU40(entries, NodeIndexStride)
	off2 := bitpack.ReadU40(entries, 2*NodeIndexStride)
	if off0 != 0 {
		t.Fatalf("off0 = %d, want 0", off0)
	}
	if off1 <= off0 {
		t.Fatalf("off1 = %d should be > off0 = %d", off1, off0)
	}
	if off2 != mv.data.Len() {
		t.Fatalf("sentinel = %d, want data length %d", off2, mv.data.Len())
	}
}

func TestBuilderCommitAndRemovePartial(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	b, err := New(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	b.SetHeader(Header{CoordScale: 1_000_000_000})
	b.SetStringtable([]byte{0})
	b.Nodes().Append(Node{}) // sentinel only, empty archive
	b.Ways().Append(Way{})
	b.Relations().Append(Relation{})
	b.Members().Finish()

	if err := b.Commit(); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"header", "nodes", "ways", "relations", "tags",
		"tags_index", "nodes_index", "stringtable", "relation_members",
		"relation_members_index", "schema", "ids/nodes", "ids/ways", "ids/relations"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing resource file %s: %v", name, err)
		}
	}

	if err := b.RemovePartial(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("RemovePartial did not remove %s", dir)
	}
}
