package osmpbf

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func appendPackedVarint(b []byte, num protowire.Number, vs []uint64) []byte {
	var payload []byte
	for _, v := range vs {
		payload = protowire.AppendVarint(payload, v)
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendBytes(b, payload)
	return b
}

func TestDecodeDenseNodesRoundTrip(t *testing.T) {
	var b []byte
	// ids: 10, 20, 30 delta-coded as [10, 10, 10]
	b = appendPackedVarint(b, 1, []uint64{protowire.EncodeZigZag(10), protowire.EncodeZigZag(10), protowire.EncodeZigZag(10)})
	// lat deltas
	b = appendPackedVarint(b, 8, []uint64{protowire.EncodeZigZag(5), protowire.EncodeZigZag(1), protowire.EncodeZigZag(1)})
	// lon deltas
	b = appendPackedVarint(b, 9, []uint64{protowire.EncodeZigZag(7), protowire.EncodeZigZag(1), protowire.EncodeZigZag(1)})
	// keys_vals: node0 has (1,2,0), node1 has 0 (no tags), node2 has 0
	b = appendPackedVarint(b, 10, []uint64{1, 2, 0, 0, 0})

	dn, err := decodeDenseNodes(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(dn.ID) != 3 || dn.ID[0] != 10 || dn.ID[1] != 10 || dn.ID[2] != 10 {
		t.Fatalf("ID deltas = %v", dn.ID)
	}
	if len(dn.KeysVals) != 5 {
		t.Fatalf("KeysVals = %v", dn.KeysVals)
	}
}

func TestDecodeWay(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 42)
	b = appendPackedVarint(b, 8, []uint64{
		protowire.EncodeZigZag(20),
		protowire.EncodeZigZag(-10),
		protowire.EncodeZigZag(30),
	})
	w, err := decodeWay(b)
	if err != nil {
		t.Fatal(err)
	}
	if w.ID != 42 {
		t.Fatalf("ID = %d, want 42", w.ID)
	}
	if len(w.Refs) != 3 || w.Refs[0] != 20 || w.Refs[1] != -10 || w.Refs[2] != 30 {
		t.Fatalf("Refs = %v", w.Refs)
	}
}

func TestDecodeRelationThreeMemberKinds(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 3)
	b = appendPackedVarint(b, 9, []uint64{
		protowire.EncodeZigZag(1),
		protowire.EncodeZigZag(1), // delta to 2
		protowire.EncodeZigZag(1), // delta to 3
	})
	b = appendPackedVarint(b, 10, []uint64{0, 1, 2})
	b = appendPackedVarint(b, 8, []uint64{0, 0, 0})

	r, err := decodeRelation(b)
	if err != nil {
		t.Fatal(err)
	}
	if r.ID != 3 {
		t.Fatalf("ID = %d", r.ID)
	}
	if len(r.MemIDs) != 3 || r.MemIDs[0] != 1 || r.MemIDs[1] != 1 || r.MemIDs[2] != 1 {
		t.Fatalf("MemIDs = %v", r.MemIDs)
	}
	wantTypes := []MemberType{MemberNode, MemberWay, MemberRel}
	for i, want := range wantTypes {
		if r.Types[i] != want {
			t.Fatalf("Types[%d] = %v, want %v", i, r.Types[i], want)
		}
	}
}

func TestDecodeHeaderBlockRequiredFeatures(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("OsmSchema-V0.6"))
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("DenseNodes"))

	hb, err := DecodeHeaderBlock(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(hb.RequiredFeatures) != 2 {
		t.Fatalf("RequiredFeatures = %v", hb.RequiredFeatures)
	}
	if err := ValidateRequiredFeatures(hb); err != nil {
		t.Fatalf("ValidateRequiredFeatures: %v", err)
	}
}

func TestDecodeHeaderBlockUnsupportedFeature(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("HistoricalInformation"))

	hb, err := DecodeHeaderBlock(b)
	if err != nil {
		t.Fatal(err)
	}
	if err := ValidateRequiredFeatures(hb); err == nil {
		t.Fatalf("expected ValidateRequiredFeatures to reject HistoricalInformation")
	}
}
