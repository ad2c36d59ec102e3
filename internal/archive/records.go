// Package archive implements the minimal flatdata-equivalent resource
// storage layer spec.md treats as an external collaborator: fixed-stride
// record encoding, length-prefixed vector files with trailing schema
// copies, the relation-member multivector, and the archive builder that
// ties every resource together and commits a top-level schema descriptor.
package archive

import "github.com/wegman-software/osmflatgo/internal/bitpack"

// InvalidIndex is the 40-bit sentinel denoting an unresolved reference.
const InvalidIndex = bitpack.InvalidIndex

// Strides, in bytes, for every fixed-stride entity in the archive. These
// are frozen for the life of the archive format: changing them changes the
// schema text and breaks any existing reader.
const (
	HeaderStride          = 71
	TagStride             = 10
	NodeStride            = 13
	WayStride             = 10
	RelationStride        = 5
	NodeMemberStride      = 10
	WayMemberStride       = 10
	RelationMemberStride  = 10
	NodeIndexStride       = 5
	TagIndexStride        = 5
	IDStride              = 5
)

// Header is the archive-level Header record, extended per SPEC_FULL.md
// §3.1 with the required/optional feature string ranges osmflatc's header
// also carries.
type Header struct {
	BBoxLeft, BBoxRight, BBoxTop, BBoxBottom int32
	CoordScale                               int32
	WritingProgramIdx                        uint64
	SourceIdx                                uint64
	ReplicationTimestamp                     int64
	ReplicationSequence                      int64
	ReplicationBaseURLIdx                    uint64
	RequiredFeatureFirstIdx                  uint64
	RequiredFeatureSize                      uint64
	OptionalFeatureFirstIdx                  uint64
	OptionalFeatureSize                      uint64
}

// Encode writes h into a freshly reserved HeaderStride-byte record.
func (h Header) Encode(w *bitpack.Writer) {
	off := w.Reserve(HeaderStride)
	w.PutI32(off+0, h.BBoxLeft)
	w.PutI32(off+4, h.BBoxRight)
	w.PutI32(off+8, h.BBoxTop)
	w.PutI32(off+12, h.BBoxBottom)
	w.PutI32(off+16, h.CoordScale)
	w.PutU40(off+20, h.WritingProgramIdx)
	w.PutU40(off+25, h.SourceIdx)
	w.PutI64(off+30, h.ReplicationTimestamp)
	w.PutI64(off+38, h.ReplicationSequence)
	w.PutU40(off+46, h.ReplicationBaseURLIdx)
	w.PutU40(off+51, h.RequiredFeatureFirstIdx)
	w.PutU40(off+56, h.RequiredFeatureSize)
	w.PutU40(off+61, h.OptionalFeatureFirstIdx)
	w.PutU40(off+66, h.OptionalFeatureSize)
}

// Tag is one (key, value) string-table reference pair.
type Tag struct {
	KeyIdx, ValueIdx uint64
}

func (t Tag) Encode(w *bitpack.Writer) {
	off := w.Reserve(TagStride)
	w.PutU40(off+0, t.KeyIdx)
	w.PutU40(off+5, t.ValueIdx)
}

// Node is one archive node record.
type Node struct {
	Lat, Lon    int32
	TagFirstIdx uint64
}

func (n Node) Encode(w *bitpack.Writer) {
	off := w.Reserve(NodeStride)
	w.PutI32(off+0, n.Lat)
	w.PutI32(off+4, n.Lon)
	w.PutU40(off+8, n.TagFirstIdx)
}

// Way is one archive way record.
type Way struct {
	TagFirstIdx uint64
	RefFirstIdx uint64
}

func (wy Way) Encode(w *bitpack.Writer) {
	off := w.Reserve(WayStride)
	w.PutU40(off+0, wy.TagFirstIdx)
	w.PutU40(off+5, wy.RefFirstIdx)
}

// Relation is one archive relation record (its members live in the
// relation_members multivector, not here).
type Relation struct {
	TagFirstIdx uint64
}

func (r Relation) Encode(w *bitpack.Writer) {
	off := w.Reserve(RelationStride)
	w.PutU40(off+0, r.TagFirstIdx)
}

// NodeMember, WayMember, RelationMember are the three relation-member
// variant records, each carrying a target index and a role string index.
type NodeMember struct{ NodeIdx, RoleIdx uint64 }
type WayMember struct{ WayIdx, RoleIdx uint64 }
type RelationMember struct{ RelationIdx, RoleIdx uint64 }

func (m NodeMember) Encode(w *bitpack.Writer) {
	off := w.Reserve(NodeMemberStride)
	w.PutU40(off+0, m.NodeIdx)
	w.PutU40(off+5, m.RoleIdx)
}

func (m WayMember) Encode(w *bitpack.Writer) {
	off := w.Reserve(WayMemberStride)
	w.PutU40(off+0, m.WayIdx)
	w.PutU40(off+5, m.RoleIdx)
}

func (m RelationMember) Encode(w *bitpack.Writer) {
	off := w.Reserve(RelationMemberStride)
	w.PutU40(off+0, m.RelationIdx)
	w.PutU40(off+5, m.RoleIdx)
}

// IndexEntry is the shared shape of NodeIndex, TagIndex, and Id records:
// a single 40-bit value.
type IndexEntry struct{ Value uint64 }

func (e IndexEntry) Encode(w *bitpack.Writer) {
	off := w.Reserve(NodeIndexStride)
	w.PutU40(off+0, e.Value)
}

// MemberVariant tags which of the three member kinds a multivector record
// holds, stored as a single leading byte ahead of the record bytes.
type MemberVariant byte

const (
	VariantNodeMember     MemberVariant = 0
	VariantWayMember      MemberVariant = 1
	VariantRelationMember MemberVariant = 2
)
