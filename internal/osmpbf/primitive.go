package osmpbf

import "fmt"

// StringTable is a PrimitiveBlock's block-local string table: raw bytes
// indexed by position, with index 0 conventionally unused.
type StringTable [][]byte

func decodeStringTable(b []byte) (StringTable, error) {
	fields, err := decodeFields(b)
	if err != nil {
		return nil, err
	}
	var st StringTable
	for _, f := range fields {
		if f.num != 1 {
			continue
		}
		v, err := fieldBytes(f)
		if err != nil {
			return nil, err
		}
		st = append(st, v)
	}
	return st, nil
}

// DenseNodes is the decoded osmformat.proto DenseNodes message: parallel
// delta-coded id/lat/lon arrays plus a flat keys_vals run.
type DenseNodes struct {
	ID       []int64
	Lat      []int64
	Lon      []int64
	KeysVals []int32
}

func decodeDenseNodes(b []byte) (DenseNodes, error) {
	fields, err := decodeFields(b)
	if err != nil {
		return DenseNodes{}, err
	}
	var dn DenseNodes
	var idU, latU, lonU []uint64
	for _, f := range fields {
		switch f.num {
		case 1:
			idU, err = appendPacked(f, idU)
		case 8:
			latU, err = appendPacked(f, latU)
		case 9:
			lonU, err = appendPacked(f, lonU)
		case 10:
			var kv []uint64
			kv, err = appendPacked(f, nil)
			if err == nil {
				for _, v := range kv {
					dn.KeysVals = append(dn.KeysVals, int32(v))
				}
			}
		}
		if err != nil {
			return DenseNodes{}, err
		}
	}
	dn.ID = zigzagAll(idU)
	dn.Lat = zigzagAll(latU)
	dn.Lon = zigzagAll(lonU)
	if len(dn.ID) != len(dn.Lat) || len(dn.ID) != len(dn.Lon) {
		return DenseNodes{}, fmt.Errorf("%w: dense nodes id/lat/lon length mismatch", ErrCorruptBlob)
	}
	return dn, nil
}

func zigzagAll(vs []uint64) []int64 {
	out := make([]int64, len(vs))
	for i, v := range vs {
		out[i] = zigzag(v)
	}
	return out
}

// Node is a legacy (non-dense) osmformat.proto Node message.
type Node struct {
	ID   int64
	Keys []uint32
	Vals []uint32
	Lat  int64
	Lon  int64
}

func decodeNode(b []byte) (Node, error) {
	fields, err := decodeFields(b)
	if err != nil {
		return Node{}, err
	}
	var n Node
	var keysU, valsU []uint64
	for _, f := range fields {
		switch f.num {
		case 1:
			v, err := fieldVarint(f)
			if err != nil {
				return Node{}, err
			}
			n.ID = zigzag(v)
		case 2:
			keysU, err = appendPacked(f, keysU)
			if err != nil {
				return Node{}, err
			}
		case 3:
			valsU, err = appendPacked(f, valsU)
			if err != nil {
				return Node{}, err
			}
		case 8:
			v, err := fieldVarint(f)
			if err != nil {
				return Node{}, err
			}
			n.Lat = zigzag(v)
		case 9:
			v, err := fieldVarint(f)
			if err != nil {
				return Node{}, err
			}
			n.Lon = zigzag(v)
		}
	}
	n.Keys = u32s(keysU)
	n.Vals = u32s(valsU)
	return n, nil
}

func u32s(vs []uint64) []uint32 {
	out := make([]uint32, len(vs))
	for i, v := range vs {
		out[i] = uint32(v)
	}
	return out
}

// Way is a decoded osmformat.proto Way message.
type Way struct {
	ID   int64
	Keys []uint32
	Vals []uint32
	Refs []int64 // delta-coded node ids, as in the wire format
}

func decodeWay(b []byte) (Way, error) {
	fields, err := decodeFields(b)
	if err != nil {
		return Way{}, err
	}
	var w Way
	var keysU, valsU, refsU []uint64
	for _, f := range fields {
		switch f.num {
		case 1:
			v, err := fieldVarint(f)
			if err != nil {
				return Way{}, err
			}
			w.ID = int64(v)
		case 2:
			keysU, err = appendPacked(f, keysU)
			if err != nil {
				return Way{}, err
			}
		case 3:
			valsU, err = appendPacked(f, valsU)
			if err != nil {
				return Way{}, err
			}
		case 8:
			refsU, err = appendPacked(f, refsU)
			if err != nil {
				return Way{}, err
			}
		}
	}
	w.Keys = u32s(keysU)
	w.Vals = u32s(valsU)
	w.Refs = zigzagAll(refsU)
	return w, nil
}

// MemberType mirrors osmformat.proto Relation.MemberType.
type MemberType int32

const (
	MemberNode MemberType = 0
	MemberWay  MemberType = 1
	MemberRel  MemberType = 2
)

// Relation is a decoded osmformat.proto Relation message.
type Relation struct {
	ID       int64
	Keys     []uint32
	Vals     []uint32
	RolesSID []int32
	MemIDs   []int64 // delta-coded member ids
	Types    []MemberType
}

func decodeRelation(b []byte) (Relation, error) {
	fields, err := decodeFields(b)
	if err != nil {
		return Relation{}, err
	}
	var r Relation
	var keysU, valsU, rolesU, memIDsU, typesU []uint64
	for _, f := range fields {
		switch f.num {
		case 1:
			v, err := fieldVarint(f)
			if err != nil {
				return Relation{}, err
			}
			r.ID = int64(v)
		case 2:
			keysU, err = appendPacked(f, keysU)
			if err != nil {
				return Relation{}, err
			}
		case 3:
			valsU, err = appendPacked(f, valsU)
			if err != nil {
				return Relation{}, err
			}
		case 8:
			rolesU, err = appendPacked(f, rolesU)
			if err != nil {
				return Relation{}, err
			}
		case 9:
			memIDsU, err = appendPacked(f, memIDsU)
			if err != nil {
				return Relation{}, err
			}
		case 10:
			typesU, err = appendPacked(f, typesU)
			if err != nil {
				return Relation{}, err
			}
		}
	}
	r.Keys = u32s(keysU)
	r.Vals = u32s(valsU)
	r.RolesSID = make([]int32, len(rolesU))
	for i, v := range rolesU {
		r.RolesSID[i] = int32(zigzag(v))
	}
	r.MemIDs = zigzagAll(memIDsU)
	r.Types = make([]MemberType, len(typesU))
	for i, v := range typesU {
		r.Types[i] = MemberType(v)
	}
	if len(r.MemIDs) != len(r.Types) || len(r.MemIDs) != len(r.RolesSID) {
		return Relation{}, fmt.Errorf("%w: relation member array length mismatch", ErrCorruptBlob)
	}
	return r, nil
}

// PrimitiveGroup is one osmformat.proto PrimitiveGroup: exactly one of its
// variants is populated per the upstream PBF convention.
type PrimitiveGroup struct {
	Nodes     []Node
	Dense     *DenseNodes
	Ways      []Way
	Relations []Relation
	// Changesets are not modeled: the spec treats them as absent from
	// OSM extracts and they carry no archive-relevant fields.
}

// PrimitiveBlock is a fully decoded osmformat.proto PrimitiveBlock.
type PrimitiveBlock struct {
	StringTable StringTable
	Groups      []PrimitiveGroup
	Granularity int32
	LatOffset   int64
	LonOffset   int64
}

// DecodePrimitiveBlock decodes a complete osmformat.proto PrimitiveBlock.
func DecodePrimitiveBlock(b []byte) (PrimitiveBlock, error) {
	fields, err := decodeFields(b)
	if err != nil {
		return PrimitiveBlock{}, err
	}
	pb := PrimitiveBlock{Granularity: 100}
	for _, f := range fields {
		switch f.num {
		case 1:
			raw, err := fieldBytes(f)
			if err != nil {
				return PrimitiveBlock{}, err
			}
			pb.StringTable, err = decodeStringTable(raw)
			if err != nil {
				return PrimitiveBlock{}, err
			}
		case 2:
			raw, err := fieldBytes(f)
			if err != nil {
				return PrimitiveBlock{}, err
			}
			grp, err := decodePrimitiveGroup(raw)
			if err != nil {
				return PrimitiveBlock{}, err
			}
			pb.Groups = append(pb.Groups, grp)
		case 17:
			v, err := fieldVarint(f)
			if err != nil {
				return PrimitiveBlock{}, err
			}
			pb.Granularity = int32(v)
		case 19:
			v, err := fieldVarint(f)
			if err != nil {
				return PrimitiveBlock{}, err
			}
			pb.LatOffset = int64(v)
		case 20:
			v, err := fieldVarint(f)
			if err != nil {
				return PrimitiveBlock{}, err
			}
			pb.LonOffset = int64(v)
		}
	}
	return pb, nil
}

func decodePrimitiveGroup(b []byte) (PrimitiveGroup, error) {
	fields, err := decodeFields(b)
	if err != nil {
		return PrimitiveGroup{}, err
	}
	var grp PrimitiveGroup
	for _, f := range fields {
		switch f.num {
		case 1:
			raw, err := fieldBytes(f)
			if err != nil {
				return PrimitiveGroup{}, err
			}
			n, err := decodeNode(raw)
			if err != nil {
				return PrimitiveGroup{}, err
			}
			grp.Nodes = append(grp.Nodes, n)
		case 2:
			raw, err := fieldBytes(f)
			if err != nil {
				return PrimitiveGroup{}, err
			}
			dn, err := decodeDenseNodes(raw)
			if err != nil {
				return PrimitiveGroup{}, err
			}
			grp.Dense = &dn
		case 3:
			raw, err := fieldBytes(f)
			if err != nil {
				return PrimitiveGroup{}, err
			}
			w, err := decodeWay(raw)
			if err != nil {
				return PrimitiveGroup{}, err
			}
			grp.Ways = append(grp.Ways, w)
		case 4:
			raw, err := fieldBytes(f)
			if err != nil {
				return PrimitiveGroup{}, err
			}
			r, err := decodeRelation(raw)
			if err != nil {
				return PrimitiveGroup{}, err
			}
			grp.Relations = append(grp.Relations, r)
		case 5:
			return PrimitiveGroup{}, fmt.Errorf("%w: changesets", ErrUnsupportedFeature)
		}
	}
	return grp, nil
}
