package archive

// MultiVector is the two-file (data, index) resource backing
// relation_members: a per-relation list of typed, variable-count member
// records. index[i] is the byte offset in data where relation i's member
// block begins; a trailing sentinel index entry equal to len(data) lets
// readers compute block length as index[i+1]-index[i] without a separate
// count field.
type MultiVector struct {
	data  *RawWriter
	index *VectorWriter
}

// NewMultiVector returns an empty relation_members multivector.
func NewMultiVector() *MultiVector {
	return &MultiVector{
		data:  NewRawWriter("relation_members"),
		index: NewVectorWriter("relation_members_index", NodeIndexStride),
	}
}

// StartBlock records the current data offset as the start of the next
// entity's member block. Must be called exactly once per entity, in
// entity order, before any AppendMember calls for that entity.
func (m *MultiVector) StartBlock() {
	m.index.Append(IndexEntry{Value: m.data.Len()})
}

// AppendMember writes one variant-tagged member record into the data
// stream: a single byte selecting which of NodeMember/WayMember/
// RelationMember follows, then the record's own fixed-stride bytes.
func (m *MultiVector) AppendMember(variant MemberVariant, rec Encodable) {
	tmp := NewVectorWriter("", recordStrideFor(variant))
	tmp.Append(rec)
	buf := make([]byte, 0, 1+len(tmp.bw.Bytes()))
	buf = append(buf, byte(variant))
	buf = append(buf, tmp.bw.Bytes()...)
	m.data.Append(buf)
}

func recordStrideFor(v MemberVariant) int {
	switch v {
	case VariantNodeMember:
		return NodeMemberStride
	case VariantWayMember:
		return WayMemberStride
	case VariantRelationMember:
		return RelationMemberStride
	default:
		panic("archive: unknown member variant")
	}
}

// Finish appends the trailing sentinel index entry. Must be called exactly
// once, after the last StartBlock/AppendMember call.
func (m *MultiVector) Finish() {
	m.index.Append(IndexEntry{Value: m.data.Len()})
}

// Close commits both files of the multivector.
func (m *MultiVector) Close(dataPath, indexPath string) error {
	if err := m.data.Close(dataPath, schemaRelationMembersData); err != nil {
		return err
	}
	return m.index.Close(indexPath, schemaRelationMembersIndex)
}
