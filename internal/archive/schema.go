package archive

// Schema text is written verbatim as the trailing copy of every resource
// file and reproduced in the top-level descriptor. The field layouts here
// are frozen: changing a stride or offset changes what readers must match
// bit-for-bit, per spec.md §3.

const schemaHeader = `namespace osmflat {
struct Header {
    bbox_left : i32 : 32;
    bbox_right : i32 : 32;
    bbox_top : i32 : 32;
    bbox_bottom : i32 : 32;
    coord_scale : i32 : 32;
    writingprogram_idx : u64 : 40;
    source_idx : u64 : 40;
    replication_ts : i64 : 64;
    replication_seq : i64 : 64;
    replication_base_url_idx : u64 : 40;
    required_feature_first_idx : u64 : 40;
    required_feature_size : u64 : 40;
    optional_feature_first_idx : u64 : 40;
    optional_feature_size : u64 : 40;
}
}
`

const schemaTag = `namespace osmflat {
struct Tag {
    key_idx : u64 : 40;
    value_idx : u64 : 40;
}
}
`

const schemaNode = `namespace osmflat {
struct Node {
    lat : i32 : 32;
    lon : i32 : 32;
    @range(tags)
    tag_first_idx : u64 : 40;
}
}
`

const schemaWay = `namespace osmflat {
struct Way {
    @range(tags)
    tag_first_idx : u64 : 40;
    @range(nodes_index)
    ref_first_idx : u64 : 40;
}
}
`

const schemaRelation = `namespace osmflat {
struct Relation {
    @range(tags)
    tag_first_idx : u64 : 40;
}
}
`

const schemaNodeMember = `namespace osmflat {
struct NodeMember {
    @explicit_reference(NodeMember.node_idx, nodes)
    node_idx : u64 : 40;
    role_idx : u64 : 40;
}
}
`

const schemaWayMember = `namespace osmflat {
struct WayMember {
    @explicit_reference(WayMember.way_idx, ways)
    way_idx : u64 : 40;
    role_idx : u64 : 40;
}
}
`

const schemaRelationMember = `namespace osmflat {
struct RelationMember {
    @explicit_reference(RelationMember.relation_idx, relations)
    relation_idx : u64 : 40;
    role_idx : u64 : 40;
}
}
`

const schemaNodeIndex = `namespace osmflat {
struct NodeIndex {
    @explicit_reference(NodeIndex.value, nodes)
    value : u64 : 40;
}
}
`

const schemaTagIndex = `namespace osmflat {
struct TagIndex {
    @explicit_reference(TagIndex.value, tags)
    value : u64 : 40;
}
}
`

const schemaID = `namespace osmflat {
struct Id {
    value : u64 : 40;
}
}
`

const schemaStringtable = `namespace osmflat {
// raw_data: NUL-separated byte blob, strings addressed by byte offset.
resource stringtable : raw_data;
}
`

const schemaRelationMembersData = `namespace osmflat {
// relation_members: multivector data stream. Each entity's block is a
// sequence of (variant_tag:u8, record_bytes) pairs, variant_tag selects
// one of {0: NodeMember, 1: WayMember, 2: RelationMember}.
resource relation_members : multivector_data;
}
`

const schemaRelationMembersIndex = `namespace osmflat {
// relation_members_index: one u40 byte-offset into relation_members per
// relation, plus one trailing sentinel equal to the total data length.
@range(relation_members)
resource relation_members_index : multivector_index;
}
`

// Descriptor lists every resource in the archive with its filename and
// schema text, written once at the archive root so a reader can discover
// the full set without opening each file.
type resourceDescriptor struct {
	Name   string
	Schema string
}

var resourceDescriptors = []resourceDescriptor{
	{"header", schemaHeader},
	{"nodes", schemaNode},
	{"ways", schemaWay},
	{"relations", schemaRelation},
	{"tags", schemaTag},
	{"tags_index", schemaTagIndex},
	{"nodes_index", schemaNodeIndex},
	{"stringtable", schemaStringtable},
	{"relation_members", schemaRelationMembersData},
	{"relation_members_index", schemaRelationMembersIndex},
}

// topLevelSchema renders the descriptor committed as the archive's
// "schema" file, listing every resource and its schema text.
func topLevelSchema() string {
	out := "namespace osmflat {\n"
	for _, d := range resourceDescriptors {
		out += "// resource: " + d.Name + "\n"
	}
	out += "}\n"
	for _, d := range resourceDescriptors {
		out += d.Schema
	}
	return out
}
