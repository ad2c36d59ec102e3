package compiler

import (
	"github.com/wegman-software/osmflatgo/internal/archive"
	"github.com/wegman-software/osmflatgo/internal/idmap"
	"github.com/wegman-software/osmflatgo/internal/osmpbf"
	"github.com/wegman-software/osmflatgo/internal/strtable"
)

// RelationStage decodes relation blocks. Relations may reference other
// relations, including ones that appear later in the input, so their ids
// must all be known before any relation body is resolved. RelationStage
// therefore runs in two passes over the same blocks, in the same order:
// DiscoverIDs first assigns every relation a dense index, then
// ProcessBlock resolves member refs (including relation-to-relation ones)
// against the now-frozen table.
type RelationStage struct {
	builder  *archive.Builder
	interner *strtable.Interner
	tagSer   *TagSerializer
	nodeIDs  *idmap.Table
	wayIDs   *idmap.Table
	discover *idmap.Builder
	relIDs   *idmap.Table
	stats    Stats
}

// NewRelationStage returns a RelationStage. nodeIDs and wayIDs must
// already be finalized.
func NewRelationStage(builder *archive.Builder, interner *strtable.Interner, tagSer *TagSerializer, nodeIDs, wayIDs *idmap.Table) *RelationStage {
	return &RelationStage{
		builder:  builder,
		interner: interner,
		tagSer:   tagSer,
		nodeIDs:  nodeIDs,
		wayIDs:   wayIDs,
		discover: idmap.NewBuilder(),
	}
}

// DiscoverIDs registers every relation id in pb, in the exact order
// ProcessBlock will later emit their bodies in. The caller must run
// DiscoverIDs over every relation block, in input order, before calling
// FinalizeDiscovery.
func (s *RelationStage) DiscoverIDs(pb osmpbf.PrimitiveBlock) {
	for _, grp := range pb.Groups {
		for _, r := range grp.Relations {
			s.discover.Insert(uint64(r.ID))
		}
	}
}

// FinalizeDiscovery freezes the relation-id table built by DiscoverIDs.
// Must be called once, after every block has gone through DiscoverIDs and
// before any call to ProcessBlock.
func (s *RelationStage) FinalizeDiscovery() {
	s.relIDs = s.discover.Finalize()
}

// Stats returns the running relation count and unresolved member counts.
func (s *RelationStage) Stats() Stats {
	return s.stats
}

// ProcessBlock emits every relation body in pb's groups, in order. The
// blocks passed here, in this order, must match the order previously
// passed to DiscoverIDs exactly, since relation member indices are
// positions into the table FinalizeDiscovery froze.
func (s *RelationStage) ProcessBlock(pb osmpbf.PrimitiveBlock) error {
	for _, grp := range pb.Groups {
		for _, r := range grp.Relations {
			if err := s.processRelation(pb, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *RelationStage) processRelation(pb osmpbf.PrimitiveBlock, r osmpbf.Relation) error {
	pairs := tagPairsFromKV(pb.StringTable, r.Keys, r.Vals)
	tagFirst, err := s.tagSer.Serialize(pairs)
	if err != nil {
		return err
	}

	s.builder.Members().StartBlock()

	var memID int64
	for i, delta := range r.MemIDs {
		memID += delta
		roleIdx, err := s.interner.Intern(pb.StringTable[r.RolesSID[i]])
		if err != nil {
			return err
		}

		switch r.Types[i] {
		case osmpbf.MemberNode:
			idx, ok := s.nodeIDs.Find(uint64(memID))
			val := archive.InvalidIndex
			if ok {
				val = idx
			} else {
				s.stats.NumUnresolvedNodeRefs++
			}
			s.builder.Members().AppendMember(archive.VariantNodeMember, archive.NodeMember{NodeIdx: val, RoleIdx: roleIdx})
		case osmpbf.MemberWay:
			idx, ok := s.wayIDs.Find(uint64(memID))
			val := archive.InvalidIndex
			if ok {
				val = idx
			} else {
				s.stats.NumUnresolvedWayRefs++
			}
			s.builder.Members().AppendMember(archive.VariantWayMember, archive.WayMember{WayIdx: val, RoleIdx: roleIdx})
		case osmpbf.MemberRel:
			idx, ok := s.relIDs.Find(uint64(memID))
			val := archive.InvalidIndex
			if ok {
				val = idx
			} else {
				s.stats.NumUnresolvedRelationRefs++
			}
			s.builder.Members().AppendMember(archive.VariantRelationMember, archive.RelationMember{RelationIdx: val, RoleIdx: roleIdx})
		default:
			return wrapCorrupt(osmpbf.ErrCorruptBlob)
		}
	}

	relIdx := s.builder.Relations().Append(archive.Relation{TagFirstIdx: tagFirst})
	if err := checkIndexOverflow(relIdx, "relations"); err != nil {
		return err
	}
	if s.builder.KeepIDs() {
		s.builder.RelationIDs().Append(archive.IndexEntry{Value: uint64(r.ID)})
	}
	s.stats.NumRelations++
	return nil
}
