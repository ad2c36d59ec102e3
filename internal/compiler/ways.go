package compiler

import (
	"github.com/wegman-software/osmflatgo/internal/archive"
	"github.com/wegman-software/osmflatgo/internal/idmap"
	"github.com/wegman-software/osmflatgo/internal/osmpbf"
)

// WayStage decodes way blocks, resolving each way's node refs against the
// frozen node-id table NodeStage produced. Unresolved refs are tolerated:
// they become archive.InvalidIndex and are counted in Stats, never fatal.
type WayStage struct {
	builder  *archive.Builder
	tagSer   *TagSerializer
	nodeIDs  *idmap.Table
	ids      *idmap.Builder
	stats    Stats
}

// NewWayStage returns a WayStage. nodeIDs must already be finalized: it
// is read concurrently by nothing else once WayStage starts, since
// NodeStage has completed by then.
func NewWayStage(builder *archive.Builder, tagSer *TagSerializer, nodeIDs *idmap.Table) *WayStage {
	return &WayStage{
		builder: builder,
		tagSer:  tagSer,
		nodeIDs: nodeIDs,
		ids:     idmap.NewBuilder(),
	}
}

// IDs finalizes and returns the OSM way-id -> way-index table, consumed
// by RelationStage.
func (s *WayStage) IDs() *idmap.Table {
	return s.ids.Finalize()
}

// Stats returns the running way count and unresolved node-ref count.
func (s *WayStage) Stats() Stats {
	return s.stats
}

// ProcessBlock emits every way in pb's groups, in order.
func (s *WayStage) ProcessBlock(pb osmpbf.PrimitiveBlock) error {
	for _, grp := range pb.Groups {
		for _, w := range grp.Ways {
			if err := s.processWay(pb, w); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *WayStage) processWay(pb osmpbf.PrimitiveBlock, w osmpbf.Way) error {
	pairs := tagPairsFromKV(pb.StringTable, w.Keys, w.Vals)
	tagFirst, err := s.tagSer.Serialize(pairs)
	if err != nil {
		return err
	}

	refFirst := s.builder.NodesIndex().Count()
	var ref int64
	for _, delta := range w.Refs {
		ref += delta
		idx, ok := s.nodeIDs.Find(uint64(ref))
		val := archive.InvalidIndex
		if ok {
			val = idx
		} else {
			s.stats.NumUnresolvedNodeRefs++
		}
		s.builder.NodesIndex().Append(archive.IndexEntry{Value: val})
	}

	wayIdx := s.builder.Ways().Append(archive.Way{TagFirstIdx: tagFirst, RefFirstIdx: refFirst})
	if err := checkIndexOverflow(wayIdx, "ways"); err != nil {
		return err
	}
	if s.builder.KeepIDs() {
		s.builder.WayIDs().Append(archive.IndexEntry{Value: uint64(w.ID)})
	}
	s.ids.Insert(uint64(w.ID))
	s.stats.NumWays++
	return nil
}
