package compiler

import (
	"github.com/wegman-software/osmflatgo/internal/archive"
	"github.com/wegman-software/osmflatgo/internal/idmap"
	"github.com/wegman-software/osmflatgo/internal/osmpbf"
)

// nodeBBox tracks the tightest box covering every node NodeStage has
// emitted so far, in archive coord_scale units.
type nodeBBox struct {
	any                        bool
	minLat, maxLat, minLon, maxLon int32
}

func (b *nodeBBox) observe(lat, lon int32) {
	if !b.any {
		b.any = true
		b.minLat, b.maxLat = lat, lat
		b.minLon, b.maxLon = lon, lon
		return
	}
	if lat < b.minLat {
		b.minLat = lat
	}
	if lat > b.maxLat {
		b.maxLat = lat
	}
	if lon < b.minLon {
		b.minLon = lon
	}
	if lon > b.maxLon {
		b.maxLon = lon
	}
}

// NodeStage decodes dense and legacy node blocks, in input order, emitting
// Node records and populating the global OSM-id -> node-index map that
// WayStage and RelationStage read from once this stage completes.
type NodeStage struct {
	builder           *archive.Builder
	tagSer            *TagSerializer
	ids               *idmap.Builder
	globalGranularity int64
	bbox              nodeBBox
	stats             Stats
}

// NewNodeStage returns a NodeStage. globalGranularity is the archive's
// chosen output granularity in nanodegrees, i.e. 1e9/coord_scale.
func NewNodeStage(builder *archive.Builder, tagSer *TagSerializer, globalGranularity int64) *NodeStage {
	return &NodeStage{
		builder:           builder,
		tagSer:            tagSer,
		ids:               idmap.NewBuilder(),
		globalGranularity: globalGranularity,
	}
}

// IDs finalizes and returns the OSM node-id -> node-index table. Must be
// called only after every node block has been processed.
func (s *NodeStage) IDs() *idmap.Table {
	return s.ids.Finalize()
}

// BBox returns the bounding box of every node emitted so far.
func (s *NodeStage) BBox() nodeBBox {
	return s.bbox
}

// Stats returns the running node count.
func (s *NodeStage) Stats() Stats {
	return s.stats
}

// ProcessBlock emits every node in pb's groups, in order. Blocks must be
// passed to ProcessBlock in stable input order by the caller: this stage
// does not itself reorder anything.
func (s *NodeStage) ProcessBlock(pb osmpbf.PrimitiveBlock) error {
	for _, grp := range pb.Groups {
		if grp.Dense != nil {
			if err := s.processDense(pb, *grp.Dense); err != nil {
				return err
			}
		}
		for _, n := range grp.Nodes {
			if err := s.processLegacy(pb, n); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *NodeStage) scale(raw int64) int32 {
	return int32(raw / s.globalGranularity)
}

func (s *NodeStage) processDense(pb osmpbf.PrimitiveBlock, dn osmpbf.DenseNodes) error {
	var id, lat, lon int64
	kvPos := 0
	for i := range dn.ID {
		id += dn.ID[i]
		lat += dn.Lat[i]
		lon += dn.Lon[i]

		latNano := int64(pb.LatOffset) + int64(pb.Granularity)*lat
		lonNano := int64(pb.LonOffset) + int64(pb.Granularity)*lon
		scaledLat := s.scale(latNano)
		scaledLon := s.scale(lonNano)

		var pairs [][2][]byte
		for kvPos < len(dn.KeysVals) && dn.KeysVals[kvPos] != 0 {
			k := dn.KeysVals[kvPos]
			v := dn.KeysVals[kvPos+1]
			kvPos += 2
			pairs = append(pairs, [2][]byte{pb.StringTable[k], pb.StringTable[v]})
		}
		if kvPos < len(dn.KeysVals) {
			kvPos++ // skip the terminating 0
		}

		tagFirst, err := s.tagSer.Serialize(pairs)
		if err != nil {
			return err
		}
		nodeIdx := s.builder.Nodes().Append(archive.Node{Lat: scaledLat, Lon: scaledLon, TagFirstIdx: tagFirst})
		if err := checkIndexOverflow(nodeIdx, "nodes"); err != nil {
			return err
		}
		if s.builder.KeepIDs() {
			s.builder.NodeIDs().Append(archive.IndexEntry{Value: uint64(id)})
		}
		s.ids.Insert(uint64(id))
		s.bbox.observe(scaledLat, scaledLon)
		s.stats.NumNodes++
	}
	return nil
}

func (s *NodeStage) processLegacy(pb osmpbf.PrimitiveBlock, n osmpbf.Node) error {
	latNano := int64(pb.LatOffset) + int64(pb.Granularity)*n.Lat
	lonNano := int64(pb.LonOffset) + int64(pb.Granularity)*n.Lon
	scaledLat := s.scale(latNano)
	scaledLon := s.scale(lonNano)

	pairs := tagPairsFromKV(pb.StringTable, n.Keys, n.Vals)
	tagFirst, err := s.tagSer.Serialize(pairs)
	if err != nil {
		return err
	}
	nodeIdx := s.builder.Nodes().Append(archive.Node{Lat: scaledLat, Lon: scaledLon, TagFirstIdx: tagFirst})
	if err := checkIndexOverflow(nodeIdx, "nodes"); err != nil {
		return err
	}
	if s.builder.KeepIDs() {
		s.builder.NodeIDs().Append(archive.IndexEntry{Value: uint64(n.ID)})
	}
	s.ids.Insert(uint64(n.ID))
	s.bbox.observe(scaledLat, scaledLon)
	s.stats.NumNodes++
	return nil
}

// tagPairsFromKV pairs up a Way/Node/Relation's parallel keys[]/vals[]
// arrays (block-local string table indices) into resolved byte-string
// pairs for TagSerializer.
func tagPairsFromKV(st osmpbf.StringTable, keys, vals []uint32) [][2][]byte {
	if len(keys) == 0 {
		return nil
	}
	pairs := make([][2][]byte, len(keys))
	for i := range keys {
		pairs[i] = [2][]byte{st[keys[i]], st[vals[i]]}
	}
	return pairs
}
