package compiler

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/wegman-software/osmflatgo/internal/archive"
	"github.com/wegman-software/osmflatgo/internal/logger"
	"github.com/wegman-software/osmflatgo/internal/osmpbf"
	"github.com/wegman-software/osmflatgo/internal/pbfio"
	"github.com/wegman-software/osmflatgo/internal/strtable"
)

// Config holds everything Compile needs to run one conversion.
type Config struct {
	InputPath  string
	OutputDir  string
	Threads    int
	KeepIDs    bool
}

// Compile reads the .osm.pbf file at cfg.InputPath and writes a complete
// flat archive to cfg.OutputDir, following the stage order Header ->
// Nodes -> Ways -> Relations. It returns the final Stats regardless of
// whether the run succeeded, alongside any fatal error.
func Compile(ctx context.Context, cfg Config, log *zap.Logger) (Stats, error) {
	var stats Stats

	in, err := pbfio.Open(cfg.InputPath)
	if err != nil {
		return stats, wrapInputIO(err)
	}
	defer in.Close()

	refs, err := osmpbf.BuildIndex(in.Bytes())
	if err != nil {
		return stats, wrapCorrupt(err)
	}
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].Kind != refs[j].Kind {
			return refs[i].Kind < refs[j].Kind
		}
		return refs[i].Seq < refs[j].Seq
	})

	var headerRefs, nodeRefs, wayRefs, relRefs []osmpbf.BlockRef
	for _, ref := range refs {
		switch ref.Kind {
		case osmpbf.KindHeader:
			headerRefs = append(headerRefs, ref)
		case osmpbf.KindLegacyNodes, osmpbf.KindDenseNodes:
			nodeRefs = append(nodeRefs, ref)
		case osmpbf.KindWays:
			wayRefs = append(wayRefs, ref)
		case osmpbf.KindRelations:
			relRefs = append(relRefs, ref)
		case osmpbf.KindChangesets:
			return stats, wrapCorrupt(fmt.Errorf("%w: changeset blocks are not supported", osmpbf.ErrUnsupportedFeature))
		}
	}
	if len(headerRefs) != 1 {
		return stats, wrapCorrupt(fmt.Errorf("%w: expected exactly one header block, found %d", osmpbf.ErrCorruptBlob, len(headerRefs)))
	}

	hb, err := osmpbf.ReadHeaderBlock(in.Bytes(), headerRefs[0])
	if err != nil {
		return stats, wrapCorrupt(err)
	}
	if err := osmpbf.ValidateRequiredFeatures(hb); err != nil {
		return stats, wrapCorrupt(err)
	}

	globalGranularity, err := deriveGlobalGranularity(in.Bytes(), nodeRefs)
	if err != nil {
		return stats, wrapCorrupt(err)
	}
	coordScale := int32(nanodegreesPerDegree / globalGranularity)

	builder, err := archive.New(cfg.OutputDir, cfg.KeepIDs)
	if err != nil {
		return stats, wrapOutputIO(err)
	}

	interner := strtable.New()
	tagSer := NewTagSerializer(interner, builder.Tags(), builder.TagsIndex())

	numWorkers := cfg.Threads
	if numWorkers <= 0 {
		numWorkers = 1
	}

	runErr := func() error {
		nodeLog := logger.Named("nodes")
		nodeLog.Info("stage started", zap.Int("blocks", len(nodeRefs)))
		nodeStage := NewNodeStage(builder, tagSer, globalGranularity)
		if err := ProcessOrdered(ctx, nodeRefs, numWorkers,
			func(ctx context.Context, ref osmpbf.BlockRef) (osmpbf.PrimitiveBlock, error) {
				return osmpbf.ReadPrimitiveBlock(in.Bytes(), ref)
			},
			nodeStage.ProcessBlock,
		); err != nil {
			return err
		}
		builder.Nodes().Append(archive.Node{TagFirstIdx: builder.TagsIndex().Count()})
		stats.Add(nodeStage.Stats())
		nodeIDs := nodeStage.IDs()
		nodeLog.Info("stage finished", zap.Uint64("nodes", nodeStage.Stats().NumNodes))

		wayLog := logger.Named("ways")
		wayLog.Info("stage started", zap.Int("blocks", len(wayRefs)))
		wayStage := NewWayStage(builder, tagSer, nodeIDs)
		if err := ProcessOrdered(ctx, wayRefs, numWorkers,
			func(ctx context.Context, ref osmpbf.BlockRef) (osmpbf.PrimitiveBlock, error) {
				return osmpbf.ReadPrimitiveBlock(in.Bytes(), ref)
			},
			wayStage.ProcessBlock,
		); err != nil {
			return err
		}
		builder.Ways().Append(archive.Way{TagFirstIdx: builder.TagsIndex().Count(), RefFirstIdx: builder.NodesIndex().Count()})
		stats.Add(wayStage.Stats())
		wayIDs := wayStage.IDs()
		wayLog.Info("stage finished", zap.Uint64("ways", wayStage.Stats().NumWays), zap.Uint64("unresolved_node_refs", wayStage.Stats().NumUnresolvedNodeRefs))

		relLog := logger.Named("relations")
		relLog.Info("stage started", zap.Int("blocks", len(relRefs)))
		relStage := NewRelationStage(builder, interner, tagSer, nodeIDs, wayIDs)
		for _, ref := range relRefs {
			pb, err := osmpbf.ReadPrimitiveBlock(in.Bytes(), ref)
			if err != nil {
				return err
			}
			relStage.DiscoverIDs(pb)
		}
		relStage.FinalizeDiscovery()
		if err := ProcessOrdered(ctx, relRefs, numWorkers,
			func(ctx context.Context, ref osmpbf.BlockRef) (osmpbf.PrimitiveBlock, error) {
				return osmpbf.ReadPrimitiveBlock(in.Bytes(), ref)
			},
			relStage.ProcessBlock,
		); err != nil {
			return err
		}
		builder.Relations().Append(archive.Relation{TagFirstIdx: builder.TagsIndex().Count()})
		builder.Members().Finish()
		stats.Add(relStage.Stats())
		relLog.Info("stage finished", zap.Uint64("relations", relStage.Stats().NumRelations))

		header, err := serializeHeader(hb, coordScale, interner)
		if err != nil {
			return err
		}
		overrideBBoxToEmittedNodes(&header, nodeStage.BBox())
		builder.SetHeader(header)
		builder.SetStringtable(interner.Bytes())

		if err := builder.Commit(); err != nil {
			return wrapOutputIO(err)
		}
		return nil
	}()

	if runErr != nil {
		if rmErr := builder.RemovePartial(); rmErr != nil && log != nil {
			log.Warn("failed to remove partial output directory", zap.Error(rmErr))
		}
		if _, ok := runErr.(*PipelineError); ok {
			return stats, runErr
		}
		return stats, wrapCorrupt(runErr)
	}

	if log != nil && stats.HasUnresolved() {
		log.Warn("archive contains unresolved references", zap.String("stats", stats.String()))
	}
	return stats, nil
}

// deriveGlobalGranularity decodes every node block once, purely to read its
// granularity, and returns the greatest common divisor across all of them.
// Choosing coord_scale from this gcd guarantees every block's coordinates
// rescale into the archive's fixed-point units without rounding loss. This
// mirrors the reference implementation's own pre-pass for the same reason:
// there is no way to know the safe coord_scale without having looked at
// every block's granularity first.
func deriveGlobalGranularity(data []byte, nodeRefs []osmpbf.BlockRef) (int64, error) {
	granularity := int64(0)
	for _, ref := range nodeRefs {
		pb, err := osmpbf.ReadPrimitiveBlock(data, ref)
		if err != nil {
			return 0, err
		}
		g := int64(pb.Granularity)
		if g <= 0 {
			g = 100
		}
		granularity = gcd(granularity, g)
	}
	if granularity == 0 {
		granularity = 100
	}
	return granularity, nil
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}
