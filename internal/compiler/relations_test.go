package compiler

import (
	"path/filepath"
	"testing"

	"github.com/wegman-software/osmflatgo/internal/archive"
	"github.com/wegman-software/osmflatgo/internal/osmpbf"
	"github.com/wegman-software/osmflatgo/internal/strtable"
)

func TestRelationStageResolvesForwardRelationRef(t *testing.T) {
	builder, err := archive.New(filepath.Join(t.TempDir(), "out"), false)
	if err != nil {
		t.Fatalf("archive.New: %v", err)
	}
	interner := strtable.New()
	tagSer := NewTagSerializer(interner, builder.Tags(), builder.TagsIndex())
	stage := NewRelationStage(builder, interner, tagSer, nodeIDsFixture(), nodeIDsFixture())

	pb := osmpbf.PrimitiveBlock{
		StringTable: osmpbf.StringTable{[]byte(""), []byte("outer")},
		Groups: []osmpbf.PrimitiveGroup{
			{
				Relations: []osmpbf.Relation{
					{
						ID:       500,
						RolesSID: []int32{1},
						MemIDs:   []int64{600}, // relA -> relB, forward reference
						Types:    []osmpbf.MemberType{osmpbf.MemberRel},
					},
					{
						ID: 600, // relB, discovered after relA but before relA's body is emitted
					},
				},
			},
		},
	}

	stage.DiscoverIDs(pb)
	stage.FinalizeDiscovery()

	if err := stage.ProcessBlock(pb); err != nil {
		t.Fatalf("ProcessBlock: %v", err)
	}

	if stage.Stats().NumUnresolvedRelationRefs != 0 {
		t.Fatalf("expected forward relation ref to resolve, got %d unresolved", stage.Stats().NumUnresolvedRelationRefs)
	}
	if builder.Relations().Count() != 2 {
		t.Fatalf("expected 2 relations, got %d", builder.Relations().Count())
	}
}

func TestRelationStageCountsUnresolvedMemberKinds(t *testing.T) {
	builder, err := archive.New(filepath.Join(t.TempDir(), "out"), false)
	if err != nil {
		t.Fatalf("archive.New: %v", err)
	}
	interner := strtable.New()
	tagSer := NewTagSerializer(interner, builder.Tags(), builder.TagsIndex())
	stage := NewRelationStage(builder, interner, tagSer, nodeIDsFixture(), nodeIDsFixture())

	pb := osmpbf.PrimitiveBlock{
		StringTable: osmpbf.StringTable{[]byte(""), []byte("outer"), []byte("inner"), []byte("from")},
		Groups: []osmpbf.PrimitiveGroup{
			{
				Relations: []osmpbf.Relation{
					{
						ID:       1,
						RolesSID: []int32{1, 2, 3},
						MemIDs:   []int64{9999, 0, 0}, // unresolved node, then unresolved way, unresolved relation
						Types:    []osmpbf.MemberType{osmpbf.MemberNode, osmpbf.MemberWay, osmpbf.MemberRel},
					},
				},
			},
		},
	}

	stage.DiscoverIDs(pb)
	stage.FinalizeDiscovery()

	if err := stage.ProcessBlock(pb); err != nil {
		t.Fatalf("ProcessBlock: %v", err)
	}
	s := stage.Stats()
	if s.NumUnresolvedNodeRefs != 1 || s.NumUnresolvedWayRefs != 1 || s.NumUnresolvedRelationRefs != 1 {
		t.Fatalf("unexpected unresolved counts: %+v", s)
	}
}
