package compiler

import (
	"testing"

	"github.com/wegman-software/osmflatgo/internal/archive"
	"github.com/wegman-software/osmflatgo/internal/osmpbf"
	"github.com/wegman-software/osmflatgo/internal/strtable"
)

func TestSerializeHeaderRescalesBBox(t *testing.T) {
	interner := strtable.New()
	hb := osmpbf.HeaderBlock{
		BBox: osmpbf.BBox{Present: true, Left: 7_000_000_000, Right: 8_000_000_000, Top: 53_000_000_000, Bottom: 52_000_000_000},
		RequiredFeatures: []string{"OsmSchema-V0.6", "DenseNodes"},
		Source:           "planet.openstreetmap.org",
	}
	coordScale := int32(10_000_000)

	h, err := serializeHeader(hb, coordScale, interner)
	if err != nil {
		t.Fatalf("serializeHeader: %v", err)
	}
	if h.BBoxLeft != 70_000_000 || h.BBoxRight != 80_000_000 || h.BBoxTop != 530_000_000 || h.BBoxBottom != 520_000_000 {
		t.Fatalf("unexpected rescaled bbox: %+v", h)
	}
	if h.RequiredFeatureSize != 2 {
		t.Fatalf("expected 2 required features, got %d", h.RequiredFeatureSize)
	}
	if h.WritingProgramIdx == 0 {
		t.Fatalf("expected writing program to be interned at a non-zero offset")
	}
}

func TestSerializeHeaderSkipsAbsentBBox(t *testing.T) {
	interner := strtable.New()
	hb := osmpbf.HeaderBlock{BBox: osmpbf.BBox{Present: false}}

	h, err := serializeHeader(hb, 1_000_000_000, interner)
	if err != nil {
		t.Fatalf("serializeHeader: %v", err)
	}
	if h.BBoxLeft != 0 || h.BBoxRight != 0 || h.BBoxTop != 0 || h.BBoxBottom != 0 {
		t.Fatalf("expected zero bbox when input has none, got %+v", h)
	}
}

func TestPushFeatureListEmpty(t *testing.T) {
	interner := strtable.New()
	first, size, err := pushFeatureList(interner, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first != 0 || size != 0 {
		t.Fatalf("expected (0, 0) for empty feature list, got (%d, %d)", first, size)
	}
}

func TestOverrideBBoxToEmittedNodesNoOpWhenEmpty(t *testing.T) {
	h := archive.Header{BBoxLeft: 1, BBoxRight: 2, BBoxTop: 3, BBoxBottom: 4}
	overrideBBoxToEmittedNodes(&h, nodeBBox{})
	if h.BBoxLeft != 1 || h.BBoxRight != 2 || h.BBoxTop != 3 || h.BBoxBottom != 4 {
		t.Fatalf("expected no change when no nodes observed, got %+v", h)
	}
}

func TestOverrideBBoxToEmittedNodesOverwrites(t *testing.T) {
	h := archive.Header{BBoxLeft: 1, BBoxRight: 2, BBoxTop: 3, BBoxBottom: 4}
	b := nodeBBox{any: true, minLat: -5, maxLat: 5, minLon: -10, maxLon: 10}
	overrideBBoxToEmittedNodes(&h, b)
	if h.BBoxLeft != -10 || h.BBoxRight != 10 || h.BBoxTop != 5 || h.BBoxBottom != -5 {
		t.Fatalf("unexpected bbox after override: %+v", h)
	}
}
