package compiler

import (
	"github.com/wegman-software/osmflatgo/internal/archive"
	"github.com/wegman-software/osmflatgo/internal/osmpbf"
	"github.com/wegman-software/osmflatgo/internal/strtable"
)

// writingProgramName is interned into every archive's header regardless of
// what the input declared, identifying the compiler that produced the
// archive, matching osmflatc's unconditional
// writingprogram_idx = stringtable.insert("osmflatc") call.
const writingProgramName = "osmflatgo"

// nanodegreesPerDegree is the implicit scale of HeaderBBox's sint64
// fields in the upstream PBF format, independent of any PrimitiveBlock's
// own granularity.
const nanodegreesPerDegree = 1_000_000_000

// serializeHeader builds the archive Header record from the input's
// HeaderBlock, rescaling its bounding box from PBF's fixed 1e-9-degree
// units into the archive's chosen coord_scale.
func serializeHeader(hb osmpbf.HeaderBlock, coordScale int32, interner *strtable.Interner) (archive.Header, error) {
	h := archive.Header{CoordScale: coordScale}

	progIdx, err := interner.Intern([]byte(writingProgramName))
	if err != nil {
		return archive.Header{}, err
	}
	h.WritingProgramIdx = progIdx

	if hb.Source != "" {
		idx, err := interner.Intern([]byte(hb.Source))
		if err != nil {
			return archive.Header{}, err
		}
		h.SourceIdx = idx
	}
	if hb.ReplicationBaseURL != "" {
		idx, err := interner.Intern([]byte(hb.ReplicationBaseURL))
		if err != nil {
			return archive.Header{}, err
		}
		h.ReplicationBaseURLIdx = idx
	}
	h.ReplicationTimestamp = hb.ReplicationTimestamp
	h.ReplicationSequence = hb.ReplicationSequence

	if hb.BBox.Present {
		scale := int64(nanodegreesPerDegree) / int64(coordScale)
		h.BBoxLeft = int32(hb.BBox.Left / scale)
		h.BBoxRight = int32(hb.BBox.Right / scale)
		h.BBoxTop = int32(hb.BBox.Top / scale)
		h.BBoxBottom = int32(hb.BBox.Bottom / scale)
	}

	first, size, err := pushFeatureList(interner, hb.RequiredFeatures)
	if err != nil {
		return archive.Header{}, err
	}
	h.RequiredFeatureFirstIdx, h.RequiredFeatureSize = first, size

	first, size, err = pushFeatureList(interner, hb.OptionalFeatures)
	if err != nil {
		return archive.Header{}, err
	}
	h.OptionalFeatureFirstIdx, h.OptionalFeatureSize = first, size

	return h, nil
}

// pushFeatureList pushes each feature string contiguously (always
// appending, never deduplicating) so readers can address the whole list
// as one range even if two input feeds declared the same feature twice.
func pushFeatureList(interner *strtable.Interner, features []string) (first, size uint64, err error) {
	if len(features) == 0 {
		return 0, 0, nil
	}
	for i, feat := range features {
		idx, err := interner.Push([]byte(feat))
		if err != nil {
			return 0, 0, err
		}
		if i == 0 {
			first = idx
		}
	}
	return first, uint64(len(features)), nil
}

// overrideBBoxToEmittedNodes replaces h's bounding box with the tightest
// box covering every node actually emitted, since the input header's own
// bbox is not required to be accurate and spec.md §3 requires the
// archive's bbox to cover all emitted nodes.
func overrideBBoxToEmittedNodes(h *archive.Header, b nodeBBox) {
	if !b.any {
		return
	}
	h.BBoxLeft, h.BBoxRight = b.minLon, b.maxLon
	h.BBoxTop, h.BBoxBottom = b.maxLat, b.minLat
}
