package osmpbf

import (
	"encoding/binary"
	"fmt"
)

// BlockKind classifies a framed PBF block for scheduling purposes. Ordering
// matters: BlockIndex is sorted by (Kind, Seq) so that all header blocks
// come first, then legacy node blocks, then dense-node blocks, then way
// blocks, then relation blocks, each group preserving original file order.
type BlockKind int

const (
	KindHeader BlockKind = iota
	KindLegacyNodes
	KindDenseNodes
	KindWays
	KindRelations
	KindChangesets
)

func (k BlockKind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindLegacyNodes:
		return "legacy-nodes"
	case KindDenseNodes:
		return "dense-nodes"
	case KindWays:
		return "ways"
	case KindRelations:
		return "relations"
	case KindChangesets:
		return "changesets"
	default:
		return "unknown"
	}
}

// BlockRef locates one framed Blob message within the mapped input file and
// records its classification and original file sequence number.
type BlockRef struct {
	Kind   BlockKind
	Offset int64 // byte offset of the Blob message (after the BlobHeader)
	Length int64 // byte length of the Blob message
	Seq    int   // monotonic position in file order, used as a sort tiebreak
}

// BuildIndex scans data (the full mapped input file) frame by frame and
// returns one BlockRef per Blob, classified by kind but NOT yet decoded
// into node/way/relation records. Classifying an OSMData blob requires
// decompressing it once to sniff which PrimitiveGroup variant it carries;
// ReadPrimitiveBlock later decompresses and decodes it again in full. This mirrors
// the two-pass index-then-read shape of the original implementation this
// compiler is modeled on, which keeps index construction (run once,
// sequentially) independent from block decode (run many times, in
// parallel).
func BuildIndex(data []byte) ([]BlockRef, error) {
	var refs []BlockRef
	pos := int64(0)
	seq := 0
	for pos < int64(len(data)) {
		if pos+4 > int64(len(data)) {
			return nil, fmt.Errorf("%w: short blob-header length prefix at offset %d", ErrTruncatedInput, pos)
		}
		hdrLen := int64(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+hdrLen > int64(len(data)) {
			return nil, fmt.Errorf("%w: short blob header at offset %d", ErrTruncatedInput, pos)
		}
		hdr, err := decodeBlobHeader(data[pos : pos+hdrLen])
		if err != nil {
			return nil, err
		}
		pos += hdrLen

		blobLen := int64(hdr.dataSize)
		if pos+blobLen > int64(len(data)) {
			return nil, fmt.Errorf("%w: short blob body at offset %d", ErrTruncatedInput, pos)
		}
		ref := BlockRef{Offset: pos, Length: blobLen, Seq: seq}
		seq++

		switch hdr.kind {
		case "OSMHeader":
			ref.Kind = KindHeader
		case "OSMData":
			kind, err := sniffGroupKind(data[pos : pos+blobLen])
			if err != nil {
				return nil, fmt.Errorf("blob at offset %d: %w", pos, err)
			}
			ref.Kind = kind
		default:
			return nil, fmt.Errorf("%w: unknown blob header type %q", ErrCorruptBlob, hdr.kind)
		}
		refs = append(refs, ref)
		pos += blobLen
	}
	return refs, nil
}

// sniffGroupKind decompresses blob and peeks at the first PrimitiveGroup's
// populated variant field without decoding any node/way/relation payload.
func sniffGroupKind(blob []byte) (BlockKind, error) {
	decoded, err := decodeBlob(blob)
	if err != nil {
		return 0, err
	}
	fields, err := decodeFields(decoded.data)
	if err != nil {
		return 0, err
	}
	for _, f := range fields {
		if f.num != 2 { // primitivegroup
			continue
		}
		raw, err := fieldBytes(f)
		if err != nil {
			return 0, err
		}
		groupFields, err := decodeFields(raw)
		if err != nil {
			return 0, err
		}
		for _, gf := range groupFields {
			switch gf.num {
			case 1:
				return KindLegacyNodes, nil
			case 2:
				return KindDenseNodes, nil
			case 3:
				return KindWays, nil
			case 4:
				return KindRelations, nil
			case 5:
				return KindChangesets, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: OSMData blob has no primitivegroup", ErrCorruptBlob)
}

// ReadHeaderBlock decompresses and decodes the HeaderBlock at ref, which
// must have Kind == KindHeader.
func ReadHeaderBlock(data []byte, ref BlockRef) (HeaderBlock, error) {
	decoded, err := decodeBlob(data[ref.Offset : ref.Offset+ref.Length])
	if err != nil {
		return HeaderBlock{}, fmt.Errorf("blob at offset %d: %w", ref.Offset, err)
	}
	hb, err := DecodeHeaderBlock(decoded.data)
	if err != nil {
		return HeaderBlock{}, fmt.Errorf("blob at offset %d: %w", ref.Offset, err)
	}
	return hb, nil
}

// ReadPrimitiveBlock decompresses and decodes the PrimitiveBlock at ref.
func ReadPrimitiveBlock(data []byte, ref BlockRef) (PrimitiveBlock, error) {
	decoded, err := decodeBlob(data[ref.Offset : ref.Offset+ref.Length])
	if err != nil {
		return PrimitiveBlock{}, fmt.Errorf("blob at offset %d: %w", ref.Offset, err)
	}
	pb, err := DecodePrimitiveBlock(decoded.data)
	if err != nil {
		return PrimitiveBlock{}, fmt.Errorf("blob at offset %d: %w", ref.Offset, err)
	}
	return pb, nil
}
