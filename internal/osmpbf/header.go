package osmpbf

import "fmt"

// BBox is the decoded osmformat.proto HeaderBBox, in PBF's nanodegree
// (1e-9 degree) units regardless of the archive's own coord_scale.
type BBox struct {
	Left, Right, Top, Bottom int64
	Present                  bool
}

// HeaderBlock is the decoded osmformat.proto HeaderBlock.
type HeaderBlock struct {
	BBox                    BBox
	RequiredFeatures        []string
	OptionalFeatures        []string
	WritingProgram          string
	Source                  string
	ReplicationTimestamp    int64
	ReplicationSequence     int64
	ReplicationBaseURL      string
}

func decodeHeaderBBox(b []byte) (BBox, error) {
	fields, err := decodeFields(b)
	if err != nil {
		return BBox{}, err
	}
	bb := BBox{Present: true}
	for _, f := range fields {
		v, err := fieldVarint(f)
		if err != nil {
			return BBox{}, err
		}
		switch f.num {
		case 1:
			bb.Left = zigzag(v)
		case 2:
			bb.Right = zigzag(v)
		case 3:
			bb.Top = zigzag(v)
		case 4:
			bb.Bottom = zigzag(v)
		}
	}
	return bb, nil
}

// DecodeHeaderBlock decodes a complete osmformat.proto HeaderBlock message.
func DecodeHeaderBlock(b []byte) (HeaderBlock, error) {
	fields, err := decodeFields(b)
	if err != nil {
		return HeaderBlock{}, err
	}
	var hb HeaderBlock
	for _, f := range fields {
		switch f.num {
		case 1:
			raw, err := fieldBytes(f)
			if err != nil {
				return HeaderBlock{}, err
			}
			bb, err := decodeHeaderBBox(raw)
			if err != nil {
				return HeaderBlock{}, err
			}
			hb.BBox = bb
		case 4:
			v, err := fieldBytes(f)
			if err != nil {
				return HeaderBlock{}, err
			}
			hb.RequiredFeatures = append(hb.RequiredFeatures, string(v))
		case 5:
			v, err := fieldBytes(f)
			if err != nil {
				return HeaderBlock{}, err
			}
			hb.OptionalFeatures = append(hb.OptionalFeatures, string(v))
		case 16:
			v, err := fieldBytes(f)
			if err != nil {
				return HeaderBlock{}, err
			}
			hb.WritingProgram = string(v)
		case 17:
			v, err := fieldBytes(f)
			if err != nil {
				return HeaderBlock{}, err
			}
			hb.Source = string(v)
		case 32:
			v, err := fieldVarint(f)
			if err != nil {
				return HeaderBlock{}, err
			}
			hb.ReplicationTimestamp = int64(v)
		case 33:
			v, err := fieldVarint(f)
			if err != nil {
				return HeaderBlock{}, err
			}
			hb.ReplicationSequence = int64(v)
		case 34:
			v, err := fieldBytes(f)
			if err != nil {
				return HeaderBlock{}, err
			}
			hb.ReplicationBaseURL = string(v)
		}
	}
	return hb, nil
}

// SupportedRequiredFeature reports whether feature is one this compiler
// knows how to ingest. Anything else in required_features is a fatal
// UnsupportedFeature per spec §7.
func SupportedRequiredFeature(feature string) bool {
	switch feature {
	case "OsmSchema-V0.6", "DenseNodes":
		return true
	default:
		return false
	}
}

// ValidateRequiredFeatures returns ErrUnsupportedFeature if hb declares any
// required_features token this compiler does not implement.
func ValidateRequiredFeatures(hb HeaderBlock) error {
	for _, feat := range hb.RequiredFeatures {
		if !SupportedRequiredFeature(feat) {
			return fmt.Errorf("%w: required_features contains %q", ErrUnsupportedFeature, feat)
		}
	}
	return nil
}
