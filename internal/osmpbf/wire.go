package osmpbf

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// field is one decoded (number, type, raw-value-bytes) triple from a
// protobuf message, kept in wire-encoded form until the caller asks for a
// specific interpretation. This mirrors the level at which the Rust
// original drives prost::encoding's decode_key/decode_varint directly,
// rather than materializing a full generated message type.
type field struct {
	num protowire.Number
	typ protowire.Type
	raw []byte
}

// decodeFields walks b tag by tag and returns every field in order. A
// malformed tag or field value is a corrupt blob, since the container
// framing has already been validated by this point.
func decodeFields(b []byte) ([]field, error) {
	var fields []field
	for len(b) > 0 {
		num, typ, tn := protowire.ConsumeTag(b)
		if tn < 0 {
			return nil, fmt.Errorf("%w: malformed tag", ErrCorruptBlob)
		}
		b = b[tn:]
		vn := protowire.ConsumeFieldValue(num, typ, b)
		if vn < 0 {
			return nil, fmt.Errorf("%w: malformed field value for field %d", ErrCorruptBlob, num)
		}
		fields = append(fields, field{num: num, typ: typ, raw: b[:vn]})
		b = b[vn:]
	}
	return fields, nil
}

func fieldVarint(f field) (uint64, error) {
	v, n := protowire.ConsumeVarint(f.raw)
	if n < 0 {
		return 0, fmt.Errorf("%w: malformed varint on field %d", ErrCorruptBlob, f.num)
	}
	return v, nil
}

func fieldBytes(f field) ([]byte, error) {
	v, n := protowire.ConsumeBytes(f.raw)
	if n < 0 {
		return nil, fmt.Errorf("%w: malformed bytes on field %d", ErrCorruptBlob, f.num)
	}
	return v, nil
}

// appendPacked decodes f as a packed-repeated varint field (wire type LEN
// containing concatenated varints) and appends the values to out. If f is
// instead a bare Varint-typed field (an unpacked encoder emitted it
// individually), the single value is appended.
func appendPacked(f field, out []uint64) ([]uint64, error) {
	if f.typ == protowire.VarintType {
		v, err := fieldVarint(f)
		if err != nil {
			return nil, err
		}
		return append(out, v), nil
	}
	data, err := fieldBytes(f)
	if err != nil {
		return nil, err
	}
	for len(data) > 0 {
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: malformed packed varint on field %d", ErrCorruptBlob, f.num)
		}
		out = append(out, v)
		data = data[n:]
	}
	return out, nil
}

func zigzag(v uint64) int64 {
	return protowire.DecodeZigZag(v)
}
