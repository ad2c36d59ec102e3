package osmpbf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// blobHeader is the decoded fileformat.proto BlobHeader message.
type blobHeader struct {
	kind     string // "OSMHeader" or "OSMData"
	dataSize int32
}

// decodeBlobHeader decodes a BlobHeader message: required string type = 1,
// optional bytes indexdata = 2, required int32 datasize = 3.
func decodeBlobHeader(b []byte) (blobHeader, error) {
	fields, err := decodeFields(b)
	if err != nil {
		return blobHeader{}, err
	}
	var h blobHeader
	for _, f := range fields {
		switch f.num {
		case 1:
			v, err := fieldBytes(f)
			if err != nil {
				return blobHeader{}, err
			}
			h.kind = string(v)
		case 3:
			v, err := fieldVarint(f)
			if err != nil {
				return blobHeader{}, err
			}
			h.dataSize = int32(v)
		}
	}
	if h.kind == "" {
		return blobHeader{}, fmt.Errorf("%w: blob header missing type", ErrCorruptBlob)
	}
	return h, nil
}

// decodedBlob is the uncompressed payload of a fileformat.proto Blob,
// ready for HeaderBlock or PrimitiveBlock decoding.
type decodedBlob struct {
	data []byte
}

var zstdDecoderPool = sync.Pool{
	New: func() any {
		d, err := zstd.NewReader(nil)
		if err != nil {
			panic(err) // zstd.NewReader(nil) only fails on invalid options, never here
		}
		return d
	},
}

// decodeBlob decodes a fileformat.proto Blob message and returns its
// uncompressed bytes, dispatching on whichever compression field was
// populated. raw_size (field 2), when present, is used to size the output
// buffer but is not otherwise trusted.
func decodeBlob(b []byte) (decodedBlob, error) {
	fields, err := decodeFields(b)
	if err != nil {
		return decodedBlob{}, err
	}

	var rawSize int
	for _, f := range fields {
		switch f.num {
		case 1: // raw
			v, err := fieldBytes(f)
			if err != nil {
				return decodedBlob{}, err
			}
			return decodedBlob{data: v}, nil
		case 2: // raw_size
			v, err := fieldVarint(f)
			if err != nil {
				return decodedBlob{}, err
			}
			rawSize = int(int32(v))
		case 3: // zlib_data
			v, err := fieldBytes(f)
			if err != nil {
				return decodedBlob{}, err
			}
			out, err := inflateZlib(v, rawSize)
			if err != nil {
				return decodedBlob{}, err
			}
			return decodedBlob{data: out}, nil
		case 4: // lzma_data
			return decodedBlob{}, fmt.Errorf("%w: lzma blob compression", ErrUnsupportedFeature)
		case 5: // OBSOLETE_bzip2_data
			return decodedBlob{}, fmt.Errorf("%w: bzip2 blob compression", ErrUnsupportedFeature)
		case 6: // lz4_data
			v, err := fieldBytes(f)
			if err != nil {
				return decodedBlob{}, err
			}
			out, err := inflateLZ4(v, rawSize)
			if err != nil {
				return decodedBlob{}, err
			}
			return decodedBlob{data: out}, nil
		case 7: // zstd_data
			v, err := fieldBytes(f)
			if err != nil {
				return decodedBlob{}, err
			}
			out, err := inflateZstd(v, rawSize)
			if err != nil {
				return decodedBlob{}, err
			}
			return decodedBlob{data: out}, nil
		}
	}
	return decodedBlob{}, fmt.Errorf("%w: blob has no payload field", ErrCorruptBlob)
}

func inflateZlib(data []byte, sizeHint int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: zlib header: %v", ErrCorruptBlob, err)
	}
	defer r.Close()
	out := make([]byte, 0, sizeHint)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, fmt.Errorf("%w: zlib inflate: %v", ErrCorruptBlob, err)
	}
	return buf.Bytes(), nil
}

func inflateLZ4(data []byte, sizeHint int) ([]byte, error) {
	if sizeHint <= 0 {
		return nil, fmt.Errorf("%w: lz4 block missing raw_size", ErrCorruptBlob)
	}
	dst := make([]byte, sizeHint)
	n, err := lz4.UncompressBlock(data, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4 decode: %v", ErrCorruptBlob, err)
	}
	return dst[:n], nil
}

func inflateZstd(data []byte, sizeHint int) ([]byte, error) {
	d := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(d)
	out, err := d.DecodeAll(data, make([]byte, 0, sizeHint))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd decode: %v", ErrCorruptBlob, err)
	}
	return out, nil
}
