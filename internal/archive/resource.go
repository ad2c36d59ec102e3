package archive

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/wegman-software/osmflatgo/internal/bitpack"
)

// Encodable is anything that can be packed into a VectorWriter's backing
// buffer at the writer's current tail.
type Encodable interface {
	Encode(w *bitpack.Writer)
}

// VectorWriter accumulates fixed-stride records for one archive resource
// and commits them to a single file: an 8-byte little-endian record count,
// the packed payload, then a trailing copy of the resource's schema text.
// This is the "appendable raw-data sink with final close/commit with
// schema metadata" collaborator spec.md §1 assumes exists; we implement
// the minimal version ourselves since nothing else in the pack supplies
// one.
type VectorWriter struct {
	name   string
	stride int
	bw     *bitpack.Writer
	count  uint64
}

// NewVectorWriter returns a VectorWriter for a resource of the given fixed
// record stride.
func NewVectorWriter(name string, stride int) *VectorWriter {
	return &VectorWriter{name: name, stride: stride, bw: bitpack.NewWriter(1024, stride)}
}

// Append packs rec at the writer's tail and returns its positional index.
func (v *VectorWriter) Append(rec Encodable) uint64 {
	idx := v.count
	rec.Encode(v.bw)
	v.count++
	return idx
}

// Count returns the number of records appended so far, not counting any
// trailing sentinel the caller has not yet appended.
func (v *VectorWriter) Count() uint64 {
	return v.count
}

// Close writes the accumulated records to path as a length-prefixed vector
// followed by schemaText, matching the contract every reader of this
// format depends on.
func (v *VectorWriter) Close(path, schemaText string) error {
	return writeLengthPrefixedFile(path, v.count, v.bw.Bytes(), schemaText)
}

// RawWriter accumulates a raw, non-fixed-stride byte blob for one
// resource (the stringtable, and the multivector data file), committed
// with the same length-prefix-plus-schema-trailer contract as
// VectorWriter, except the length prefix counts bytes rather than
// records.
type RawWriter struct {
	name string
	buf  []byte
}

// NewRawWriter returns an empty RawWriter.
func NewRawWriter(name string) *RawWriter {
	return &RawWriter{name: name}
}

// Append appends b to the raw buffer and returns the byte offset at which
// it was written.
func (r *RawWriter) Append(b []byte) uint64 {
	off := uint64(len(r.buf))
	r.buf = append(r.buf, b...)
	return off
}

// SetBytes replaces the raw buffer wholesale, used by the stringtable
// resource whose content is produced as a single finished blob by
// internal/strtable rather than incrementally.
func (r *RawWriter) SetBytes(b []byte) {
	r.buf = b
}

// Len returns the current raw buffer length in bytes.
func (r *RawWriter) Len() uint64 {
	return uint64(len(r.buf))
}

// Close writes the raw buffer to path as a length-prefixed blob followed
// by schemaText.
func (r *RawWriter) Close(path, schemaText string) error {
	return writeLengthPrefixedFile(path, uint64(len(r.buf)), r.buf, schemaText)
}

func writeLengthPrefixedFile(path string, count uint64, payload []byte, schemaText string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	var lenPrefix [8]byte
	binary.LittleEndian.PutUint64(lenPrefix[:], count)
	if _, err := bw.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("archive: write %s: %w", path, err)
	}
	if _, err := bw.Write(payload); err != nil {
		return fmt.Errorf("archive: write %s: %w", path, err)
	}
	if _, err := bw.WriteString(schemaText); err != nil {
		return fmt.Errorf("archive: write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("archive: flush %s: %w", path, err)
	}
	return f.Sync()
}
