// Package pbfio memory-maps the input .osm.pbf file for the BlockReader
// stage, giving every worker goroutine direct read access to block bytes
// without per-block copies or seeks.
package pbfio

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// File is a read-only memory-mapped view of an input file.
type File struct {
	f    *os.File
	mmap mmap.MMap
}

// Open maps path read-only for the lifetime of the returned File.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pbfio: open %s: %w", path, err)
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("pbfio: mmap %s: %w", path, err)
	}
	return &File{f: f, mmap: m}, nil
}

// Bytes returns the mapped file contents. The returned slice is valid
// until Close is called.
func (f *File) Bytes() []byte {
	return f.mmap
}

// Close unmaps and closes the underlying file.
func (f *File) Close() error {
	if err := f.mmap.Unmap(); err != nil {
		f.f.Close()
		return fmt.Errorf("pbfio: unmap: %w", err)
	}
	return f.f.Close()
}
