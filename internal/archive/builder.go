package archive

import (
	"fmt"
	"os"
	"path/filepath"
)

// Builder owns every resource writer for one archive being compiled and
// commits them together. It is the concrete stand-in for the
// schema-checking/resource-storage collaborator spec.md §1 assumes
// exists; there is no other module in the pack that provides one, so
// this is the minimal version this repository builds for itself.
type Builder struct {
	dir string

	header      *Header
	nodes       *VectorWriter
	ways        *VectorWriter
	relations   *VectorWriter
	tags        *VectorWriter
	tagsIndex   *VectorWriter
	nodesIndex  *VectorWriter
	members     *MultiVector
	stringtable *RawWriter

	keepIDs  bool
	nodeIDs  *VectorWriter
	wayIDs   *VectorWriter
	relIDs   *VectorWriter
}

// New creates dir (which must not already exist, to avoid silently mixing
// a partial prior run's files with a new one) and returns a Builder ready
// to accept records.
func New(dir string, keepIDs bool) (*Builder, error) {
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("archive: output dir %s already exists", dir)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("archive: stat output dir %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: create output dir %s: %w", dir, err)
	}
	b := &Builder{
		dir:         dir,
		nodes:       NewVectorWriter("nodes", NodeStride),
		ways:        NewVectorWriter("ways", WayStride),
		relations:   NewVectorWriter("relations", RelationStride),
		tags:        NewVectorWriter("tags", TagStride),
		tagsIndex:   NewVectorWriter("tags_index", TagIndexStride),
		nodesIndex:  NewVectorWriter("nodes_index", NodeIndexStride),
		members:     NewMultiVector(),
		stringtable: NewRawWriter("stringtable"),
		keepIDs:     keepIDs,
	}
	if keepIDs {
		if err := os.MkdirAll(filepath.Join(dir, "ids"), 0o755); err != nil {
			return nil, fmt.Errorf("archive: create ids sub-archive dir: %w", err)
		}
		b.nodeIDs = NewVectorWriter("ids/nodes", IDStride)
		b.wayIDs = NewVectorWriter("ids/ways", IDStride)
		b.relIDs = NewVectorWriter("ids/relations", IDStride)
	}
	return b, nil
}

func (b *Builder) Nodes() *VectorWriter      { return b.nodes }
func (b *Builder) Ways() *VectorWriter       { return b.ways }
func (b *Builder) Relations() *VectorWriter  { return b.relations }
func (b *Builder) Tags() *VectorWriter       { return b.tags }
func (b *Builder) TagsIndex() *VectorWriter  { return b.tagsIndex }
func (b *Builder) NodesIndex() *VectorWriter { return b.nodesIndex }
func (b *Builder) Members() *MultiVector     { return b.members }

// KeepIDs reports whether the ids/ sub-archive is being written.
func (b *Builder) KeepIDs() bool { return b.keepIDs }

// NodeIDs, WayIDs, RelationIDs return the ids/ sub-archive vectors. They
// are nil unless the Builder was constructed with keepIDs = true.
func (b *Builder) NodeIDs() *VectorWriter { return b.nodeIDs }
func (b *Builder) WayIDs() *VectorWriter  { return b.wayIDs }
func (b *Builder) RelationIDs() *VectorWriter { return b.relIDs }

// SetHeader records the single Header record written at commit time.
func (b *Builder) SetHeader(h Header) {
	b.header = &h
}

// SetStringtable installs the finished, already-NUL-terminated string
// table bytes produced by internal/strtable.
func (b *Builder) SetStringtable(raw []byte) {
	b.stringtable.SetBytes(raw)
}

// Commit writes every resource file plus the top-level schema descriptor.
// It must be called only after every stage has finished emitting and
// every range-owning vector has received its trailing sentinel record.
func (b *Builder) Commit() error {
	if b.header == nil {
		return fmt.Errorf("archive: Commit called without SetHeader")
	}
	headerVec := NewVectorWriter("header", HeaderStride)
	headerVec.Append(*b.header)

	writes := []struct {
		w          *VectorWriter
		name       string
		schema     string
	}{
		{headerVec, "header", schemaHeader},
		{b.nodes, "nodes", schemaNode},
		{b.ways, "ways", schemaWay},
		{b.relations, "relations", schemaRelation},
		{b.tags, "tags", schemaTag},
		{b.tagsIndex, "tags_index", schemaTagIndex},
		{b.nodesIndex, "nodes_index", schemaNodeIndex},
	}
	for _, w := range writes {
		if err := w.w.Close(filepath.Join(b.dir, w.name), w.schema); err != nil {
			return err
		}
	}
	if err := b.stringtable.Close(filepath.Join(b.dir, "stringtable"), schemaStringtable); err != nil {
		return err
	}
	if err := b.members.Close(
		filepath.Join(b.dir, "relation_members"),
		filepath.Join(b.dir, "relation_members_index"),
	); err != nil {
		return err
	}
	if b.keepIDs {
		idWrites := []struct {
			w    *VectorWriter
			name string
		}{
			{b.nodeIDs, "ids/nodes"},
			{b.wayIDs, "ids/ways"},
			{b.relIDs, "ids/relations"},
		}
		for _, w := range idWrites {
			if err := w.w.Close(filepath.Join(b.dir, w.name), schemaID); err != nil {
				return err
			}
		}
	}
	schemaPath := filepath.Join(b.dir, "schema")
	if err := os.WriteFile(schemaPath, []byte(topLevelSchema()), 0o644); err != nil {
		return fmt.Errorf("archive: write schema descriptor: %w", err)
	}
	return nil
}

// RemovePartial deletes the entire output directory, used when a fatal
// error aborts the pipeline mid-compile per spec.md §7/§5.
func (b *Builder) RemovePartial() error {
	return os.RemoveAll(b.dir)
}
