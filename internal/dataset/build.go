package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maruel/dsinspect/internal/codec"
	"github.com/maruel/dsinspect/internal/container"
)

// Builder writes a new dataset directory.
type Builder struct {
	dir   string
	codec codec.Codec
	field string
	w     *container.Writer
	meta  Metadata
	seen  map[string]struct{}
}

// NewBuilder creates dir and an empty container in it. Records are encoded
// with c and their payload is stored under field.
func NewBuilder(dir string, c codec.Codec, field, source, content string) (*Builder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dataset directory: %w", err)
	}
	if _, err := os.Stat(filepath.Join(dir, MetadataFile)); err == nil {
		return nil, fmt.Errorf("%s already holds a dataset", dir)
	}
	w, err := container.Create(filepath.Join(dir, ContainerFile))
	if err != nil {
		return nil, err
	}
	return &Builder{
		dir:   dir,
		codec: c,
		field: field,
		w:     w,
		meta:  Metadata{Source: source, Content: content},
		seen:  map[string]struct{}{},
	}, nil
}

// Add appends one record. Extra fields are stored next to the payload.
func (b *Builder) Add(hash, label, font string, payload []byte, extra codec.Fields) (Record, error) {
	if hash == "" {
		return Record{}, errors.New("record hash is required")
	}
	if _, ok := b.seen[hash]; ok {
		return Record{}, fmt.Errorf("duplicate record hash %q", hash)
	}
	f := codec.Fields{}
	for k, v := range extra {
		f[k] = v
	}
	f[b.field] = payload
	rec, err := codec.Encode(b.codec, f)
	if err != nil {
		return Record{}, fmt.Errorf("record %q: %w", hash, err)
	}
	start, end, err := b.w.Append(rec)
	if err != nil {
		return Record{}, err
	}
	b.seen[hash] = struct{}{}
	r := Record{Hash: hash, Label: label, Font: font, SeekStart: start, SeekEnd: end}
	b.meta.Records = append(b.meta.Records, r)
	return r, nil
}

// Len returns the number of records added so far.
func (b *Builder) Len() int {
	return len(b.meta.Records)
}

// Abort discards the container written so far. No metadata is written.
func (b *Builder) Abort() error {
	err := b.w.Close()
	if err2 := os.Remove(filepath.Join(b.dir, ContainerFile)); err == nil {
		err = err2
	}
	return err
}

// Close finishes the container and writes metadata.json listing every label
// in first-seen order.
func (b *Builder) Close() error {
	if err := b.w.Close(); err != nil {
		return err
	}
	labels := newFlagSet(nil)
	for i := range b.meta.Records {
		labels.add(b.meta.Records[i].Label)
	}
	b.meta.Labels = labels.list()
	data, err := b.meta.Encode()
	if err != nil {
		return err
	}
	return writeWithBackup(filepath.Join(b.dir, MetadataFile), data)
}
