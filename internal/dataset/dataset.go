package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const (
	// MetadataFile is the name of the metadata sidecar inside a dataset directory.
	MetadataFile = "metadata.json"
	// ContainerFile is the name of the record container inside a dataset directory.
	ContainerFile = "dataset.bin"
)

var (
	// ErrDatasetNotFound is returned when no dataset has the requested name.
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrRecordNotFound is returned when no record has the requested hash.
	ErrRecordNotFound = errors.New("record not found")
)

// Dataset is one discovered dataset: a container of records and the metadata
// indexing it.
//
// Records are immutable after Load and can be read without locking. The flag
// sets are guarded by mu; every mutation holds the write lock until the new
// metadata is on disk.
type Dataset struct {
	Name          string
	Path          string
	MetadataPath  string
	ContainerPath string

	source  string
	content string
	labels  []string
	records []Record
	extra   map[string]json.RawMessage

	mu              sync.RWMutex
	invalidRecords  *flagSet
	invalidFonts    *flagSet
	completedLabels *flagSet
}

// Info is a snapshot of the dataset level metadata.
type Info struct {
	Source          string
	Content         string
	Labels          []string
	InvalidRecords  []string
	InvalidFonts    []string
	CompletedLabels []string
}

// Load loads the dataset stored in dir. Both the metadata file and the
// container must exist.
func Load(dir, name string) (*Dataset, error) {
	d := &Dataset{
		Name:          name,
		Path:          dir,
		MetadataPath:  filepath.Join(dir, MetadataFile),
		ContainerPath: filepath.Join(dir, ContainerFile),
	}
	st, err := os.Stat(d.ContainerPath)
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}
	if !st.Mode().IsRegular() {
		return nil, fmt.Errorf("container %s is not a regular file", d.ContainerPath)
	}
	b, err := os.ReadFile(d.MetadataPath)
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	m, err := ParseMetadata(b)
	if err != nil {
		return nil, err
	}
	d.source = m.Source
	d.content = m.Content
	d.labels = m.Labels
	d.records = m.Records
	d.extra = m.extra
	d.invalidRecords = newFlagSet(m.InvalidRecords)
	d.invalidFonts = newFlagSet(m.InvalidFonts)
	d.completedLabels = newFlagSet(m.CompletedLabels)
	return d, nil
}

// Records returns the records in stored order. The slice is shared and must
// not be modified.
func (d *Dataset) Records() []Record {
	return d.records
}

// FindRecordsByLabel returns the records whose label is exactly label, in
// stored order.
func (d *Dataset) FindRecordsByLabel(label string) []Record {
	var out []Record
	for i := range d.records {
		if d.records[i].Label == label {
			out = append(out, d.records[i])
		}
	}
	return out
}

// FindRecordByHash returns the first record with the given hash.
func (d *Dataset) FindRecordByHash(hash string) (Record, error) {
	for i := range d.records {
		if d.records[i].Hash == hash {
			return d.records[i], nil
		}
	}
	return Record{}, fmt.Errorf("%w: %q in dataset %q", ErrRecordNotFound, hash, d.Name)
}

// Info returns the dataset level metadata. Labels are derived from the
// records, in first-seen order, when the metadata file does not list them.
func (d *Dataset) Info() Info {
	labels := d.labels
	if labels == nil {
		seen := map[string]struct{}{}
		labels = []string{}
		for i := range d.records {
			l := d.records[i].Label
			if _, ok := seen[l]; !ok {
				seen[l] = struct{}{}
				labels = append(labels, l)
			}
		}
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Info{
		Source:          d.source,
		Content:         d.content,
		Labels:          labels,
		InvalidRecords:  d.invalidRecords.list(),
		InvalidFonts:    d.invalidFonts.list(),
		CompletedLabels: d.completedLabels.list(),
	}
}

// IsRecordInvalid reports whether hash is flagged invalid.
func (d *Dataset) IsRecordInvalid(hash string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.invalidRecords.has(hash)
}

// MarkRecordInvalid flags hash as invalid. The hash does not need to exist.
func (d *Dataset) MarkRecordInvalid(ctx context.Context, hash string) error {
	return d.toggle(ctx, d.invalidRecords, hash, true)
}

// MarkRecordValid clears the invalid flag of hash.
func (d *Dataset) MarkRecordValid(ctx context.Context, hash string) error {
	return d.toggle(ctx, d.invalidRecords, hash, false)
}

// MarkFontInvalid flags font as invalid.
func (d *Dataset) MarkFontInvalid(ctx context.Context, font string) error {
	return d.toggle(ctx, d.invalidFonts, font, true)
}

// MarkFontValid clears the invalid flag of font.
func (d *Dataset) MarkFontValid(ctx context.Context, font string) error {
	return d.toggle(ctx, d.invalidFonts, font, false)
}

// MarkLabelCompleted flags label as fully inspected.
func (d *Dataset) MarkLabelCompleted(ctx context.Context, label string) error {
	return d.toggle(ctx, d.completedLabels, label, true)
}

// MarkLabelIncomplete clears the completed flag of label.
func (d *Dataset) MarkLabelIncomplete(ctx context.Context, label string) error {
	return d.toggle(ctx, d.completedLabels, label, false)
}

// toggle changes membership of value in set and persists the metadata, even
// when the set did not change. On failure the set is restored.
func (d *Dataset) toggle(ctx context.Context, set *flagSet, value string, add bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var undo func()
	if add {
		if set.add(value) {
			undo = func() { set.remove(value) }
		}
	} else if i := set.remove(value); i >= 0 {
		undo = func() { set.insert(i, value) }
	}
	if err := d.persistLocked(); err != nil {
		if undo != nil {
			undo()
		}
		slog.ErrorContext(ctx, "Failed to persist metadata, change rolled back", "dataset", d.Name, "err", err)
		return err
	}
	return nil
}

// metadataLocked builds the document to persist. d.mu must be held.
func (d *Dataset) metadataLocked() *Metadata {
	return &Metadata{
		Source:          d.source,
		Content:         d.content,
		Labels:          d.labels,
		Records:         d.records,
		InvalidRecords:  d.invalidRecords.list(),
		InvalidFonts:    d.invalidFonts.list(),
		CompletedLabels: d.completedLabels.list(),
		extra:           d.extra,
	}
}

func (d *Dataset) persistLocked() error {
	b, err := d.metadataLocked().Encode()
	if err != nil {
		return err
	}
	if err := writeWithBackup(d.MetadataPath, b); err != nil {
		return fmt.Errorf("failed to persist metadata of %q: %w", d.Name, err)
	}
	return nil
}
