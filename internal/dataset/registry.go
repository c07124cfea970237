package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// Registry holds the datasets discovered at startup. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	datasets []*Dataset
	byName   map[string]*Dataset
}

// NewRegistry returns a registry over datasets, in the given order. When two
// datasets share a name the first one wins.
func NewRegistry(datasets ...*Dataset) *Registry {
	r := &Registry{byName: make(map[string]*Dataset, len(datasets))}
	for _, d := range datasets {
		if _, ok := r.byName[d.Name]; ok {
			continue
		}
		r.byName[d.Name] = d
		r.datasets = append(r.datasets, d)
	}
	return r
}

// Discover loads every dataset directory under root.
//
// A subdirectory missing either file, or whose metadata cannot be parsed, is
// skipped with a warning. Only failing to list root is an error. Metadata
// files are loaded concurrently; the result keeps directory order.
func Discover(ctx context.Context, root string) (*Registry, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets directory: %w", err)
	}
	loaded := make([]*Dataset, len(entries))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, e := range entries {
		if !isDir(root, e) {
			continue
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			d, err := Load(filepath.Join(root, e.Name()), e.Name())
			if err != nil {
				slog.WarnContext(egCtx, "Skipping dataset", "name", e.Name(), "err", err)
				return nil
			}
			loaded[i] = d
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	var datasets []*Dataset
	for _, d := range loaded {
		if d != nil {
			slog.DebugContext(ctx, "Loaded dataset", "name", d.Name, "records", len(d.records))
			datasets = append(datasets, d)
		}
	}
	return NewRegistry(datasets...), nil
}

func isDir(root string, e os.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	st, err := os.Stat(filepath.Join(root, e.Name()))
	return err == nil && st.IsDir()
}

// Get returns the dataset called name.
func (r *Registry) Get(name string) (*Dataset, error) {
	if d, ok := r.byName[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrDatasetNotFound, name)
}

// All returns the datasets in discovery order.
func (r *Registry) All() []*Dataset {
	return append([]*Dataset(nil), r.datasets...)
}

// Len returns the number of datasets.
func (r *Registry) Len() int {
	return len(r.datasets)
}

// Names returns the dataset names, those starting with a letter first.
//
// Datasets built repeatedly from the same source are kept under a name
// prefixed with a timestamp, so this puts the current ones before the older
// copies. Each group keeps discovery order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.datasets))
	var rest []string
	for _, d := range r.datasets {
		if c, _ := utf8.DecodeRuneInString(d.Name); unicode.IsLetter(c) {
			names = append(names, d.Name)
		} else {
			rest = append(rest, d.Name)
		}
	}
	return append(names, rest...)
}
