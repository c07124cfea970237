// Package inspect resolves record hashes to payloads.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maruel/dsinspect/internal/codec"
	"github.com/maruel/dsinspect/internal/container"
	"github.com/maruel/dsinspect/internal/dataset"
)

// DefaultField is the record field holding the image.
const DefaultField = "PNG_IMAGE"

// Resolver reads and decodes records of a dataset.
type Resolver struct {
	Store  container.Store
	Codecs *codec.Registry
	// Field is the name of the payload field; DefaultField when empty.
	Field string
}

// NewResolver returns a resolver over local containers with the default codecs.
func NewResolver(field string) *Resolver {
	return &Resolver{Store: container.LocalStore{}, Codecs: codec.Default(), Field: field}
}

// Image is the payload of one requested hash. Data is nil when the dataset
// has no record with that hash.
type Image struct {
	Hash string
	Data []byte
}

// Stats describes the work done by one resolution.
type Stats struct {
	// Scanned is the number of index entries visited.
	Scanned int
	// Reads is the number of container reads.
	Reads int
}

// LogValue implements slog.LogValuer.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(slog.Int("scanned", s.Scanned), slog.Int("reads", s.Reads))
}

// Resolve returns the payload of every hash, in request order. Duplicated
// hashes get the same payload.
//
// The index is scanned once in stored order and the scan stops as soon as
// every distinct hash is found, so each matching record is read at most once.
// The container is opened on the first match and not at all when nothing
// matches. Any read or decode error aborts the whole request.
func (r *Resolver) Resolve(ctx context.Context, ds *dataset.Dataset, hashes []string) ([]Image, Stats, error) {
	var stats Stats
	remaining := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		remaining[h] = struct{}{}
	}
	found := make(map[string][]byte, len(remaining))
	var blob container.Blob
	defer func() {
		if blob != nil {
			_ = blob.Close()
		}
	}()
	records := ds.Records()
	for i := range records {
		if len(remaining) == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		stats.Scanned++
		rec := &records[i]
		if _, ok := remaining[rec.Hash]; !ok {
			continue
		}
		delete(remaining, rec.Hash)
		if blob == nil {
			b, err := r.Store.Open(ctx, ds.ContainerPath)
			if err != nil {
				return nil, stats, err
			}
			blob = b
		}
		stats.Reads++
		data, err := r.payload(blob, rec)
		if err != nil {
			return nil, stats, err
		}
		found[rec.Hash] = data
	}
	out := make([]Image, len(hashes))
	for i, h := range hashes {
		out[i] = Image{Hash: h, Data: found[h]}
	}
	slog.DebugContext(ctx, "Resolved hashes", "dataset", ds.Name, "requested", len(hashes), "missing", len(remaining), "stats", stats)
	return out, stats, nil
}

// ResolveOne returns the payload of a single hash. It returns
// dataset.ErrRecordNotFound when the dataset has no such record.
func (r *Resolver) ResolveOne(ctx context.Context, ds *dataset.Dataset, hash string) ([]byte, error) {
	imgs, _, err := r.Resolve(ctx, ds, []string{hash})
	if err != nil {
		return nil, err
	}
	if imgs[0].Data == nil {
		return nil, fmt.Errorf("%w: %q in dataset %q", dataset.ErrRecordNotFound, hash, ds.Name)
	}
	return imgs[0].Data, nil
}

func (r *Resolver) payload(blob container.Blob, rec *dataset.Record) ([]byte, error) {
	raw, err := container.ReadRange(blob, rec.SeekStart, rec.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("record %q: %w", rec.Hash, err)
	}
	fields, err := r.Codecs.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("record %q: %w", rec.Hash, err)
	}
	field := r.Field
	if field == "" {
		field = DefaultField
	}
	data, err := fields.Bytes(field)
	if err != nil {
		return nil, fmt.Errorf("record %q: %w", rec.Hash, err)
	}
	if data == nil {
		// Distinguishes an empty payload from a missing record.
		data = []byte{}
	}
	return data, nil
}

// IsDataError reports whether err comes from malformed dataset content rather
// than from the caller.
func IsDataError(err error) bool {
	return errors.Is(err, container.ErrIOFault) ||
		errors.Is(err, codec.ErrFraming) ||
		errors.Is(err, codec.ErrCorrupt) ||
		errors.Is(err, codec.ErrUnknownTag) ||
		errors.Is(err, codec.ErrFieldMissing)
}
