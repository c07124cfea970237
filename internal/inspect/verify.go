package inspect

import (
	"context"
	"fmt"
	"runtime"

	"github.com/maruel/dsinspect/internal/dataset"
	"golang.org/x/sync/errgroup"
)

// RecordError is a record that failed verification.
type RecordError struct {
	Hash string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %q: %v", e.Hash, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Report is the outcome of verifying one dataset.
type Report struct {
	Dataset string
	Records int
	// Size is the container size in bytes.
	Size     int64
	Failures []RecordError
}

// OK reports whether every record was readable.
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

// Verify reads and decodes every record of ds. Per record failures are
// collected in the report; the error is only set when the container cannot
// be opened or ctx is done.
func (r *Resolver) Verify(ctx context.Context, ds *dataset.Dataset) (*Report, error) {
	blob, err := r.Store.Open(ctx, ds.ContainerPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = blob.Close() }()
	records := ds.Records()
	rep := &Report{Dataset: ds.Name, Records: len(records), Size: blob.Size()}
	for i := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := r.payload(blob, &records[i]); err != nil {
			rep.Failures = append(rep.Failures, RecordError{Hash: records[i].Hash, Err: err})
		}
	}
	return rep, nil
}

// VerifyAll verifies datasets concurrently. Reports are in the same order as
// datasets.
func (r *Resolver) VerifyAll(ctx context.Context, datasets []*dataset.Dataset) ([]*Report, error) {
	reports := make([]*Report, len(datasets))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, ds := range datasets {
		eg.Go(func() error {
			rep, err := r.Verify(ctx, ds)
			if err != nil {
				return fmt.Errorf("dataset %q: %w", ds.Name, err)
			}
			reports[i] = rep
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
