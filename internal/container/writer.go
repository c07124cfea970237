package container

import (
	"bufio"
	"errors"
	"fmt"
	"os"
)

// Writer appends framed records to a new container file.
//
// It is used to build datasets; the inspection service never writes to a
// container.
type Writer struct {
	f   *os.File
	w   *bufio.Writer
	off uint64
}

// Create creates a new container at path. It fails if path already exists.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) //nolint:gosec // G302: containers are shared data files
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}
	return &Writer{f: f, w: bufio.NewWriterSize(f, 1<<20)}, nil
}

// Append writes record and returns the byte range it occupies.
func (w *Writer) Append(record []byte) (start, end uint64, err error) {
	if w.f == nil {
		return 0, 0, os.ErrClosed
	}
	if len(record) == 0 {
		return 0, 0, errors.New("cannot append an empty record")
	}
	if _, err := w.w.Write(record); err != nil {
		return 0, 0, fmt.Errorf("failed to append record: %w", err)
	}
	start = w.off
	w.off += uint64(len(record))
	return start, w.off, nil
}

// Size returns the number of bytes appended so far.
func (w *Writer) Size() uint64 {
	return w.off
}

// Close flushes, syncs and closes the container.
func (w *Writer) Close() error {
	if w.f == nil {
		return os.ErrClosed
	}
	f := w.f
	w.f = nil
	err := w.w.Flush()
	if err == nil {
		err = f.Sync()
	}
	return errors.Join(err, f.Close())
}
