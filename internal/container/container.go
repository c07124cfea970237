// Package container gives byte range access to the flat record file of a dataset.
//
// A container is the concatenation of framed records; the metadata index
// tells where each record starts and ends. The package never interprets the
// bytes it returns.
package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrIOFault is returned when a container is missing, unreadable or shorter
// than a requested range.
var ErrIOFault = errors.New("container I/O fault")

// Blob is a read-only handle to one container.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the container in bytes.
	Size() int64
}

// Store opens containers.
type Store interface {
	Open(ctx context.Context, path string) (Blob, error)
}

// LocalStore opens containers from the local file system. Every Open returns
// an independent handle and reads are positional, so concurrent readers of
// the same file never share a cursor.
type LocalStore struct{}

// Open implements Store.
func (LocalStore) Open(ctx context.Context, path string) (Blob, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from dataset discovery, not user input
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFault, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %w", ErrIOFault, err)
	}
	if !st.Mode().IsRegular() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrIOFault, path)
	}
	return &fileBlob{f: f, size: st.Size()}, nil
}

type fileBlob struct {
	f    *os.File
	size int64
}

func (b *fileBlob) ReadAt(p []byte, off int64) (int, error) { return b.f.ReadAt(p, off) }

func (b *fileBlob) Close() error { return b.f.Close() }

func (b *fileBlob) Size() int64 { return b.size }

// ReadRange reads exactly the bytes [start, end) of b.
func ReadRange(b Blob, start, end uint64) ([]byte, error) {
	if start >= end {
		return nil, fmt.Errorf("%w: empty or inverted range [%d, %d)", ErrIOFault, start, end)
	}
	if size := b.Size(); size < 0 || end > uint64(size) {
		return nil, fmt.Errorf("%w: range [%d, %d) exceeds container size %d", ErrIOFault, start, end, size)
	}
	buf := make([]byte, end-start)
	n, err := b.ReadAt(buf, int64(start)) //nolint:gosec // G115: start < end <= size, which fits int64
	if n == len(buf) {
		// ReadAt may report io.EOF alongside a complete read at the end of the file.
		return buf, nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("%w: short read at offset %d: got %d of %d bytes: %w", ErrIOFault, start, n, len(buf), err)
}

// Read opens the container at path, reads [start, end) and closes it.
func Read(ctx context.Context, s Store, path string, start, end uint64) ([]byte, error) {
	b, err := s.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Close() }()
	return ReadRange(b, start, end)
}
