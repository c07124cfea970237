// Package codec decodes and encodes the records stored in a dataset container.
//
// A framed record is a one byte type tag, a 4 byte big-endian payload length
// and the payload itself. The tag selects the [Codec] that understands the
// payload; the length is checked against the actual byte range so a container
// written with a different framing is reported instead of silently misread.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
)

// HeaderSize is the number of framing bytes preceding a record payload.
const HeaderSize = 5

// Built-in type tags.
const (
	TagCBOR     byte = 0x01
	TagProto    byte = 0x02
	TagCBORZstd byte = 0x11
	TagCBORLZ4  byte = 0x21
)

var (
	// ErrUnknownTag is returned when no codec is registered for a record's tag.
	ErrUnknownTag = errors.New("unknown record type tag")
	// ErrFraming is returned when a record's header does not match its length.
	ErrFraming = errors.New("malformed record frame")
	// ErrCorrupt is returned when a codec cannot decode a record payload.
	ErrCorrupt = errors.New("corrupt record payload")
	// ErrFieldMissing is returned when a decoded record lacks a requested field.
	ErrFieldMissing = errors.New("field missing from record")
)

// Fields is the decoded content of one record, keyed by field name.
type Fields map[string]any

// Bytes returns the named field as raw bytes.
func (f Fields) Bytes(name string) ([]byte, error) {
	v, ok := f[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFieldMissing, name)
	}
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		return nil, fmt.Errorf("field %q is %T, not bytes", name, v)
	}
}

// Codec encodes and decodes one record payload.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Tag is the type tag written in front of payloads produced by this codec.
	Tag() byte
	// Name is a stable human readable identifier.
	Name() string
	Encode(f Fields) ([]byte, error)
	Decode(payload []byte) (Fields, error)
}

// Frame prepends the type tag and payload length to payload.
func Frame(tag byte, payload []byte) ([]byte, error) {
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: payload of %d bytes does not fit the length header", ErrFraming, len(payload))
	}
	out := make([]byte, HeaderSize, HeaderSize+len(payload))
	out[0] = tag
	binary.BigEndian.PutUint32(out[1:HeaderSize], uint32(len(payload)))
	return append(out, payload...), nil
}

// Unframe splits a framed record into its tag and payload.
func Unframe(record []byte) (byte, []byte, error) {
	if len(record) < HeaderSize {
		return 0, nil, fmt.Errorf("%w: %d bytes is shorter than the %d byte header", ErrFraming, len(record), HeaderSize)
	}
	n := binary.BigEndian.Uint32(record[1:HeaderSize])
	if uint64(n) != uint64(len(record)-HeaderSize) {
		return 0, nil, fmt.Errorf("%w: header declares %d payload bytes, range holds %d", ErrFraming, n, len(record)-HeaderSize)
	}
	return record[0], record[HeaderSize:], nil
}

// Registry maps type tags to codecs. It is immutable once built.
type Registry struct {
	byTag  map[byte]Codec
	byName map[string]Codec
}

// NewRegistry builds a registry from codecs. Tags and names must be unique.
func NewRegistry(codecs ...Codec) (*Registry, error) {
	r := &Registry{
		byTag:  make(map[byte]Codec, len(codecs)),
		byName: make(map[string]Codec, len(codecs)),
	}
	for _, c := range codecs {
		if prev, ok := r.byTag[c.Tag()]; ok {
			return nil, fmt.Errorf("codecs %q and %q share tag 0x%02x", prev.Name(), c.Name(), c.Tag())
		}
		if _, ok := r.byName[c.Name()]; ok {
			return nil, fmt.Errorf("duplicate codec name %q", c.Name())
		}
		r.byTag[c.Tag()] = c
		r.byName[c.Name()] = c
	}
	return r, nil
}

// Default returns a registry holding every built-in codec.
func Default() *Registry {
	r, err := NewRegistry(CBOR{}, Proto{}, Zstd(CBOR{}, TagCBORZstd), LZ4(CBOR{}, TagCBORLZ4))
	if err != nil {
		panic("codec: built-in registry: " + err.Error())
	}
	return r
}

// Lookup returns the codec registered for tag.
func (r *Registry) Lookup(tag byte) (Codec, bool) {
	c, ok := r.byTag[tag]
	return c, ok
}

// ByName returns the codec registered under name.
func (r *Registry) ByName(name string) (Codec, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Names returns the registered codec names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Decode unframes record and decodes its payload with the codec for its tag.
func (r *Registry) Decode(record []byte) (Fields, error) {
	tag, payload, err := Unframe(record)
	if err != nil {
		return nil, err
	}
	c, ok := r.byTag[tag]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownTag, tag)
	}
	f, err := c.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s decode: %w", ErrCorrupt, c.Name(), err)
	}
	return f, nil
}

// Encode encodes f with c and frames the result.
func Encode(c Codec, f Fields) ([]byte, error) {
	payload, err := c.Encode(f)
	if err != nil {
		return nil, fmt.Errorf("%s encode: %w", c.Name(), err)
	}
	return Frame(c.Tag(), payload)
}
