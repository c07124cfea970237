package codec

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// maxDecompressed bounds the size of one decompressed payload.
const maxDecompressed = 64 << 20

// Compressed wraps another codec and compresses its payload.
type Compressed struct {
	inner      Codec
	tag        byte
	name       string
	compress   func([]byte) ([]byte, error)
	decompress func([]byte) ([]byte, error)
}

// Tag implements Codec.
func (c *Compressed) Tag() byte { return c.tag }

// Name implements Codec.
func (c *Compressed) Name() string { return c.name }

// Encode implements Codec.
func (c *Compressed) Encode(f Fields) ([]byte, error) {
	raw, err := c.inner.Encode(f)
	if err != nil {
		return nil, err
	}
	return c.compress(raw)
}

// Decode implements Codec.
func (c *Compressed) Decode(payload []byte) (Fields, error) {
	raw, err := c.decompress(payload)
	if err != nil {
		return nil, err
	}
	return c.inner.Decode(raw)
}

// Zstd returns inner compressed with zstandard, registered under tag.
func Zstd(inner Codec, tag byte) *Compressed {
	return &Compressed{
		inner: inner,
		tag:   tag,
		name:  inner.Name() + "+zstd",
		compress: func(b []byte) ([]byte, error) {
			enc, _ := zstdCoders()
			return enc.EncodeAll(b, nil), nil
		},
		decompress: func(b []byte) ([]byte, error) {
			_, dec := zstdCoders()
			return dec.DecodeAll(b, nil)
		},
	}
}

// zstdCoders returns process-wide coders; EncodeAll and DecodeAll are safe
// for concurrent use.
var zstdCoders = sync.OnceValues(func() (*zstd.Encoder, *zstd.Decoder) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		panic("codec: zstd encoder initialization failed: " + err.Error())
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0), zstd.WithDecoderMaxMemory(maxDecompressed))
	if err != nil {
		panic("codec: zstd decoder initialization failed: " + err.Error())
	}
	return enc, dec
})

// LZ4 returns inner compressed with the LZ4 frame format, registered under tag.
func LZ4(inner Codec, tag byte) *Compressed {
	return &Compressed{
		inner:      inner,
		tag:        tag,
		name:       inner.Name() + "+lz4",
		compress:   lz4Compress,
		decompress: lz4Decompress,
	}
}

func lz4Compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lz4Decompress(b []byte) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(lz4.NewReader(bytes.NewReader(b)), maxDecompressed+1))
	if err != nil {
		return nil, err
	}
	if len(out) > maxDecompressed {
		return nil, fmt.Errorf("lz4 payload exceeds %d bytes", maxDecompressed)
	}
	return out, nil
}
