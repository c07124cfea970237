// Package pack builds a dataset from a directory of pre-rendered glyph images
// laid out as <font>/<label>.png.
package pack

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/maruel/dsinspect/internal/codec"
	"github.com/maruel/dsinspect/internal/dataset"
	"github.com/zeebo/blake3"
)

// Options configures Pack.
type Options struct {
	// Src holds one directory per font.
	Src string
	// Out is the dataset directory to create.
	Out string
	// Codec encodes the records.
	Codec codec.Codec
	// Field is the record field holding the image.
	Field   string
	Source  string
	Content string
}

// Stats summarizes a Pack run.
type Stats struct {
	Records int
	// Duplicates is the number of images identical to an earlier one.
	Duplicates int
	Fonts      int
	Bytes      uint64
}

// Hash returns the record hash of an image: the hex blake3 digest.
func Hash(payload []byte) string {
	h := blake3.Sum256(payload)
	return hex.EncodeToString(h[:])
}

// Pack writes a dataset to o.Out. Fonts and files are visited in lexical
// order so the output is reproducible. The label is the path-unescaped file
// stem, so "%2F.png" is the label "/".
func Pack(ctx context.Context, o *Options) (*Stats, error) {
	fonts, err := os.ReadDir(o.Src)
	if err != nil {
		return nil, err
	}
	b, err := dataset.NewBuilder(o.Out, o.Codec, o.Field, o.Source, o.Content)
	if err != nil {
		return nil, err
	}
	st := &Stats{}
	if err := addFonts(ctx, b, o.Src, fonts, st); err != nil {
		_ = b.Abort()
		return nil, err
	}
	if err := b.Close(); err != nil {
		return nil, err
	}
	info, err := os.Stat(filepath.Join(o.Out, dataset.ContainerFile))
	if err != nil {
		return nil, err
	}
	st.Bytes = uint64(info.Size())
	return st, nil
}

func addFonts(ctx context.Context, b *dataset.Builder, src string, fonts []os.DirEntry, st *Stats) error {
	seen := map[string]string{}
	for _, f := range fonts {
		if !f.IsDir() {
			continue
		}
		font := f.Name()
		dir := filepath.Join(src, font)
		files, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		st.Fonts++
		for _, e := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			name := e.Name()
			if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".png") {
				continue
			}
			label, err := url.PathUnescape(strings.TrimSuffix(name, filepath.Ext(name)))
			if err != nil {
				return fmt.Errorf("%s: invalid label: %w", filepath.Join(dir, name), err)
			}
			payload, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return err
			}
			hash := Hash(payload)
			if prev, ok := seen[hash]; ok {
				slog.WarnContext(ctx, "Skipping duplicate image", "file", filepath.Join(font, name), "same_as", prev)
				st.Duplicates++
				continue
			}
			seen[hash] = filepath.Join(font, name)
			if _, err := b.Add(hash, label, font, payload, codec.Fields{"label": label, "font": font}); err != nil {
				return err
			}
			st.Records++
		}
	}
	return nil
}
