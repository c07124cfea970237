package pack

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/maruel/dsinspect/internal/codec"
	"github.com/maruel/dsinspect/internal/dataset"
	"github.com/maruel/dsinspect/internal/inspect"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestPack(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "noto", "a.png"), "noto-a")
	writeFile(t, filepath.Join(src, "noto", "%2F.png"), "noto-slash")
	writeFile(t, filepath.Join(src, "noto", "notes.txt"), "ignored")
	writeFile(t, filepath.Join(src, "serif", "a.PNG"), "serif-a")
	writeFile(t, filepath.Join(src, "serif", "b.png"), "noto-a") // same image as noto/a.png
	writeFile(t, filepath.Join(src, "README"), "ignored")

	out := filepath.Join(t.TempDir(), "glyphs")
	st, err := Pack(context.Background(), &Options{
		Src:     src,
		Out:     out,
		Codec:   codec.LZ4(codec.CBOR{}, codec.TagCBORLZ4),
		Field:   inspect.DefaultField,
		Source:  src,
		Content: "latin",
	})
	if err != nil {
		t.Fatal(err)
	}
	if st.Records != 3 || st.Duplicates != 1 || st.Fonts != 2 || st.Bytes == 0 {
		t.Errorf("stats = %+v", st)
	}

	ds, err := dataset.Load(out, "glyphs")
	if err != nil {
		t.Fatal(err)
	}
	recs := ds.Records()
	want := []struct{ label, font, payload string }{
		{"/", "noto", "noto-slash"},
		{"a", "noto", "noto-a"},
		{"a", "serif", "serif-a"},
	}
	if len(recs) != len(want) {
		t.Fatalf("records = %+v", recs)
	}
	r := inspect.NewResolver("")
	for i, w := range want {
		if recs[i].Label != w.label || recs[i].Font != w.font {
			t.Errorf("record %d = %+v, want %+v", i, recs[i], w)
		}
		if recs[i].Hash != Hash([]byte(w.payload)) {
			t.Errorf("record %d hash = %s", i, recs[i].Hash)
		}
		got, err := r.ResolveOne(context.Background(), ds, recs[i].Hash)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != w.payload {
			t.Errorf("record %d payload = %q, want %q", i, got, w.payload)
		}
	}
	if labels := ds.Info().Labels; len(labels) != 2 || labels[0] != "/" || labels[1] != "a" {
		t.Errorf("labels = %v", labels)
	}
}

func TestPackErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := Pack(ctx, &Options{Src: filepath.Join(t.TempDir(), "missing"), Out: t.TempDir(), Codec: codec.CBOR{}, Field: "F"}); err == nil {
		t.Error("expected an error for a missing source")
	}
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "f", "%zz.png"), "x")
	out := filepath.Join(t.TempDir(), "o")
	if _, err := Pack(ctx, &Options{Src: src, Out: out, Codec: codec.CBOR{}, Field: "F"}); err == nil {
		t.Error("expected an error for an undecodable label")
	}
	for _, name := range []string{dataset.ContainerFile, dataset.MetadataFile} {
		if _, err := os.Stat(filepath.Join(out, name)); !os.IsNotExist(err) {
			t.Errorf("%s left behind: %v", name, err)
		}
	}
}

func TestHash(t *testing.T) {
	// blake3 of the empty input.
	const want = "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"
	if got := Hash(nil); got != want {
		t.Errorf("Hash(nil) = %s, want %s", got, want)
	}
}
