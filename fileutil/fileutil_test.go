package fileutil

import (
	"io"
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"plain.txt", "data.txt.gz", "data.txt.zst"} {
		t.Run(name, func(t *testing.T) {
			fn := filepath.Join(dir, name)
			w, err := Create(fn)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := io.WriteString(w, "<rdf:RDF/>\n"); err != nil {
				t.Fatal(err)
			}
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}
			r, err := Open(fn)
			if err != nil {
				t.Fatal(err)
			}
			defer r.Close()
			b, err := io.ReadAll(r)
			if err != nil {
				t.Fatal(err)
			}
			if got, want := string(b), "<rdf:RDF/>\n"; got != want {
				t.Fatalf("got %q, want %q", got, want)
			}
		})
	}
}

func TestOpenMissing(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.rdf")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
