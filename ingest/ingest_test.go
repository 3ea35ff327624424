package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/miku/metabench/gnd"
	"github.com/miku/metabench/schema/meta"
	"github.com/miku/metabench/sink"
	log "github.com/sirupsen/logrus"
)

const twoRecords = `<?xml version="1.0" encoding="UTF-8"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
  xmlns:dc="http://purl.org/dc/elements/1.1/"
  xmlns:dcterms="http://purl.org/dc/terms/"
  xmlns:bibo="http://purl.org/ontology/bibo/">
  <rdf:Description rdf:about="http://d-nb.info/1">
    <dc:title>Faust</dc:title>
    <dcterms:creator rdf:resource="http://d-nb.info/gnd/118540238"/>
    <bibo:isbn10>0-306-40615-2</bibo:isbn10>
  </rdf:Description>
  <rdf:Description rdf:about="http://d-nb.info/2">
    <dc:title>Anonymous</dc:title>
    <bibo:isbn13>9783161484100</bibo:isbn13>
  </rdf:Description>
</rdf:RDF>
`

func quietLogger() log.FieldLogger {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return logger
}

func testTable() *gnd.Table {
	return gnd.New(map[string]string{"118540238": "Goethe, Johann Wolfgang von"})
}

func TestRunTwoRecords(t *testing.T) {
	var got []meta.Document
	w := sink.WriterFunc(func(ctx context.Context, docs []meta.Document) error {
		got = append(got, docs...)
		return nil
	})
	m, err := Run(context.Background(), strings.NewReader(twoRecords), Options{
		Table:  testTable(),
		Writer: w,
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.Processed != 1 || m.Dropped != 1 {
		t.Fatalf("got processed=%d dropped=%d, want 1 and 1", m.Processed, m.Dropped)
	}
	if m.Reasons["missing required field"] != 1 {
		t.Fatalf("got reasons %v", m.Reasons)
	}
	want := []meta.Document{
		meta.NewDocument(DefaultSource, meta.Record{
			ISBN:    "9780306406157",
			Title:   "Faust",
			Creator: "Goethe, Johann Wolfgang von",
		}),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("documents mismatch (-want +got):\n%s", diff)
	}
}

func TestRunBatches(t *testing.T) {
	var buf strings.Builder
	buf.WriteString(`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:bibo="http://purl.org/ontology/bibo/">`)
	for i := 0; i < 123; i++ {
		fmt.Fprintf(&buf, `<rdf:Description><dc:title>Title %d</dc:title>`, i)
		buf.WriteString(`<dcterms:creator rdf:resource="http://d-nb.info/gnd/118540238"/>`)
		// same isbn twice, yields a single record
		buf.WriteString(`<bibo:isbn10>0-306-40615-2</bibo:isbn10><bibo:isbn13>9780306406157</bibo:isbn13>`)
		buf.WriteString(`</rdf:Description>`)
	}
	buf.WriteString(`</rdf:RDF>`)
	for _, async := range []bool{false, true} {
		t.Run(fmt.Sprintf("async=%v", async), func(t *testing.T) {
			var sizes []int
			w := sink.WriterFunc(func(ctx context.Context, docs []meta.Document) error {
				sizes = append(sizes, len(docs))
				return nil
			})
			m, err := Run(context.Background(), strings.NewReader(buf.String()), Options{
				Table:     testTable(),
				Writer:    w,
				BatchSize: 50,
				Async:     async,
				Logger:    quietLogger(),
			})
			if err != nil {
				t.Fatal(err)
			}
			if m.Processed != 123 {
				t.Fatalf("got %d processed, want 123", m.Processed)
			}
			if diff := cmp.Diff([]int{50, 50, 23}, sizes); diff != "" {
				t.Fatalf("batch sizes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunTruncated(t *testing.T) {
	doc := twoRecords[:strings.Index(twoRecords, `<rdf:Description rdf:about="http://d-nb.info/2">`)+10]
	var got int
	w := sink.WriterFunc(func(ctx context.Context, docs []meta.Document) error {
		got += len(docs)
		return nil
	})
	m, err := Run(context.Background(), strings.NewReader(doc), Options{
		Table:  testTable(),
		Writer: w,
		Logger: quietLogger(),
	})
	if err == nil {
		t.Fatal("expected error for truncated document")
	}
	if m.Processed != 1 {
		t.Fatalf("got %d processed, want 1", m.Processed)
	}
	if got != 1 {
		t.Fatalf("records before the failure must still be delivered, got %d", got)
	}
}

func TestRunSinkFailure(t *testing.T) {
	errDown := errors.New("index down")
	w := sink.WriterFunc(func(ctx context.Context, docs []meta.Document) error {
		return errDown
	})
	_, err := Run(context.Background(), strings.NewReader(twoRecords), Options{
		Table:     testTable(),
		Writer:    w,
		BatchSize: 1,
		Logger:    quietLogger(),
	})
	if !errors.Is(err, errDown) {
		t.Fatalf("got %v, want %v", err, errDown)
	}
}

func TestRunStrictByDefault(t *testing.T) {
	doc := strings.Replace(twoRecords, "<dc:title>Faust</dc:title>", "<dc:title>Faust&nbsp;I</dc:title>", 1)
	var got []meta.Document
	w := sink.WriterFunc(func(ctx context.Context, docs []meta.Document) error {
		got = append(got, docs...)
		return nil
	})
	if _, err := Run(context.Background(), strings.NewReader(doc), Options{
		Table:  testTable(),
		Writer: w,
		Logger: quietLogger(),
	}); err == nil {
		t.Fatal("expected error for undefined entity with default options")
	}
	got = nil
	m, err := Run(context.Background(), strings.NewReader(doc), Options{
		Table:   testTable(),
		Writer:  w,
		Lenient: true,
		Logger:  quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.Processed != 1 || len(got) != 1 {
		t.Fatalf("got processed=%d docs=%d, want 1 and 1", m.Processed, len(got))
	}
}

func TestRunMissingWriter(t *testing.T) {
	if _, err := Run(context.Background(), strings.NewReader(twoRecords), Options{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := sink.OpenSQLite(ctx, filepath.Join(t.TempDir(), "meta.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	// running twice must not duplicate rows
	for i := 0; i < 2; i++ {
		if _, err := Run(ctx, strings.NewReader(twoRecords), Options{
			Table:  testTable(),
			Writer: db,
			Logger: quietLogger(),
		}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := db.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("got %d rows, want 1", n)
	}
}

func TestRunTestdata(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "dnb-sample.rdf"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var buf bytes.Buffer
	m, err := Run(context.Background(), f, Options{
		Table: gnd.New(map[string]string{
			"118540238": "Goethe, Johann Wolfgang von",
			"118607626": "Schiller, Friedrich",
		}),
		Writer: sink.NewJSONL(&buf),
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.Processed != 3 || m.Dropped != 2 {
		t.Fatalf("got processed=%d dropped=%d, want 3 and 2: %s", m.Processed, m.Dropped, m)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d documents, want 4:\n%s", len(lines), buf.String())
	}
}
