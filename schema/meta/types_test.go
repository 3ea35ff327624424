package meta

import "testing"

func TestDocumentID(t *testing.T) {
	r := Record{ISBN: "9780306406157", Title: "Faust", Creator: "Goethe, Johann Wolfgang von"}
	a, b := DocumentID("dnb_rdf", r), DocumentID("dnb_rdf", r)
	if a != b {
		t.Fatalf("got %s and %s for the same record", a, b)
	}
	if c := DocumentID("harvard", r); c == a {
		t.Fatalf("source must be part of the id, got %s twice", a)
	}
	r.Title = "Faust II"
	if d := DocumentID("dnb_rdf", r); d == a {
		t.Fatalf("title must be part of the id, got %s twice", a)
	}
}

func TestNewDocument(t *testing.T) {
	r := Record{ISBN: "9780306406157", Title: "T", Creator: "C"}
	doc := NewDocument("dnb_rdf", r)
	if doc.Source != "dnb_rdf" || doc.ISBN != r.ISBN || doc.Title != r.Title || doc.Creator != r.Creator {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.ID != DocumentID("dnb_rdf", r) {
		t.Fatalf("got id %s, want %s", doc.ID, DocumentID("dnb_rdf", r))
	}
}
