// Package meta contains the normalized book metadata record, shared by all
// catalog readers and sinks.
package meta

import (
	"strings"

	"github.com/google/uuid"
)

// namespace for document identifiers, fixed so ids are stable across runs.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/miku/metabench"))

// Record is a single accepted metadata record. ISBN is always a normalized
// ISBN-13, Title and Creator are comma joined lists.
type Record struct {
	ISBN    string `json:"isbn"`
	Title   string `json:"title"`
	Creator string `json:"creator"`
}

// Document is a record tagged with the reader that produced it, as sent to a
// bulk sink.
type Document struct {
	ID      string `json:"id"`
	ISBN    string `json:"isbn"`
	Title   string `json:"title"`
	Creator string `json:"creator"`
	Source  string `json:"source"`
}

// DocumentID returns a name based UUID over source and record content. The
// same logical record always maps to the same id, so a re-sent batch
// overwrites instead of duplicating.
func DocumentID(source string, r Record) string {
	key := strings.Join([]string{source, r.ISBN, r.Title, r.Creator}, "\x1f")
	return uuid.NewSHA1(namespace, []byte(key)).String()
}

// NewDocument wraps a record for a given source.
func NewDocument(source string, r Record) Document {
	return Document{
		ID:      DocumentID(source, r),
		ISBN:    r.ISBN,
		Title:   r.Title,
		Creator: r.Creator,
		Source:  source,
	}
}
