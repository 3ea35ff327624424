package sink

import (
	"bufio"
	"context"
	"io"

	"github.com/miku/metabench/schema/meta"
	"github.com/segmentio/encoding/json"
)

// JSONL writes one JSON document per line.
type JSONL struct {
	bw  *bufio.Writer
	enc *json.Encoder
}

// NewJSONL creates a JSON lines writer.
func NewJSONL(w io.Writer) *JSONL {
	bw := bufio.NewWriter(w)
	return &JSONL{bw: bw, enc: json.NewEncoder(bw)}
}

// WriteBatch encodes all documents and flushes the buffer, so a batch is
// either written completely or reported as failed.
func (j *JSONL) WriteBatch(ctx context.Context, docs []meta.Document) error {
	for _, doc := range docs {
		if err := j.enc.Encode(doc); err != nil {
			return err
		}
	}
	return j.bw.Flush()
}
