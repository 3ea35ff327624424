// Package sink delivers metadata records in fixed size batches to a bulk
// writer, like an Elasticsearch index, a SQLite database or a JSON lines file.
package sink

import (
	"context"
	"fmt"
	"sync"

	"github.com/miku/metabench/schema/meta"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of documents per bulk request.
const DefaultBatchSize = 50

// Writer accepts a batch of documents as a single request. Writers should be
// idempotent on the document id, since batches may be re-sent.
type Writer interface {
	WriteBatch(ctx context.Context, docs []meta.Document) error
}

// WriterFunc adapts a function to the Writer interface.
type WriterFunc func(ctx context.Context, docs []meta.Document) error

// WriteBatch calls f.
func (f WriterFunc) WriteBatch(ctx context.Context, docs []meta.Document) error {
	return f(ctx, docs)
}

// Option configures a Batcher.
type Option func(*Batcher)

// WithSize sets the batch capacity.
func WithSize(n int) Option {
	return func(b *Batcher) {
		if n > 0 {
			b.size = n
		}
	}
}

// WithAsync lets batches be written in the background, while the caller
// keeps adding records. At most one batch is in flight at any time and
// batches are written in the order they were filled.
func WithAsync(async bool) Option {
	return func(b *Batcher) {
		b.async = async
	}
}

// WithLogger sets a logger.
func WithLogger(logger log.FieldLogger) Option {
	return func(b *Batcher) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Batcher accumulates records and flushes them to a Writer, once a batch is
// full. Callers must call Close at the end, to write a partial last batch.
// A Batcher is used by a single goroutine.
type Batcher struct {
	w      Writer
	source string
	size   int
	async  bool
	logger log.FieldLogger
	batch  []meta.Document

	g   *errgroup.Group
	mu  sync.Mutex
	err error // first failed background flush

	// touched by one flush at a time only
	numBatches int
	numDocs    int
}

// NewBatcher creates a new batcher, tagging all documents with source.
func NewBatcher(w Writer, source string, opts ...Option) *Batcher {
	b := &Batcher{
		w:      w,
		source: source,
		size:   DefaultBatchSize,
		logger: log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.batch = make([]meta.Document, 0, b.size)
	b.g = new(errgroup.Group)
	b.g.SetLimit(1)
	return b
}

// Add appends a record, flushing the batch when it is full.
func (b *Batcher) Add(ctx context.Context, r meta.Record) error {
	if err := b.failed(); err != nil {
		return err
	}
	b.batch = append(b.batch, meta.NewDocument(b.source, r))
	if len(b.batch) >= b.size {
		return b.Flush(ctx)
	}
	return nil
}

// Flush sends the current batch as one request and starts a new, empty
// batch, whatever the outcome. Flushing an empty batch does nothing.
func (b *Batcher) Flush(ctx context.Context) error {
	if err := b.failed(); err != nil {
		return err
	}
	if len(b.batch) == 0 {
		return nil
	}
	docs := b.batch
	b.batch = make([]meta.Document, 0, b.size)
	if !b.async {
		return b.send(ctx, docs)
	}
	// blocks until the previous flush is done
	b.g.Go(func() error {
		if b.failed() != nil {
			// an earlier flush failed while this one was waiting
			return nil
		}
		if err := b.send(ctx, docs); err != nil {
			b.mu.Lock()
			if b.err == nil {
				b.err = err
			}
			b.mu.Unlock()
			return err
		}
		return nil
	})
	return b.failed()
}

// Close flushes the remaining records and waits for a background flush to
// finish.
func (b *Batcher) Close(ctx context.Context) error {
	err := b.Flush(ctx)
	if werr := b.g.Wait(); err == nil {
		err = werr
	}
	return err
}

// Stats returns the number of batches and documents written successfully.
// Only valid after Close.
func (b *Batcher) Stats() (batches, docs int) {
	return b.numBatches, b.numDocs
}

func (b *Batcher) failed() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *Batcher) send(ctx context.Context, docs []meta.Document) error {
	if err := b.w.WriteBatch(ctx, docs); err != nil {
		return fmt.Errorf("sink: batch %d with %d docs: %w", b.numBatches+1, len(docs), err)
	}
	b.numBatches++
	b.numDocs += len(docs)
	b.logger.WithFields(log.Fields{
		"batch": b.numBatches,
		"size":  len(docs),
	}).Debug("flushed batch")
	return nil
}
