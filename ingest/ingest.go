// Package ingest wires the streaming walker, the DNB record extractor and a
// batching sink into a single run over a catalog dump.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/miku/metabench/convert"
	"github.com/miku/metabench/gnd"
	"github.com/miku/metabench/sink"
	"github.com/miku/metabench/xmlstream"
	log "github.com/sirupsen/logrus"
)

// DefaultSource tags documents produced from the DNB title dump.
const DefaultSource = "dnb_rdf"

// Options for a run.
type Options struct {
	// Table resolves creator references, loaded before the run.
	Table *gnd.Table
	// Writer receives the batches.
	Writer sink.Writer
	// Source tags every document, defaults to DefaultSource.
	Source string
	// BatchSize, defaults to sink.DefaultBatchSize.
	BatchSize int
	// Async lets batch delivery overlap with parsing.
	Async bool
	// Lenient turns off strict XML parsing, e.g. to accept HTML entities.
	// The zero value parses strictly.
	Lenient bool
	// ProgressEvery logs progress every n records.
	ProgressEvery int
	Logger        log.FieldLogger
}

// Run processes a DNB RDF/XML document. The returned metrics are valid even
// if the run failed, to report how far it got.
func Run(ctx context.Context, r io.Reader, opts Options) (*xmlstream.Metrics, error) {
	if opts.Writer == nil {
		return nil, errors.New("ingest: missing writer")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	source := opts.Source
	if source == "" {
		source = DefaultSource
	}
	var (
		extractor = &convert.DNBExtractor{Table: opts.Table, Logger: logger}
		batcher   = sink.NewBatcher(opts.Writer, source,
			sink.WithSize(opts.BatchSize),
			sink.WithAsync(opts.Async),
			sink.WithLogger(logger))
		walker = xmlstream.NewWalker(convert.DNBAnchors...)
	)
	walker.Strict = !opts.Lenient
	walker.Logger = logger
	walker.ProgressEvery = opts.ProgressEvery
	walker.Metrics = xmlstream.NewMetrics()
	m, err := walker.Walk(r, func(n *xmlstream.Node) error {
		records, err := extractor.Extract(n)
		if err != nil {
			return err
		}
		for _, record := range records {
			if err := batcher.Add(ctx, record); err != nil {
				return err
			}
		}
		return nil
	})
	if cerr := batcher.Close(ctx); err == nil && cerr != nil {
		err = cerr
	}
	m.Finish()
	if err != nil {
		return m, fmt.Errorf("ingest: %w", err)
	}
	batches, docs := batcher.Stats()
	logger.WithFields(log.Fields{
		"processed": m.Processed,
		"dropped":   m.Dropped,
		"batches":   batches,
		"docs":      docs,
		"peak":      walker.Peak(),
		"elapsed":   m.Elapsed(),
	}).Info("run done")
	return m, nil
}
