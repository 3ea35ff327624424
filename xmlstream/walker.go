// Package xmlstream walks large XML documents in a single forward pass and
// hands out logical records, one parent element at a time, while keeping
// memory bounded by the record currently processed.
//
// A record is the parent of an anchor element. For the DNB title dump the
// anchors are the bibo:isbn10 and bibo:isbn13 elements and the record is the
// enclosing rdf:Description.
package xmlstream

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

// DefaultProgressEvery is the number of records between progress messages.
const DefaultProgressEvery = 1000

// Rejection is implemented by errors that drop a single record. Any other
// error returned from a RecordFunc stops the walk.
type Rejection interface {
	error
	Reason() string
}

// RecordFunc is called once per record, in document order.
type RecordFunc func(*Node) error

// Walker streams a document and emits records.
type Walker struct {
	// Strict is passed to the XML decoder.
	Strict bool
	// Logger defaults to the standard logrus logger.
	Logger log.FieldLogger
	// ProgressEvery logs a progress line every n records, zero disables.
	ProgressEvery int
	// Metrics receives the outcome of each record; a fresh value is used,
	// if nil.
	Metrics *Metrics

	anchors map[string]bool
	arena   arena
}

// NewWalker creates a walker for the given anchor tags, in Clark notation.
func NewWalker(anchors ...string) *Walker {
	w := &Walker{
		Strict:        true,
		ProgressEvery: DefaultProgressEvery,
		anchors:       make(map[string]bool),
	}
	for _, a := range anchors {
		w.anchors[a] = true
	}
	return w
}

// Live returns the number of nodes currently held.
func (w *Walker) Live() int { return w.arena.live }

// Peak returns the largest number of nodes held at any time.
func (w *Walker) Peak() int { return w.arena.peak }

func (w *Walker) logger() log.FieldLogger {
	if w.Logger == nil {
		return log.StandardLogger()
	}
	return w.Logger
}

// boundary tracks the logical record boundaries. A boundary opens when the
// first anchor below an element is seen and completes when that element
// ends. Further anchors below an open boundary do not open it again, so a
// record with several anchors is emitted exactly once.
type boundary struct {
	open []*Node // innermost last
}

// mark registers parent as record boundary. It reports false, if parent is
// already the current open boundary.
func (b *boundary) mark(parent *Node) bool {
	if k := len(b.open); k > 0 && b.open[k-1] == parent {
		return false
	}
	parent.pending = true
	b.open = append(b.open, parent)
	return true
}

// complete reports whether n closes the current boundary and advances.
func (b *boundary) complete(n *Node) bool {
	k := len(b.open)
	if k == 0 || b.open[k-1] != n {
		return false
	}
	n.pending = false
	b.open = b.open[:k-1]
	return true
}

// Walk reads the document and calls fn for each record. A record for which fn
// returns a Rejection is counted as dropped and the walk continues; any other
// error from fn, as well as a broken document, aborts the walk.
func (w *Walker) Walk(r io.Reader, fn RecordFunc) (*Metrics, error) {
	m := w.Metrics
	if m == nil {
		m = NewMetrics()
	}
	var (
		logger = w.logger()
		dec    = xml.NewDecoder(r)
		stack  []*Node // open elements, document element first
		b      boundary
	)
	dec.Strict = w.Strict
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			line, _ := dec.InputPos()
			return m, fmt.Errorf("xmlstream: line %d: %w", line, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var parent *Node
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			line, _ := dec.InputPos()
			n := w.arena.alloc(t, parent, line)
			if parent != nil && w.anchors[n.tag] {
				b.mark(parent)
			}
			stack = append(stack, n)
		case xml.CharData:
			if len(stack) == 0 || isSpace(t) {
				continue
			}
			top := stack[len(stack)-1]
			top.text = append(top.text, t...)
		case xml.EndElement:
			if len(stack) == 0 {
				line, _ := dec.InputPos()
				return m, fmt.Errorf("xmlstream: line %d: unexpected end element %s", line, Clark(t.Name))
			}
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			switch {
			case b.complete(n):
				if err := w.emit(n, fn, m, logger); err != nil {
					return m, err
				}
				w.arena.release(n)
				w.prune(stack)
			case len(stack) == 0, len(stack) == 1 && !stack[0].pending:
				// document element or one of its direct children, nothing
				// later in the document can refer to them
				w.arena.release(n)
			}
		}
	}
	if len(stack) > 0 {
		return m, fmt.Errorf("xmlstream: unexpected end of document, %d open elements", len(stack))
	}
	return m, nil
}

// emit runs the record callback and classifies the outcome.
func (w *Walker) emit(n *Node, fn RecordFunc, m *Metrics, logger log.FieldLogger) error {
	err := fn(n)
	var rej Rejection
	switch {
	case err == nil:
		m.Accept()
	case errors.As(err, &rej):
		m.Drop(rej.Reason())
		logger.WithFields(log.Fields{
			"line":   n.line,
			"reason": rej.Reason(),
		}).Debug("dropped record")
	default:
		return fmt.Errorf("xmlstream: record at line %d: %w", n.line, err)
	}
	if w.ProgressEvery > 0 && m.Records()%w.ProgressEvery == 0 {
		logger.WithFields(log.Fields{
			"processed": m.Processed,
			"dropped":   m.Dropped,
			"live":      w.arena.live,
		}).Info("progress")
	}
	return nil
}

// prune releases the already closed children of the open ancestors, after a
// record has been completed. Ancestors that are themselves waiting to become
// a record keep their children.
func (w *Walker) prune(stack []*Node) {
	for i, a := range stack {
		if a.pending {
			continue
		}
		var open *Node
		if i+1 < len(stack) {
			open = stack[i+1]
		}
		for _, c := range append([]*Node(nil), a.children...) {
			if c != open {
				w.arena.release(c)
			}
		}
	}
}

func isSpace(b []byte) bool {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}
