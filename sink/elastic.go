package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/miku/metabench/schema/meta"
	"github.com/segmentio/encoding/json"
	"github.com/sethgrid/pester"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultIndex is the index name used for catalog metadata.
const DefaultIndex = "iscc_meta"

// Doer abstracts https://pkg.go.dev/net/http#Client.Do.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Elastic writes batches to the bulk API of an Elasticsearch server.
type Elastic struct {
	Client Doer
	Server string // e.g. http://localhost:9200
	Index  string
	Logger log.FieldLogger
	// Limiter throttles bulk requests, if set.
	Limiter *rate.Limiter
}

// NewLimiter allows rps bulk requests per second, zero or less means no limit.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// NewPesterClient returns a retrying HTTP client.
func NewPesterClient(maxRetries int, timeout time.Duration) *pester.Client {
	client := pester.New()
	client.Backoff = pester.ExponentialBackoff
	client.MaxRetries = maxRetries
	client.RetryOnHTTP429 = true
	client.Timeout = timeout
	return client
}

type bulkAction struct {
	Index struct {
		Index string `json:"_index"`
		ID    string `json:"_id"`
	} `json:"index"`
}

type bulkSource struct {
	ISBN    string `json:"isbn"`
	Title   string `json:"title"`
	Creator string `json:"creator"`
	Source  string `json:"source"`
}

// bulkResponse, stripped down to what we need to detect failed items.
type bulkResponse struct {
	Took   int64 `json:"took"`
	Errors bool  `json:"errors"`
	Items  []map[string]struct {
		ID     string          `json:"_id"`
		Status int             `json:"status"`
		Error  json.RawMessage `json:"error"`
	} `json:"items"`
}

// encodeBulk renders an NDJSON bulk body, one index action per document, keyed
// by document id.
func encodeBulk(w io.Writer, index string, docs []meta.Document) error {
	enc := json.NewEncoder(w)
	for _, doc := range docs {
		var action bulkAction
		action.Index.Index = index
		action.Index.ID = doc.ID
		if err := enc.Encode(action); err != nil {
			return err
		}
		source := bulkSource{
			ISBN:    doc.ISBN,
			Title:   doc.Title,
			Creator: doc.Creator,
			Source:  doc.Source,
		}
		if err := enc.Encode(source); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends all documents in a single bulk request. The batch fails,
// if the server responds with an error status or reports failed items.
func (e *Elastic) WriteBatch(ctx context.Context, docs []meta.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if e.Limiter != nil {
		if err := e.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("elastic: %w", err)
		}
	}
	index := e.Index
	if index == "" {
		index = DefaultIndex
	}
	var buf bytes.Buffer
	if err := encodeBulk(&buf, index, docs); err != nil {
		return err
	}
	link := strings.TrimRight(e.Server, "/") + "/_bulk"
	req, err := http.NewRequestWithContext(ctx, "POST", link, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	resp, err := e.Client.Do(req)
	if err != nil {
		return fmt.Errorf("elastic: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("elastic: HTTP %d while posting to %s: %s", resp.StatusCode, link, string(b))
	}
	var br bulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return fmt.Errorf("elastic: decode bulk response: %w", err)
	}
	if !br.Errors {
		return nil
	}
	var failed int
	for _, item := range br.Items {
		for _, result := range item {
			if result.Status < 300 {
				continue
			}
			failed++
			if failed == 1 {
				e.logger().WithFields(log.Fields{
					"id":     result.ID,
					"status": result.Status,
				}).Warn(string(result.Error))
			}
		}
	}
	return fmt.Errorf("elastic: %d of %d items failed", failed, len(docs))
}

func (e *Elastic) logger() log.FieldLogger {
	if e.Logger == nil {
		return log.StandardLogger()
	}
	return e.Logger
}
