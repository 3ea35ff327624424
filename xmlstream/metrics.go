package xmlstream

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Metrics counts the outcome of every record of a run. Metrics are not
// synchronized; they are updated by the single walking goroutine only.
type Metrics struct {
	Processed int
	Dropped   int
	// Reasons counts dropped records by reject reason.
	Reasons  map[string]int
	Started  time.Time
	Finished time.Time
}

// NewMetrics returns metrics with the clock started.
func NewMetrics() *Metrics {
	return &Metrics{
		Reasons: make(map[string]int),
		Started: time.Now(),
	}
}

// Accept records a successfully processed record.
func (m *Metrics) Accept() {
	m.Processed++
}

// Drop records a rejected record.
func (m *Metrics) Drop(reason string) {
	m.Dropped++
	if m.Reasons == nil {
		m.Reasons = make(map[string]int)
	}
	m.Reasons[reason]++
}

// Records returns the number of records seen.
func (m *Metrics) Records() int {
	return m.Processed + m.Dropped
}

// Finish stops the clock.
func (m *Metrics) Finish() {
	m.Finished = time.Now()
}

// Elapsed returns the wall clock time since start, up to Finish, if called.
func (m *Metrics) Elapsed() time.Duration {
	if m.Finished.IsZero() {
		return time.Since(m.Started)
	}
	return m.Finished.Sub(m.Started)
}

// String renders a one line summary, reasons sorted by name.
func (m *Metrics) String() string {
	var keys []string
	for k := range m.Reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, humanize.Comma(int64(m.Reasons[k]))))
	}
	return fmt.Sprintf("records=%s processed=%s dropped=%s [%s] elapsed=%s",
		humanize.Comma(int64(m.Records())),
		humanize.Comma(int64(m.Processed)),
		humanize.Comma(int64(m.Dropped)),
		strings.Join(parts, ", "),
		m.Elapsed())
}
