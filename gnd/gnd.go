// Package gnd provides a read-only lookup table from GND (Gemeinsame
// Normdatei) identifiers to preferred names, used to resolve creator
// references in DNB catalog records.
package gnd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/miku/metabench/fileutil"
	"github.com/segmentio/encoding/json"
)

// ErrUnresolvedCreator is returned when a creator reference cannot be mapped
// to a name.
var ErrUnresolvedCreator = errors.New("unresolved creator")

// Prefixes of GND resource URIs.
var uriPrefixes = []string{
	"http://d-nb.info/gnd/",
	"https://d-nb.info/gnd/",
}

// Table maps GND identifiers to display names. A table is never modified
// after construction and can be shared between goroutines.
type Table struct {
	names map[string]string
}

// New creates a table from a map; the map is copied.
func New(m map[string]string) *Table {
	names := make(map[string]string, len(m))
	for k, v := range m {
		names[k] = v
	}
	return &Table{names: names}
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// Lookup returns the name for an identifier.
func (t *Table) Lookup(id string) (string, bool) {
	if t == nil {
		return "", false
	}
	name, ok := t.names[id]
	return name, ok
}

// ParseID extracts the identifier from a GND resource URI, e.g.
// http://d-nb.info/gnd/118540238 yields 118540238.
func ParseID(resource string) (string, bool) {
	resource = strings.TrimSpace(resource)
	for _, p := range uriPrefixes {
		if strings.HasPrefix(resource, p) {
			id := strings.TrimSuffix(resource[len(p):], "/")
			return id, id != ""
		}
	}
	return "", false
}

// Resolve maps a creator resource URI to a name.
func (t *Table) Resolve(resource string) (string, error) {
	id, ok := ParseID(resource)
	if !ok {
		return "", fmt.Errorf("%w: not a gnd uri: %q", ErrUnresolvedCreator, resource)
	}
	name, ok := t.Lookup(id)
	if !ok {
		return "", fmt.Errorf("%w: unknown gnd id: %s", ErrUnresolvedCreator, id)
	}
	return name, nil
}

// entry is a single line in a JSON lines table file.
type entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Load reads a table from a file. The format is chosen by extension, after
// removing an optional .gz or .zst suffix: .json is a single object mapping
// ids to names, .jsonl or .ndjson contain one {"id": ..., "name": ...} object
// per line and anything else is read as tab separated id and name.
func Load(filename string) (*Table, error) {
	rc, err := fileutil.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("gnd: %w", err)
	}
	defer rc.Close()
	base := strings.TrimSuffix(strings.TrimSuffix(filename, ".gz"), ".zst")
	var m map[string]string
	switch {
	case strings.HasSuffix(base, ".json"):
		m, err = readJSON(rc)
	case strings.HasSuffix(base, ".jsonl"), strings.HasSuffix(base, ".ndjson"):
		m, err = readJSONLines(rc)
	default:
		m, err = readTSV(rc)
	}
	if err != nil {
		return nil, fmt.Errorf("gnd: %s: %w", filename, err)
	}
	return &Table{names: m}, nil
}

func readJSON(r io.Reader) (map[string]string, error) {
	var m map[string]string
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		m = make(map[string]string)
	}
	return m, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return scanner
}

func readJSONLines(r io.Reader) (map[string]string, error) {
	var (
		m       = make(map[string]string)
		scanner = newScanner(r)
		lineNum int
	)
	for scanner.Scan() {
		lineNum++
		b := scanner.Bytes()
		if len(strings.TrimSpace(string(b))) == 0 {
			continue
		}
		var e entry
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if e.ID == "" {
			return nil, fmt.Errorf("line %d: missing id", lineNum)
		}
		m[e.ID] = e.Name
	}
	return m, scanner.Err()
}

func readTSV(r io.Reader) (map[string]string, error) {
	var (
		m       = make(map[string]string)
		scanner = newScanner(r)
		lineNum int
	)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		id, name, ok := strings.Cut(line, "\t")
		if !ok || id == "" {
			return nil, fmt.Errorf("line %d: expected id and name separated by tab", lineNum)
		}
		m[id] = name
	}
	return m, scanner.Err()
}
