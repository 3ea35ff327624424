// Package config holds the settings of an ingest run. Values come from
// defaults, an optional YAML file and command line flags, in that order.
package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/adrg/xdg"
	"github.com/miku/metabench"
	"github.com/miku/metabench/ingest"
	"github.com/miku/metabench/sink"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Sink kinds.
const (
	SinkJSONL   = "jsonl"
	SinkElastic = "elastic"
	SinkSQLite  = "sqlite"
)

// Config for an ingest run, TODO(martin): environment variables.
type Config struct {
	// DataDir is the generic data dir for all metabench tools, used for the
	// default lookup table and database locations.
	DataDir string `yaml:"data_dir"`
	// Input is the RDF/XML dump, "-" for stdin.
	Input string `yaml:"input"`
	// Output for the jsonl sink, "-" for stdout.
	Output string `yaml:"output"`
	// LookupTable maps GND identifiers to names.
	LookupTable string `yaml:"lookup_table"`
	// Sink is one of jsonl, elastic or sqlite.
	Sink         string `yaml:"sink"`
	ElasticURL   string `yaml:"elastic_url"`
	ElasticIndex string `yaml:"elastic_index"`
	// RequestsPerSecond limits bulk requests, zero means unlimited.
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	SQLitePath        string        `yaml:"sqlite_path"`
	BatchSize         int           `yaml:"batch_size"`
	Async             bool          `yaml:"async"`
	Source            string        `yaml:"source"`
	MaxRetries        int           `yaml:"max_retries"`
	Timeout           time.Duration `yaml:"timeout"`
	Strict            bool          `yaml:"strict"`
	LogLevel          string        `yaml:"log_level"`
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	dataDir := path.Join(xdg.DataHome, metabench.AppName)
	return &Config{
		DataDir:      dataDir,
		Input:        "-",
		Output:       "-",
		LookupTable:  path.Join(dataDir, "gnd.tsv.gz"),
		Sink:         SinkJSONL,
		ElasticURL:   "http://localhost:9200",
		ElasticIndex: sink.DefaultIndex,
		SQLitePath:   path.Join(dataDir, "metadata.db"),
		BatchSize:    sink.DefaultBatchSize,
		Source:       ingest.DefaultSource,
		MaxRetries:   3,
		Timeout:      30 * time.Second,
		Strict:       true,
		LogLevel:     "info",
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default value.
func Load(filename string) (*Config, error) {
	c := Default()
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config: %s: %w", filename, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", filename, err)
	}
	return c, nil
}

// Validate checks value ranges and the sink kind.
func (c *Config) Validate() error {
	switch c.Sink {
	case SinkJSONL, SinkElastic, SinkSQLite:
	default:
		return fmt.Errorf("unknown sink: %q", c.Sink)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must not be negative, got %v", c.RequestsPerSecond)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the parsed log level, info if unset or invalid.
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
