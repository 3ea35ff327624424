package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	log "github.com/sirupsen/logrus"
)

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config must be valid: %v", err)
	}
	if c.BatchSize != 50 {
		t.Fatalf("got batch size %d, want 50", c.BatchSize)
	}
	if c.Level() != log.InfoLevel {
		t.Fatalf("got level %v", c.Level())
	}
}

func TestLoad(t *testing.T) {
	var cases = []struct {
		about   string
		content string
		modify  func(*Config)
		err     bool
	}{
		{
			about:   "empty file keeps defaults",
			content: "",
			modify:  func(c *Config) {},
		},
		{
			about: "override some keys",
			content: `
sink: elastic
elastic_url: http://es:9200
batch_size: 500
async: true
timeout: 2m
requests_per_second: 2.5
log_level: debug
`,
			modify: func(c *Config) {
				c.Sink = SinkElastic
				c.ElasticURL = "http://es:9200"
				c.BatchSize = 500
				c.Async = true
				c.Timeout = 2 * time.Minute
				c.RequestsPerSecond = 2.5
				c.LogLevel = "debug"
			},
		},
		{
			about:   "unknown sink",
			content: "sink: kafka\n",
			err:     true,
		},
		{
			about:   "zero batch size",
			content: "batch_size: 0\n",
			err:     true,
		},
		{
			about:   "negative rate",
			content: "requests_per_second: -1\n",
			err:     true,
		},
		{
			about:   "bad level",
			content: "log_level: loud\n",
			err:     true,
		},
		{
			about:   "not yaml",
			content: "sink: [\n",
			err:     true,
		},
	}
	for _, c := range cases {
		t.Run(c.about, func(t *testing.T) {
			filename := filepath.Join(t.TempDir(), "metabench.yaml")
			if err := os.WriteFile(filename, []byte(c.content), 0644); err != nil {
				t.Fatal(err)
			}
			got, err := Load(filename)
			if c.err {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			want := Default()
			c.modify(want)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
