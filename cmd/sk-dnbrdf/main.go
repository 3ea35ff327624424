// sk-dnbrdf streams the DNB title dump and writes isbn, title and creator
// records to a bulk sink.
//
// $ sk-dnbrdf -i DNBtitel.rdf.gz -g gnd.tsv.gz -s elastic
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"
	"syscall"

	"github.com/miku/metabench"
	"github.com/miku/metabench/config"
	"github.com/miku/metabench/fileutil"
	"github.com/miku/metabench/gnd"
	"github.com/miku/metabench/ingest"
	"github.com/miku/metabench/sink"
	"github.com/miku/metabench/xmlstream"
	log "github.com/sirupsen/logrus"
)

var docs = strings.TrimLeft(`
# sk-dnbrdf - DNB title dump to bulk sink

Reads the RDF/XML title dump of the Deutsche Nationalbibliothek in a single
pass and emits one document per distinct ISBN-13, with title and creator.
Creators given by GND reference are resolved with a lookup table (TSV, JSON
or JSON lines, optionally gzip or zstd compressed).

## examples

$ sk-dnbrdf -i DNBtitel.rdf.gz -g gnd.tsv.gz > meta.jsonl
$ sk-dnbrdf -i DNBtitel.rdf.gz -g gnd.tsv.gz -s elastic -es http://localhost:9200
$ sk-dnbrdf -i DNBtitel.rdf.gz -g gnd.tsv.gz -s sqlite -db meta.db

## flags

`, "\n")

var (
	defaults = config.Default()

	configFile  = flag.String("c", "", "path to YAML config file")
	input       = flag.String("i", defaults.Input, "input file, - for stdin, .gz and .zst supported")
	lookupTable = flag.String("g", defaults.LookupTable, "GND lookup table")
	sinkKind    = flag.String("s", defaults.Sink, "sink, one of: jsonl, elastic, sqlite")
	output      = flag.String("o", defaults.Output, "output file for jsonl sink, - for stdout")
	elasticURL  = flag.String("es", defaults.ElasticURL, "elasticsearch server")
	index       = flag.String("index", defaults.ElasticIndex, "elasticsearch index")
	rps         = flag.Float64("rps", defaults.RequestsPerSecond, "max bulk requests per second, 0 for no limit")
	dbPath      = flag.String("db", defaults.SQLitePath, "sqlite database file")
	batchSize   = flag.Int("b", defaults.BatchSize, "batch size")
	async       = flag.Bool("async", defaults.Async, "overlap batch delivery with parsing")
	source      = flag.String("source", defaults.Source, "source tag for documents")
	maxRetries  = flag.Int("r", defaults.MaxRetries, "max retries for http requests")
	timeout     = flag.Duration("T", defaults.Timeout, "http timeout")
	strict      = flag.Bool("strict", defaults.Strict, "strict xml parsing")
	verbose     = flag.Bool("v", false, "verbose output")
	cpuprofile  = flag.String("cpuprofile", "", "file to write cpu pprof to")
	showVersion = flag.Bool("version", false, "show version")
)

// loadConfig returns the config file, if any, with explicitly set flags
// applied on top.
func loadConfig() (*config.Config, error) {
	c := config.Default()
	if *configFile != "" {
		var err error
		if c, err = config.Load(*configFile); err != nil {
			return nil, err
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			c.Input = *input
		case "g":
			c.LookupTable = *lookupTable
		case "s":
			c.Sink = *sinkKind
		case "o":
			c.Output = *output
		case "es":
			c.ElasticURL = *elasticURL
		case "index":
			c.ElasticIndex = *index
		case "rps":
			c.RequestsPerSecond = *rps
		case "db":
			c.SQLitePath = *dbPath
		case "b":
			c.BatchSize = *batchSize
		case "async":
			c.Async = *async
		case "source":
			c.Source = *source
		case "r":
			c.MaxRetries = *maxRetries
		case "T":
			c.Timeout = *timeout
		case "strict":
			c.Strict = *strict
		case "v":
			if *verbose {
				c.LogLevel = "debug"
			}
		}
	})
	return c, c.Validate()
}

// openSink returns the writer for the configured sink and a function to
// release it.
func openSink(ctx context.Context, c *config.Config) (sink.Writer, func() error, error) {
	switch c.Sink {
	case config.SinkElastic:
		es := &sink.Elastic{
			Client:  sink.NewPesterClient(c.MaxRetries, c.Timeout),
			Server:  c.ElasticURL,
			Index:   c.ElasticIndex,
			Limiter: sink.NewLimiter(c.RequestsPerSecond),
		}
		return es, func() error { return nil }, nil
	case config.SinkSQLite:
		db, err := sink.OpenSQLite(ctx, c.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		w, err := fileutil.Create(c.Output)
		if err != nil {
			return nil, nil, err
		}
		return sink.NewJSONL(w), w.Close, nil
	}
}

func main() {
	flag.Usage = func() {
		io.WriteString(os.Stderr, docs)
		flag.PrintDefaults()
	}
	flag.Parse()
	if *showVersion {
		fmt.Println(metabench.Version)
		os.Exit(0)
	}
	c, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(c.Level())
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}
	table, err := gnd.Load(c.LookupTable)
	if err != nil {
		log.Fatalf("lookup table: %v", err)
	}
	log.WithFields(log.Fields{
		"path":    c.LookupTable,
		"entries": table.Len(),
	}).Info("loaded lookup table")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	r, err := fileutil.Open(c.Input)
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()
	w, closeSink, err := openSink(ctx, c)
	if err != nil {
		log.Fatal(err)
	}
	m, err := ingest.Run(ctx, r, ingest.Options{
		Table:         table,
		Writer:        w,
		Source:        c.Source,
		BatchSize:     c.BatchSize,
		Async:         c.Async,
		Lenient:       !c.Strict,
		ProgressEvery: xmlstream.DefaultProgressEvery,
	})
	if cerr := closeSink(); cerr != nil && err == nil {
		err = cerr
	}
	if m != nil {
		fmt.Fprintln(os.Stderr, m)
	}
	if err != nil {
		log.Fatal(err)
	}
}
