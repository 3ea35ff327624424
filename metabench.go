// Package metabench collects tools to extract normalized book metadata from
// large library catalog dumps, for indexing and collision analysis.
package metabench

const (
	// AppName is used for cache and data directories.
	AppName = "metabench"
	// Version of the tools.
	Version = "0.1.0"
)
