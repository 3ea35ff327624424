// Package normal cleans up field values taken from catalog records.
package normal

import (
	"strings"
	"unicode"
)

// Normalizer rewrites a single value.
type Normalizer interface {
	Normalize(string) string
}

// NormalizerFunc adapts a function.
type NormalizerFunc func(string) string

func (f NormalizerFunc) Normalize(s string) string { return f(s) }

// Pipeline applies normalizers in order.
type Pipeline struct {
	Normalizer []Normalizer
}

func (p *Pipeline) Normalize(s string) string {
	for _, n := range p.Normalizer {
		s = n.Normalize(s)
	}
	return s
}

// Field is used for titles and creator names. Line breaks and tabs from the
// pretty printed dump become single spaces.
var Field = &Pipeline{
	Normalizer: []Normalizer{
		NormalizerFunc(ReplaceNewlineAndTab),
		NormalizerFunc(CollapseSpace),
	},
}

// ReplaceNewlineAndTab replaces each newline, carriage return or tab with a
// space.
func ReplaceNewlineAndTab(s string) string {
	var sb strings.Builder
	for _, c := range s {
		switch c {
		case '\n', '\r', '\t':
			sb.WriteRune(' ')
		default:
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// CollapseSpace trims s and reduces runs of whitespace to a single space.
func CollapseSpace(s string) string {
	var (
		sb    strings.Builder
		space bool
	)
	for _, c := range strings.TrimSpace(s) {
		if unicode.IsSpace(c) {
			space = true
			continue
		}
		if space {
			sb.WriteRune(' ')
			space = false
		}
		sb.WriteRune(c)
	}
	return sb.String()
}
