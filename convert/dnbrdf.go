package convert

import (
	"strings"

	"github.com/miku/metabench/gnd"
	"github.com/miku/metabench/isbn"
	"github.com/miku/metabench/normal"
	"github.com/miku/metabench/schema/meta"
	"github.com/miku/metabench/xmlstream"
	log "github.com/sirupsen/logrus"
)

// Element and attribute names used in the DNB title dump, in Clark notation.
const (
	TagTitle         = "{http://purl.org/dc/elements/1.1/}title"
	TagCreator       = "{http://purl.org/dc/terms/}creator"
	TagISBN10        = "{http://purl.org/ontology/bibo/}isbn10"
	TagISBN13        = "{http://purl.org/ontology/bibo/}isbn13"
	TagAuthorList    = "{http://purl.org/ontology/bibo/}authorList"
	TagDescription   = "{http://www.w3.org/1999/02/22-rdf-syntax-ns#}Description"
	TagPreferredName = "{http://d-nb.info/standards/elementset/gnd#}preferredName"
	AttrResource     = "{http://www.w3.org/1999/02/22-rdf-syntax-ns#}resource"
)

// DNBAnchors are the elements that mark a record in the DNB title dump.
var DNBAnchors = []string{TagISBN10, TagISBN13}

// DNBExtractor turns rdf:Description elements of the DNB title dump into
// metadata records. Creator references are resolved with Table.
type DNBExtractor struct {
	Table  *gnd.Table
	Logger log.FieldLogger
}

func (x *DNBExtractor) logger() log.FieldLogger {
	if x.Logger == nil {
		return log.StandardLogger()
	}
	return x.Logger
}

// Extract validates a record element and returns one record per distinct
// ISBN, all sharing the same title and creator. Failing records yield a
// Reject error.
func (x *DNBExtractor) Extract(n *xmlstream.Node) ([]meta.Record, error) {
	numTitles, numCreators := x.countTitleAndCreator(n)
	switch {
	case numTitles > 1:
		x.logger().WithField("line", n.Line()).Warn("more than one title")
		return nil, ErrTooManyTitles
	case numTitles == 0, numCreators == 0:
		return nil, ErrMissingRequiredField
	}
	var titles, creators, isbns []string
	for _, child := range n.Children() {
		switch child.Tag() {
		case TagTitle:
			if child.HasText() {
				titles = append(titles, normal.Field.Normalize(child.Text()))
			}
		case TagCreator:
			creators = append(creators, x.creatorNames(child)...)
		case TagISBN10, TagISBN13:
			if !child.HasText() {
				continue
			}
			v, err := isbn.Normalize(child.Text())
			if err != nil {
				x.logger().WithFields(log.Fields{
					"line":  child.Line(),
					"value": child.Text(),
				}).Warn("skipping invalid isbn")
				continue
			}
			isbns = append(isbns, v)
		}
	}
	switch {
	case len(isbns) == 0:
		return nil, ErrNoIdentifiers
	case len(titles) == 0:
		return nil, ErrNoTitles
	case len(creators) == 0:
		return nil, ErrNoCreators
	}
	var (
		title   = strings.Join(titles, ", ")
		creator = strings.Join(creators, ", ")
		result  []meta.Record
	)
	for _, v := range isbn.Unique(isbns) {
		result = append(result, meta.Record{
			ISBN:    v,
			Title:   title,
			Creator: creator,
		})
	}
	return result, nil
}

// countTitleAndCreator counts title children and creator references. A
// creator with neither a resource nor a usable inline name is reported, but
// does not fail the record by itself.
func (x *DNBExtractor) countTitleAndCreator(n *xmlstream.Node) (numTitles, numCreators int) {
	for _, child := range n.Children() {
		switch child.Tag() {
		case TagTitle:
			numTitles++
		case TagCreator:
			if _, ok := child.Attr(AttrResource); ok {
				numCreators++
				continue
			}
			names := inlineNames(child)
			if len(names) == 0 {
				x.logger().WithFields(log.Fields{
					"line":    n.Line(),
					"creator": child.Line(),
					"problem": creatorProblem(child),
				}).Warn("error in creator")
			}
			numCreators += len(names)
		case TagAuthorList:
			x.logger().WithField("line", child.Line()).Warn("authorList")
		}
	}
	return numTitles, numCreators
}

// creatorNames resolves a single creator element to zero or more names.
func (x *DNBExtractor) creatorNames(child *xmlstream.Node) []string {
	resource, ok := child.Attr(AttrResource)
	if !ok {
		return inlineNames(child)
	}
	name, err := x.Table.Resolve(resource)
	if err != nil {
		x.logger().WithFields(log.Fields{
			"line":     child.Line(),
			"resource": resource,
		}).Warn(err)
		return nil
	}
	return []string{normal.Field.Normalize(name)}
}

// inlineNames returns the preferred names of inline rdf:Description children.
func inlineNames(creator *xmlstream.Node) (names []string) {
	for _, c := range creator.Children() {
		if c.Tag() != TagDescription {
			continue
		}
		for _, d := range c.Children() {
			if d.Tag() == TagPreferredName && d.HasText() {
				names = append(names, normal.Field.Normalize(d.Text()))
			}
		}
	}
	return names
}

// creatorProblem describes why a creator without resource has no name.
func creatorProblem(creator *xmlstream.Node) string {
	for _, c := range creator.Children() {
		if c.Tag() == TagDescription {
			return "no text in preferred name"
		}
	}
	return "no description tag"
}
