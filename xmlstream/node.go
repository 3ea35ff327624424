package xmlstream

import (
	"encoding/xml"
	"strings"
)

// Node is an element of the streamed document. Nodes are owned by the Walker
// and are only valid inside the record callback; after the callback returns
// the record subtree is released.
type Node struct {
	tag      string
	attrs    []xml.Attr
	text     []byte
	line     int
	parent   *Node
	children []*Node
	pending  bool // parent of at least one anchor, not yet completed
}

// Clark returns the namespace qualified name in Clark notation, e.g.
// {http://purl.org/dc/elements/1.1/}title.
func Clark(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return "{" + name.Space + "}" + name.Local
}

// Tag returns the element name in Clark notation.
func (n *Node) Tag() string { return n.tag }

// Line is the source line of the start tag.
func (n *Node) Line() int { return n.line }

// Parent returns the enclosing element, nil for the document element or a
// released node.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the child elements in document order.
func (n *Node) Children() []*Node { return n.children }

// Attr returns the value of an attribute, name in Clark notation.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.attrs {
		if Clark(a.Name) == name {
			return a.Value, true
		}
	}
	return "", false
}

// Text returns the character data directly inside the element, trimmed.
func (n *Node) Text() string {
	return strings.TrimSpace(string(n.text))
}

// HasText is true, if the element contains non-whitespace character data.
func (n *Node) HasText() bool {
	return n.Text() != ""
}

// size counts the nodes in the subtree rooted at n.
func (n *Node) size() int {
	s := 1
	for _, c := range n.children {
		s += c.size()
	}
	return s
}

// detach removes n from the children of its parent.
func (n *Node) detach() {
	p := n.parent
	if p == nil {
		return
	}
	for i := len(p.children) - 1; i >= 0; i-- {
		if p.children[i] == n {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// arena tracks how many nodes are currently reachable from the walker.
type arena struct {
	live int
	peak int
}

func (a *arena) alloc(t xml.StartElement, parent *Node, line int) *Node {
	n := &Node{
		tag:    Clark(t.Name),
		attrs:  t.Copy().Attr,
		line:   line,
		parent: parent,
	}
	if parent != nil {
		parent.children = append(parent.children, n)
	}
	a.live++
	if a.live > a.peak {
		a.peak = a.live
	}
	return n
}

// release detaches a subtree and drops all references into it.
func (a *arena) release(n *Node) {
	n.detach()
	a.live -= a.drop(n)
}

func (a *arena) drop(n *Node) int {
	count := 1
	for _, c := range n.children {
		c.parent = nil
		count += a.drop(c)
	}
	n.children = nil
	n.text = nil
	n.attrs = nil
	return count
}
