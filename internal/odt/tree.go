package odt

import (
	"encoding/xml"
	"io"
	"strings"
)

const (
	nsOffice = "urn:oasis:names:tc:opendocument:xmlns:office:1.0"
	nsText   = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"
	nsStyle  = "urn:oasis:names:tc:opendocument:xmlns:style:1.0"
	nsFO     = "urn:oasis:names:tc:opendocument:xmlns:xsl-fo-compatible:1.0"
)

// prefixes used when a document omits its namespace declarations
var nsPrefix = map[string]string{
	nsOffice: "office",
	nsText:   "text",
	nsStyle:  "style",
	nsFO:     "fo",
}

// element is a minimal DOM node. Character data is kept as text-run children
// (empty name, data set) so mixed content stays in document order.
type element struct {
	name     xml.Name
	attrs    []xml.Attr
	data     string
	children []*element
}

func (e *element) isText() bool { return e.name.Local == "" }

func (e *element) is(ns, local string) bool {
	return matches(e.name, ns, local)
}

func (e *element) attr(ns, local string) string {
	for _, a := range e.attrs {
		if matches(a.Name, ns, local) {
			return a.Value
		}
	}
	return ""
}

func (e *element) child(ns, local string) *element {
	for _, c := range e.children {
		if c.is(ns, local) {
			return c
		}
	}
	return nil
}

// textContent is the concatenated character data of e and all descendants.
func (e *element) textContent() string {
	var b strings.Builder
	e.collectText(&b)
	return b.String()
}

func (e *element) collectText(b *strings.Builder) {
	b.WriteString(e.data)
	for _, c := range e.children {
		c.collectText(b)
	}
}

func matches(n xml.Name, ns, local string) bool {
	if n.Local != local {
		return false
	}
	return n.Space == ns || n.Space == nsPrefix[ns]
}

// parseTree reads a whole XML document into an element tree.
func parseTree(r io.Reader) (*element, error) {
	dec := xml.NewDecoder(r)
	var root *element
	var stack []*element
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{name: t.Name, attrs: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, errMultipleRoots
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			if n := len(parent.children); n > 0 && parent.children[n-1].isText() {
				parent.children[n-1].data += string(t)
				continue
			}
			parent.children = append(parent.children, &element{data: string(t)})
		}
	}
	if root == nil {
		return nil, errEmptyDocument
	}
	return root, nil
}
