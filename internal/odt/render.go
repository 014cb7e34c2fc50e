// Package odt renders the body of an OpenDocument text file into a small
// styled tree of paragraphs, headings, lists and spans.
package odt

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind tags a render node.
type Kind string

const (
	KindParagraph Kind = "paragraph"
	KindHeading   Kind = "heading"
	KindList      Kind = "list"
	KindListItem  Kind = "list-item"
	KindSpan      Kind = "span"
	KindText      Kind = "text"
)

// Node is one rendered element. Text is the element's plain text. Paragraph
// and heading children interleave text runs and spans in document order.
type Node struct {
	Kind      Kind   `json:"kind"`
	StyleName string `json:"styleName,omitempty"`
	Style     Style  `json:"style"`
	Level     int    `json:"level,omitempty"`
	Text      string `json:"text,omitempty"`
	Children  []Node `json:"children,omitempty"`
}

// MalformedArchiveError reports an archive that is not a zip or lacks a
// readable content.xml.
type MalformedArchiveError struct {
	Part string
	Err  error
}

func (e *MalformedArchiveError) Error() string {
	if e.Part == "" {
		return fmt.Sprintf("malformed odt archive: %v", e.Err)
	}
	return fmt.Sprintf("malformed odt archive: %s: %v", e.Part, e.Err)
}

func (e *MalformedArchiveError) Unwrap() error { return e.Err }

var (
	ErrMissingContent = errors.New("content.xml not found")
	errPartTooLarge   = errors.New("part exceeds size limit")
	errMultipleRoots  = errors.New("multiple root elements")
	errEmptyDocument  = errors.New("empty document")
)

const (
	partContent = "content.xml"
	partStyles  = "styles.xml"
	maxPartSize = 32 << 20
)

// Render parses an ODT archive and returns the nodes under office:body/office:text.
func Render(data []byte) ([]Node, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &MalformedArchiveError{Err: err}
	}

	content, err := readPart(zr, partContent)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, &MalformedArchiveError{Part: partContent, Err: ErrMissingContent}
	}
	styles, err := readPart(zr, partStyles)
	if err != nil {
		return nil, err
	}

	sm := newStyleMap()
	sm.collect(styles)
	sm.collect(content)

	body := content.child(nsOffice, "body")
	if body == nil {
		return []Node{}, nil
	}
	text := body.child(nsOffice, "text")
	if text == nil {
		return []Node{}, nil
	}
	return renderChildren(text, sm), nil
}

// readPart returns nil, nil when the part is absent.
func readPart(zr *zip.Reader, name string) (*element, error) {
	var file *zip.File
	for _, f := range zr.File {
		if f.Name == name {
			file = f
			break
		}
	}
	if file == nil {
		return nil, nil
	}
	rc, err := file.Open()
	if err != nil {
		return nil, &MalformedArchiveError{Part: name, Err: err}
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
	if err != nil {
		return nil, &MalformedArchiveError{Part: name, Err: err}
	}
	if len(raw) > maxPartSize {
		return nil, &MalformedArchiveError{Part: name, Err: errPartTooLarge}
	}
	root, err := parseTree(bytes.NewReader(raw))
	if err != nil {
		return nil, &MalformedArchiveError{Part: name, Err: err}
	}
	return root, nil
}

func renderChildren(parent *element, sm *StyleMap) []Node {
	var out []Node
	for _, c := range parent.children {
		if n, ok := renderElement(c, sm); ok {
			out = append(out, n)
		}
	}
	return out
}

// renderInline renders mixed content. Whitespace-only runs that contain a
// newline are indentation from pretty-printed XML and are dropped.
func renderInline(parent *element, sm *StyleMap) []Node {
	var out []Node
	for _, c := range parent.children {
		if c.isText() {
			if strings.TrimSpace(c.data) == "" && strings.Contains(c.data, "\n") {
				continue
			}
			out = append(out, Node{Kind: KindText, Text: c.data})
			continue
		}
		if n, ok := renderElement(c, sm); ok {
			out = append(out, n)
		}
	}
	return out
}

func renderElement(e *element, sm *StyleMap) (Node, bool) {
	switch {
	case e.is(nsText, "p"):
		return styled(KindParagraph, e, sm, e.textContent(), renderInline(e, sm)), true
	case e.is(nsText, "h"):
		n := styled(KindHeading, e, sm, e.textContent(), renderInline(e, sm))
		n.Level = headingLevel(e.attr(nsText, "outline-level"))
		return n, true
	case e.is(nsText, "list"):
		n := styled(KindList, e, sm, "", nil)
		for _, c := range e.children {
			if c.is(nsText, "list-item") {
				n.Children = append(n.Children, Node{Kind: KindListItem, Children: renderChildren(c, sm)})
			}
		}
		return n, true
	case e.is(nsText, "span"):
		return styled(KindSpan, e, sm, e.textContent(), nil), true
	default:
		return Node{}, false
	}
}

func styled(kind Kind, e *element, sm *StyleMap, text string, children []Node) Node {
	name := e.attr(nsText, "style-name")
	return Node{
		Kind:      kind,
		StyleName: name,
		Style:     sm.Resolve(name),
		Text:      text,
		Children:  children,
	}
}

func headingLevel(raw string) int {
	level, err := strconv.Atoi(raw)
	if err != nil || level < 1 {
		return 1
	}
	return level
}
