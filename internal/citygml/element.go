package citygml

import (
	"encoding/xml"
	"io"
	"strings"
)

// Element is one node of the parsed document tree. Attributes keep their
// namespace so gml:id and xlink:href can be told apart from plain id/href.
type Element struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Children []*Element
	Text     string
	Parent   *Element
}

// Local returns the element's local name.
func (e *Element) Local() string { return e.Name.Local }

// Attr returns the value of the first attribute with the given local name.
func (e *Element) Attr(local string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// ID returns the gml:id (or plain id) of the element.
func (e *Element) ID() string { return e.Attr("id") }

// Href returns the xlink reference target with a leading '#' stripped, or
// "" when the element carries no reference.
func (e *Element) Href() string {
	return strings.TrimPrefix(e.Attr("href"), "#")
}

// Child returns the first direct child with the given local name.
func (e *Element) Child(local string) *Element {
	for _, c := range e.Children {
		if c.Name.Local == local {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns all direct children with the given local name.
func (e *Element) ChildrenNamed(local string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Name.Local == local {
			out = append(out, c)
		}
	}
	return out
}

// Descendants appends all descendants with the given local name in document
// order, not descending into matches.
func (e *Element) Descendants(local string) []*Element {
	var out []*Element
	e.walk(func(el *Element) bool {
		if el != e && el.Name.Local == local {
			out = append(out, el)
			return false
		}
		return true
	})
	return out
}

// DescendantsAll is like Descendants but also descends into matches.
func (e *Element) DescendantsAll(local string) []*Element {
	var out []*Element
	e.walk(func(el *Element) bool {
		if el != e && el.Name.Local == local {
			out = append(out, el)
		}
		return true
	})
	return out
}

// walk visits e and its subtree depth-first; fn returning false prunes the
// subtree below the visited element.
func (e *Element) walk(fn func(*Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.Children {
		c.walk(fn)
	}
}

// Detach removes the element from its parent, releasing the subtree for
// collection once the caller drops its own reference. Used by the streaming
// path to bound memory.
func (e *Element) Detach() {
	if e.Parent == nil {
		return
	}
	siblings := e.Parent.Children
	for i, c := range siblings {
		if c == e {
			e.Parent.Children = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	e.Parent = nil
}

// decodeElement reads one complete element (the one whose StartElement was
// just consumed) from the decoder into a tree.
func decodeElement(dec *xml.Decoder, start xml.StartElement, parent *Element) (*Element, error) {
	el := &Element{
		Name:   start.Name,
		Attrs:  append([]xml.Attr(nil), start.Attr...),
		Parent: parent,
	}
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(dec, t, el)
			if err != nil {
				return nil, err
			}
			el.Children = append(el.Children, child)
		case xml.EndElement:
			el.Text = strings.TrimSpace(text.String())
			return el, nil
		case xml.CharData:
			text.Write(t)
		}
	}
}

// ParseTree decodes a whole XML document into an element tree rooted at the
// document element.
func ParseTree(r io.Reader) (*Element, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return decodeElement(dec, start, nil)
		}
	}
}
