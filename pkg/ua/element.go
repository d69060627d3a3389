package ua

import (
	"sort"
	"strings"
)

// XMLElement is the element record produced by the XML tokenizing boundary:
// a local tag name (namespace stripped), attributes, character data and
// child elements. The value codec and the parser operate on these records
// rather than on raw XML tokens.
type XMLElement struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*XMLElement
}

// Find returns the first direct child with the given local name, or nil.
func (e *XMLElement) Find(name string) *XMLElement {
	for _, c := range e.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// FindAll returns every direct child with the given local name.
func (e *XMLElement) FindAll(name string) []*XMLElement {
	var out []*XMLElement
	for _, c := range e.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Attr returns the named attribute and whether it was present.
func (e *XMLElement) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// RawXML re-renders the element subtree as plain XML with attributes in
// sorted order. Used to preserve unrecognized structured values verbatim.
func (e *XMLElement) RawXML() string {
	var b strings.Builder
	e.writeXML(&b)
	return b.String()
}

func (e *XMLElement) writeXML(b *strings.Builder) {
	b.WriteString("<")
	b.WriteString(e.Name)
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(EscapeXML(e.Attrs[k]))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	b.WriteString(EscapeXML(e.Text))
	for _, c := range e.Children {
		c.writeXML(b)
	}
	b.WriteString("</")
	b.WriteString(e.Name)
	b.WriteString(">")
}
