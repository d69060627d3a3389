package ua

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// DecodeElement reads the subtree opened by start into an XMLElement,
// stripping XML namespaces down to local names.
func DecodeElement(dec *xml.Decoder, start xml.StartElement) (*XMLElement, error) {
	elem := &XMLElement{
		Name:  start.Name.Local,
		Attrs: make(map[string]string, len(start.Attr)),
	}
	for _, a := range start.Attr {
		elem.Attrs[a.Name.Local] = a.Value
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := DecodeElement(dec, t)
			if err != nil {
				return nil, err
			}
			elem.Children = append(elem.Children, child)
		case xml.CharData:
			elem.Text += string(t)
		case xml.EndElement:
			return elem, nil
		}
	}
}

// ParseElementString decodes a single XML element subtree from its textual
// form.
func ParseElementString(s string) (*XMLElement, error) {
	dec := xml.NewDecoder(strings.NewReader(s))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("no element in %q", s)
		}
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return DecodeElement(dec, start)
		}
	}
}

// ParseValueXML decodes an encoded value payload back into a Value. It is
// the inverse of XMLEncode and exists so serialized values can round-trip
// through caches.
func ParseValueXML(s string) (Value, error) {
	if s == "" {
		return nil, nil
	}
	elem, err := ParseElementString(s)
	if err != nil {
		return nil, err
	}
	return parseValueElement(elem)
}
