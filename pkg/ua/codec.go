package ua

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// simpleTags are the Types.xsd scalar tags the codec decodes directly.
var simpleTags = map[string]bool{
	"Boolean": true, "SByte": true, "Byte": true,
	"Int16": true, "UInt16": true, "Int32": true, "UInt32": true,
	"Int64": true, "UInt64": true, "Float": true, "Double": true,
	"String": true, "DateTime": true, "Guid": true, "ByteString": true,
	"NodeId": true,
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseValue decodes the contents of a node's <Value> element. The element
// is expected to hold exactly one child carrying the typed payload.
func ParseValue(valueElem *XMLElement) (Value, error) {
	if len(valueElem.Children) == 0 {
		return nil, nil
	}
	return parseValueElement(valueElem.Children[0])
}

func parseValueElement(e *XMLElement) (Value, error) {
	if strings.HasPrefix(e.Name, "ListOf") {
		return parseListValue(e)
	}
	return parseSingularValue(e)
}

func parseListValue(e *XMLElement) (Value, error) {
	typeName := strings.TrimPrefix(e.Name, "ListOf")
	values := make([]Value, 0, len(e.Children))
	for _, c := range e.Children {
		v, err := parseValueElement(c)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return ListOf{TypeName: typeName, Values: values}, nil
}

func parseSingularValue(e *XMLElement) (Value, error) {
	if simpleTags[e.Name] {
		return parseSimpleValue(e)
	}

	switch e.Name {
	case "TypeId":
		ident := e.Find("Identifier")
		if ident == nil {
			return nil, fmt.Errorf("TypeId without Identifier child")
		}
		return ParseNodeID(strings.TrimSpace(ident.Text))
	case "LocalizedText":
		return parseLocalizedText(e), nil
	case "ExtensionObject":
		return parseExtensionObject(e)
	}

	// Unrecognized structured body: preserve verbatim.
	return Structure{XML: e.RawXML()}, nil
}

func parseSimpleValue(e *XMLElement) (Value, error) {
	stripped := strings.TrimSpace(e.Text)
	empty := stripped == ""

	parseInt := func(bits int) (int64, error) {
		return strconv.ParseInt(stripped, 10, bits)
	}
	parseUint := func(bits int) (uint64, error) {
		return strconv.ParseUint(stripped, 10, bits)
	}

	switch e.Name {
	case "SByte":
		if empty {
			return SByte{}, nil
		}
		v, err := parseInt(8)
		if err != nil {
			return nil, err
		}
		i := int8(v)
		return SByte{Value: &i}, nil
	case "Byte":
		if empty {
			return Byte{}, nil
		}
		v, err := parseUint(8)
		if err != nil {
			return nil, err
		}
		i := uint8(v)
		return Byte{Value: &i}, nil
	case "Int16":
		if empty {
			return Int16{}, nil
		}
		v, err := parseInt(16)
		if err != nil {
			return nil, err
		}
		i := int16(v)
		return Int16{Value: &i}, nil
	case "UInt16":
		if empty {
			return UInt16{}, nil
		}
		v, err := parseUint(16)
		if err != nil {
			return nil, err
		}
		i := uint16(v)
		return UInt16{Value: &i}, nil
	case "Int32":
		if empty {
			return Int32{}, nil
		}
		v, err := parseInt(32)
		if err != nil {
			return nil, err
		}
		i := int32(v)
		return Int32{Value: &i}, nil
	case "UInt32":
		if empty {
			return UInt32{}, nil
		}
		v, err := parseUint(32)
		if err != nil {
			return nil, err
		}
		i := uint32(v)
		return UInt32{Value: &i}, nil
	case "Int64":
		if empty {
			return Int64{}, nil
		}
		v, err := parseInt(64)
		if err != nil {
			return nil, err
		}
		return Int64{Value: &v}, nil
	case "UInt64":
		if empty {
			return UInt64{}, nil
		}
		v, err := parseUint(64)
		if err != nil {
			return nil, err
		}
		return UInt64{Value: &v}, nil
	case "Float":
		if empty {
			return Float{}, nil
		}
		v, err := strconv.ParseFloat(stripped, 64)
		if err != nil {
			return nil, err
		}
		return Float{Value: &v}, nil
	case "Double":
		if empty {
			return Double{}, nil
		}
		v, err := strconv.ParseFloat(stripped, 64)
		if err != nil {
			return nil, err
		}
		return Double{Value: &v}, nil
	case "String":
		s := stripped
		return String{Value: &s}, nil
	case "DateTime":
		if empty {
			return DateTime{}, nil
		}
		for _, layout := range dateTimeLayouts {
			if t, err := time.Parse(layout, stripped); err == nil {
				return DateTime{Value: &t}, nil
			}
		}
		return nil, fmt.Errorf("unparseable DateTime %q", stripped)
	case "Boolean":
		if empty {
			return Boolean{}, nil
		}
		b := stripped == "true" || stripped == "True"
		return Boolean{Value: &b}, nil
	case "ByteString":
		if empty {
			return ByteString{}, nil
		}
		data, err := base64.StdEncoding.DecodeString(stripped)
		if err != nil {
			return nil, fmt.Errorf("unparseable ByteString: %v", err)
		}
		return ByteString{Value: data}, nil
	case "Guid":
		s := stripped
		return Guid{Value: &s}, nil
	case "NodeId":
		if empty {
			return nil, nil
		}
		return ParseNodeID(stripped)
	}
	return nil, fmt.Errorf("unhandled simple value tag %q", e.Name)
}

func parseLocalizedText(e *XMLElement) LocalizedText {
	var lt LocalizedText
	if txt := e.Find("Text"); txt != nil {
		t := txt.Text
		lt.Text = &t
	}
	if loc := e.Find("Locale"); loc != nil {
		l := loc.Text
		lt.Locale = &l
	}
	return lt
}

func parseExtensionObject(e *XMLElement) (Value, error) {
	var typeID *NodeID
	if typeElem := e.Find("TypeId"); typeElem != nil {
		v, err := parseSingularValue(typeElem)
		if err != nil {
			return nil, err
		}
		if id, ok := v.(NodeID); ok {
			typeID = &id
		}
	}

	body := e.Find("Body")

	// EUInformation bodies are decoded to EngineeringUnits.
	if typeID != nil && typeID.Namespace == 0 && typeID.Kind == KindNumeric && typeID.Value == "888" {
		if eu := parseEngineeringUnits(body); eu != nil {
			return *eu, nil
		}
	}

	var parsedBody Value
	if body != nil && len(body.Children) > 0 {
		v, err := parseValueElement(body.Children[0])
		if err != nil {
			return nil, err
		}
		parsedBody = v
	}

	return ExtensionObject{TypeID: typeID, Body: parsedBody}, nil
}

func parseEngineeringUnits(body *XMLElement) *EngineeringUnits {
	if body == nil {
		return nil
	}
	euinfo := body.Find("EUInformation")
	if euinfo == nil {
		return nil
	}
	uriElem := euinfo.Find("NamespaceUri")
	if uriElem == nil || strings.TrimSpace(uriElem.Text) == "" {
		return nil
	}
	eu := EngineeringUnits{NamespaceURI: strings.TrimSpace(uriElem.Text)}
	if unitElem := euinfo.Find("UnitId"); unitElem != nil {
		if unitID, err := strconv.ParseInt(strings.TrimSpace(unitElem.Text), 10, 32); err == nil {
			eu.UnitID = int32(unitID)
		}
	}
	if dn := euinfo.Find("DisplayName"); dn != nil {
		eu.DisplayName = parseLocalizedText(dn)
	}
	if desc := euinfo.Find("Description"); desc != nil {
		eu.Description = parseLocalizedText(desc)
	}
	return &eu
}
