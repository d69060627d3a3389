package uagraph

import (
	"encoding/xml"
	"strconv"
	"strings"
	"unicode"

	"github.com/graphforge/uanodeset/pkg/graph"
	"github.com/graphforge/uanodeset/pkg/logging"
	"github.com/graphforge/uanodeset/pkg/ua"
)

// enumStringsProperty returns the property node an enumeration DataType
// points at through HasProperty. That node, not the type itself, carries the
// enumeration definition.
func (g *Graph) enumStringsProperty(op string, dataTypeID graph.ID) (*graph.Node, error) {
	hasProperty, err := g.ReferenceTypeByBrowseName("HasProperty")
	if err != nil {
		return nil, err
	}
	for _, r := range g.Tables.References {
		if r.Type == hasProperty && r.Src == dataTypeID {
			return g.Tables.NodeByID(r.Trg), nil
		}
	}
	node := g.Tables.NodeByID(dataTypeID)
	return nil, graph.NewError(op).Node(dataTypeID).Name(node.BrowseName).
		Context("enumeration type has no HasProperty reference").
		Cause(graph.ErrSchema).Err()
}

// EnumDict returns the value-to-label mapping of the enumeration DataType
// with the browse name. Labels are title-cased for case-insensitive lookups.
// Enumerations defined through EnumValues are not supported.
func (g *Graph) EnumDict(enumName string) (map[int32]string, error) {
	const op = "EnumDict"
	id, err := g.DataTypeByBrowseName(enumName)
	if err != nil {
		return nil, err
	}
	prop, err := g.enumStringsProperty(op, id)
	if err != nil {
		return nil, err
	}

	switch prop.BrowseName {
	case "EnumStrings":
	case "EnumValues":
		return nil, graph.NewError(op).Node(id).Name(enumName).
			Context("EnumValues definitions are not supported").
			Cause(graph.ErrNotImplemented).Err()
	default:
		return nil, graph.NewError(op).Node(id).Name(enumName).
			Context("enumeration property is neither EnumStrings nor EnumValues").
			Cause(graph.ErrSchema).Err()
	}

	list, ok := prop.Value().(ua.ListOf)
	if !ok {
		return nil, graph.NewError(op).Node(id).Name(enumName).
			Context("EnumStrings value is not a list").
			Cause(graph.ErrSchema).Err()
	}

	dict := make(map[int32]string, len(list.Values))
	for i, elem := range list.Values {
		text, ok := elem.(ua.LocalizedText)
		if !ok || text.Text == nil {
			continue
		}
		dict[int32(i)] = titleCase(*text.Text)
	}
	return dict, nil
}

// EnumString returns the label of one enumeration value.
func (g *Graph) EnumString(enumName string, number int32) (string, error) {
	dict, err := g.EnumDict(enumName)
	if err != nil {
		return "", err
	}
	label, ok := dict[number]
	if !ok {
		return "", graph.NoMatchError("EnumString", enumName+"="+strconv.Itoa(int(number)))
	}
	return label, nil
}

// EnumInt returns the integer value of one enumeration label. The label is
// matched after stripping line breaks and title-casing, so lookups are
// insensitive to casing and wrapping in source documents.
func (g *Graph) EnumInt(enumName string, label string) (int32, error) {
	label = strings.ReplaceAll(label, "\r", "")
	label = strings.ReplaceAll(label, "\n", "")
	label = titleCase(strings.TrimSpace(label))

	dict, err := g.EnumDict(enumName)
	if err != nil {
		return 0, err
	}
	for number, candidate := range dict {
		if candidate == label {
			return number, nil
		}
	}
	return 0, graph.NoMatchError("EnumInt", enumName+"="+label)
}

// enumValueType is the body of an EnumValueType extension object.
type enumValueType struct {
	Value       int64 `xml:"Value"`
	DisplayName struct {
		Text string `xml:"Text"`
	} `xml:"DisplayName"`
}

// enumDefinitionDict builds the raw value-to-label mapping of one
// enumeration DataType, handling both definition encodings: a list of
// localized texts (positional values) and a list of EnumValueType extension
// objects (explicit values). Labels keep their original casing.
func (g *Graph) enumDefinitionDict(op string, dataTypeID graph.ID) (map[int32]string, error) {
	prop, err := g.enumStringsProperty(op, dataTypeID)
	if err != nil {
		return nil, err
	}
	list, ok := prop.Value().(ua.ListOf)
	if !ok {
		node := g.Tables.NodeByID(dataTypeID)
		return nil, graph.NewError(op).Node(dataTypeID).Name(node.BrowseName).
			Context("enumeration definition value is not a list").
			Cause(graph.ErrSchema).Err()
	}

	dict := make(map[int32]string, len(list.Values))
	for i, elem := range list.Values {
		switch v := elem.(type) {
		case ua.LocalizedText:
			if v.Text != nil {
				dict[int32(i)] = *v.Text
			}
		case ua.ExtensionObject:
			body, ok := v.Body.(ua.Structure)
			if !ok {
				continue
			}
			var evt enumValueType
			if err := xml.Unmarshal([]byte(body.XML), &evt); err != nil {
				return nil, graph.NewError(op).Node(dataTypeID).
					Context("malformed EnumValueType body").
					Cause(err).Err()
			}
			dict[int32(evt.Value)] = evt.DisplayName.Text
		default:
			node := g.Tables.NodeByID(dataTypeID)
			return nil, graph.NewError(op).Node(dataTypeID).Name(node.BrowseName).
				Context("unsupported enumeration definition element").
				Cause(graph.ErrSchema).Err()
		}
	}
	return dict, nil
}

// TransformIntsToEnums decodes the integer values of every variable whose
// DataType is a direct subtype of Enumeration into enumeration values
// carrying the label and the type's browse name. The tables are modified in
// place; variables without a value are left alone.
func (g *Graph) TransformIntsToEnums() error {
	const op = "TransformIntsToEnums"
	timer := logging.StartTimer(g.log, "transform_ints_to_enums")

	enumerationID, err := g.DataTypeByBrowseName("Enumeration")
	if err != nil {
		timer.EndError(err)
		return err
	}

	enumTypes := make(map[graph.ID]struct{})
	for _, r := range g.Tables.References {
		if r.Src == enumerationID {
			enumTypes[r.Trg] = struct{}{}
		}
	}

	dicts := make(map[graph.ID]map[int32]string)
	transformed := 0
	for i := range g.Tables.Nodes {
		n := &g.Tables.Nodes[i]
		if n.Class != graph.ClassVariable {
			continue
		}
		dataType := n.DataTypeID()
		if _, ok := enumTypes[dataType]; !ok {
			continue
		}

		var raw *int32
		switch v := n.Value().(type) {
		case nil:
			continue
		case ua.Enumeration:
			continue
		case ua.Int32:
			raw = v.Value
		case ua.ListOf:
			if len(v.Values) == 0 {
				continue
			}
			first, ok := v.Values[0].(ua.Int32)
			if !ok {
				err := graph.NewError(op).Node(graph.ID(i)).Name(n.DisplayName).
					Context("enumeration-typed list does not hold Int32 values").
					Cause(graph.ErrSchema).Err()
				timer.EndError(err)
				return err
			}
			raw = first.Value
		default:
			err := graph.NewError(op).Node(graph.ID(i)).Name(n.DisplayName).
				Context("enumeration-typed value is neither Int32 nor a list").
				Cause(graph.ErrSchema).Err()
			timer.EndError(err)
			return err
		}
		if raw == nil {
			continue
		}

		dict, ok := dicts[dataType]
		if !ok {
			dict, err = g.enumDefinitionDict(op, dataType)
			if err != nil {
				timer.EndError(err)
				return err
			}
			dicts[dataType] = dict
		}
		label, ok := dict[*raw]
		if !ok {
			err := graph.NewError(op).Node(graph.ID(i)).Name(n.DisplayName).
				Context("value " + strconv.Itoa(int(*raw)) + " outside enumeration definition").
				Cause(graph.ErrSchema).Err()
			timer.EndError(err)
			return err
		}

		value := *raw
		n.SetValue(ua.Enumeration{
			Value: &value,
			Label: label,
			Name:  g.Tables.NodeByID(dataType).BrowseName,
		})
		transformed++
	}

	timer.End(logging.Int("transformed", transformed))
	return nil
}

// titleCase upper-cases the first letter of every word and lower-cases the
// rest, with any non-letter acting as a word boundary.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}
