// Package validator checks that stored variable values are consistent with
// the DataType the variable declares. Only the basic built-in types are
// checked; structured and vendor types pass through.
package validator

import (
	"sort"
	"strings"

	"github.com/graphforge/uanodeset/pkg/graph"
	"github.com/graphforge/uanodeset/pkg/ua"
)

// basicKind names the wire kind of a basic built-in value, or "" for
// structured and list values the validator does not judge.
func basicKind(v ua.Value) string {
	switch v.(type) {
	case ua.Boolean:
		return "Boolean"
	case ua.SByte:
		return "SByte"
	case ua.Byte:
		return "Byte"
	case ua.Int16:
		return "Int16"
	case ua.UInt16:
		return "UInt16"
	case ua.Int32:
		return "Int32"
	case ua.UInt32:
		return "UInt32"
	case ua.Int64:
		return "Int64"
	case ua.UInt64:
		return "UInt64"
	case ua.Float:
		return "Float"
	case ua.Double:
		return "Double"
	case ua.String:
		return "String"
	case ua.DateTime:
		return "DateTime"
	case ua.Guid:
		return "Guid"
	case ua.ByteString:
		return "ByteString"
	case ua.LocalizedText:
		return "LocalizedText"
	}
	return ""
}

// basicDataTypes is the set of DataType display names the validator can
// judge a value against.
var basicDataTypes = map[string]struct{}{
	"Boolean": {}, "SByte": {}, "Byte": {}, "Int16": {}, "UInt16": {},
	"Int32": {}, "UInt32": {}, "Int64": {}, "UInt64": {}, "Float": {},
	"Double": {}, "String": {}, "DateTime": {}, "Guid": {},
	"ByteString": {}, "LocalizedText": {},
}

// ValidateValues checks every variable holding a value against its declared
// DataType. All offending variables are collected into one error naming
// their display names; a variable with a value but no DataType at all fails
// immediately.
func ValidateValues(t *graph.Tables) error {
	const op = "ValidateValues"

	var invalid []string
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.Class != graph.ClassVariable {
			continue
		}
		value := n.Value()
		if value == nil {
			continue
		}

		dataType := n.DataTypeID()
		if dataType == graph.NilID {
			return graph.NewError(op).Node(graph.ID(i)).Name(n.DisplayName).
				Context("variable holds a value but declares no DataType").
				Cause(graph.ErrSchema).Err()
		}
		typeNode := t.NodeByID(dataType)
		if typeNode == nil {
			return graph.NewError(op).Node(graph.ID(i)).Name(n.DisplayName).
				Context("DataType id outside node table").
				Cause(graph.ErrIntegrity).Err()
		}

		kind := basicKind(value)
		if kind == "" {
			continue
		}
		if _, ok := basicDataTypes[typeNode.DisplayName]; !ok {
			continue
		}
		if kind != typeNode.DisplayName {
			invalid = append(invalid, n.DisplayName)
		}
	}

	if len(invalid) == 0 {
		return nil
	}
	sort.Strings(invalid)
	return graph.NewError(op).Input().
		Context("invalid Value for rows with the following display names: " +
			strings.Join(invalid, ", ")).
		Cause(graph.ErrSchema).Err()
}
