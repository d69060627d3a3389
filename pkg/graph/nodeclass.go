package graph

import "fmt"

// NodeClass is the OPC UA node class of a node row.
type NodeClass uint8

const (
	ClassObject NodeClass = iota
	ClassObjectType
	ClassVariable
	ClassVariableType
	ClassDataType
	ClassReferenceType
	ClassMethod
	ClassView
)

var nodeClassNames = [...]string{
	ClassObject:        "Object",
	ClassObjectType:    "ObjectType",
	ClassVariable:      "Variable",
	ClassVariableType:  "VariableType",
	ClassDataType:      "DataType",
	ClassReferenceType: "ReferenceType",
	ClassMethod:        "Method",
	ClassView:          "View",
}

// String returns the node class name as used in NodeClass comparisons.
func (c NodeClass) String() string {
	if int(c) < len(nodeClassNames) {
		return nodeClassNames[c]
	}
	return fmt.Sprintf("NodeClass(%d)", uint8(c))
}

// XMLTag returns the element tag the class serializes under ("UA" prefix).
func (c NodeClass) XMLTag() string {
	return "UA" + c.String()
}

// NodeClassFromTag maps a NodeSet2 element tag (e.g. "UAObject") back to its
// class. The second return is false for tags that are not node elements.
func NodeClassFromTag(tag string) (NodeClass, bool) {
	for c, name := range nodeClassNames {
		if tag == "UA"+name {
			return NodeClass(c), true
		}
	}
	return 0, false
}

// IsType reports whether the class is one of the four type-defining classes.
func (c NodeClass) IsType() bool {
	switch c {
	case ClassObjectType, ClassVariableType, ClassDataType, ClassReferenceType:
		return true
	}
	return false
}

// IsInstance reports whether the class describes an instance-level node.
func (c NodeClass) IsInstance() bool {
	switch c {
	case ClassObject, ClassVariable, ClassMethod, ClassView:
		return true
	}
	return false
}
