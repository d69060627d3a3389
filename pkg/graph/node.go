package graph

import "github.com/graphforge/uanodeset/pkg/ua"

// Node is one row of the normalized node table. The surrogate ID lives in
// the table's slice index; the row carries the original identifier plus the
// attributes common to all node classes. Class-specific attributes hang off
// Attrs.
type Node struct {
	NodeID              ua.NodeID
	Class               NodeClass
	BrowseName          string
	BrowseNameNamespace uint16
	DisplayName         string
	Description         string
	SymbolicName        string
	// Namespace of the node's own identifier, duplicated from NodeID for
	// cheap per-namespace filtering.
	Namespace uint16
	Attrs     NodeAttributes
}

// NodeAttributes holds the class-specific attribute block of a node row.
// Exactly one concrete type exists per node class.
type NodeAttributes interface {
	nodeClass() NodeClass
}

// ObjectAttributes are the attributes of a UAObject row.
type ObjectAttributes struct {
	EventNotifier uint8
	ParentNodeID  ID
}

func (ObjectAttributes) nodeClass() NodeClass { return ClassObject }

// ObjectTypeAttributes are the attributes of a UAObjectType row.
type ObjectTypeAttributes struct {
	IsAbstract bool
}

func (ObjectTypeAttributes) nodeClass() NodeClass { return ClassObjectType }

// VariableAttributes are the attributes of a UAVariable row. DataType and
// ParentNodeID are surrogate ids into the same node table, NilID when unset.
type VariableAttributes struct {
	DataType                ID
	ParentNodeID            ID
	ValueRank               *int32
	ArrayDimensions         string
	AccessLevel             *uint8
	UserAccessLevel         *uint8
	MinimumSamplingInterval *float64
	Historizing             bool
	Value                   ua.Value
}

func (VariableAttributes) nodeClass() NodeClass { return ClassVariable }

// VariableTypeAttributes are the attributes of a UAVariableType row.
type VariableTypeAttributes struct {
	DataType   ID
	ValueRank  *int32
	IsAbstract bool
	Value      ua.Value
}

func (VariableTypeAttributes) nodeClass() NodeClass { return ClassVariableType }

// DataTypeAttributes are the attributes of a UADataType row.
type DataTypeAttributes struct {
	IsAbstract bool
	Definition *ua.DataTypeDefinition
}

func (DataTypeAttributes) nodeClass() NodeClass { return ClassDataType }

// ReferenceTypeAttributes are the attributes of a UAReferenceType row.
type ReferenceTypeAttributes struct {
	IsAbstract  bool
	Symmetric   bool
	InverseName string
}

func (ReferenceTypeAttributes) nodeClass() NodeClass { return ClassReferenceType }

// MethodAttributes are the attributes of a UAMethod row.
type MethodAttributes struct {
	Executable          *bool
	UserExecutable      *bool
	ParentNodeID        ID
	MethodDeclarationID ID
}

func (MethodAttributes) nodeClass() NodeClass { return ClassMethod }

// ViewAttributes are the attributes of a UAView row.
type ViewAttributes struct {
	ContainsNoLoops bool
	EventNotifier   uint8
}

func (ViewAttributes) nodeClass() NodeClass { return ClassView }

// Value returns the node's stored value, or nil for classes without one.
func (n *Node) Value() ua.Value {
	switch a := n.Attrs.(type) {
	case VariableAttributes:
		return a.Value
	case VariableTypeAttributes:
		return a.Value
	}
	return nil
}

// SetValue replaces the node's stored value. It is a no-op for classes
// without a value attribute.
func (n *Node) SetValue(v ua.Value) {
	switch a := n.Attrs.(type) {
	case VariableAttributes:
		a.Value = v
		n.Attrs = a
	case VariableTypeAttributes:
		a.Value = v
		n.Attrs = a
	}
}

// DataTypeID returns the node's DataType surrogate id, or NilID for classes
// without one.
func (n *Node) DataTypeID() ID {
	switch a := n.Attrs.(type) {
	case VariableAttributes:
		return a.DataType
	case VariableTypeAttributes:
		return a.DataType
	}
	return NilID
}
