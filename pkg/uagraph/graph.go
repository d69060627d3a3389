// Package uagraph is the user-facing façade over the normalized tables:
// browse-name lookups, namespace-scoped views, enum decoding, diagnostics
// and serialization back to NodeSet2 XML.
package uagraph

import (
	"io"
	"sort"

	"github.com/graphforge/uanodeset/pkg/generator"
	"github.com/graphforge/uanodeset/pkg/graph"
	"github.com/graphforge/uanodeset/pkg/logging"
	"github.com/graphforge/uanodeset/pkg/navigation"
	"github.com/graphforge/uanodeset/pkg/parser"
	"github.com/graphforge/uanodeset/pkg/ua"
)

// Graph wraps validated tables. Construction fails if any reference or
// id-valued attribute points outside the node table, so every method can
// index rows without re-checking.
type Graph struct {
	Tables *graph.Tables
	log    logging.Logger
}

// New wraps the tables after checking referential integrity.
func New(t *graph.Tables, log logging.Logger) (*Graph, error) {
	if log == nil {
		log = logging.NopLogger{}
	}
	if err := t.ValidateIntegrity(); err != nil {
		return nil, err
	}
	return &Graph{Tables: t, log: log}, nil
}

// FromDir parses every nodeset file in the directory and wraps the result.
// Integer values of enumeration-typed variables are decoded into their
// enumeration labels when the base Enumeration type is present.
func FromDir(dir string, desiredNamespaces []string, log logging.Logger) (*Graph, error) {
	if log == nil {
		log = logging.NopLogger{}
	}
	p := parser.NewParser(log)
	tables, err := p.ParseDir(dir, desiredNamespaces)
	if err != nil {
		return nil, err
	}
	g, err := New(tables, log)
	if err != nil {
		return nil, err
	}
	if err := g.TransformIntsToEnums(); err != nil {
		if graph.IsNotFound(err) {
			log.Debug("no Enumeration base type, skipping enum decoding")
			return g, nil
		}
		return nil, err
	}
	return g, nil
}

// FromFiles parses the given files and wraps the result without enum
// decoding.
func FromFiles(files []string, desiredNamespaces []string, log logging.Logger) (*Graph, error) {
	if log == nil {
		log = logging.NopLogger{}
	}
	p := parser.NewParser(log)
	tables, err := p.ParseFiles(files, desiredNamespaces)
	if err != nil {
		return nil, err
	}
	return New(tables, log)
}

// nodeByBrowseName returns the one node of the class carrying the browse
// name. Zero or several candidates are errors; anyClass disables the class
// filter.
func (g *Graph) nodeByBrowseName(op, browseName string, class graph.NodeClass, anyClass bool) (graph.ID, error) {
	if browseName == "" {
		return graph.NilID, graph.NewError(op).Input().
			Context("browse name must not be empty").
			Cause(graph.ErrEmptyInput).Err()
	}

	found := graph.NilID
	count := 0
	for i := range g.Tables.Nodes {
		n := &g.Tables.Nodes[i]
		if !anyClass && n.Class != class {
			continue
		}
		if n.BrowseName == browseName {
			found = graph.ID(i)
			count++
		}
	}
	switch {
	case count == 0:
		return graph.NilID, graph.NoMatchError(op, browseName)
	case count > 1:
		return graph.NilID, graph.AmbiguousMatchError(op, browseName, count)
	}
	return found, nil
}

// ReferenceTypeByBrowseName returns the id of the one ReferenceType node
// with the browse name.
func (g *Graph) ReferenceTypeByBrowseName(browseName string) (graph.ID, error) {
	return g.nodeByBrowseName("ReferenceTypeByBrowseName", browseName, graph.ClassReferenceType, false)
}

// ObjectTypeByBrowseName returns the id of the one ObjectType node with the
// browse name.
func (g *Graph) ObjectTypeByBrowseName(browseName string) (graph.ID, error) {
	return g.nodeByBrowseName("ObjectTypeByBrowseName", browseName, graph.ClassObjectType, false)
}

// VariableTypeByBrowseName returns the id of the one VariableType node with
// the browse name.
func (g *Graph) VariableTypeByBrowseName(browseName string) (graph.ID, error) {
	return g.nodeByBrowseName("VariableTypeByBrowseName", browseName, graph.ClassVariableType, false)
}

// DataTypeByBrowseName returns the id of the one DataType node with the
// browse name.
func (g *Graph) DataTypeByBrowseName(browseName string) (graph.ID, error) {
	return g.nodeByBrowseName("DataTypeByBrowseName", browseName, graph.ClassDataType, false)
}

// ObjectByBrowseName returns the id of the one Object node with the browse
// name.
func (g *Graph) ObjectByBrowseName(browseName string) (graph.ID, error) {
	return g.nodeByBrowseName("ObjectByBrowseName", browseName, graph.ClassObject, false)
}

// NodeIDByBrowseName returns the namespace-qualified identifier of the one
// node with the browse name, optionally restricted to a node class.
func (g *Graph) NodeIDByBrowseName(browseName string, class ...graph.NodeClass) (ua.NodeID, error) {
	var id graph.ID
	var err error
	if len(class) > 0 {
		id, err = g.nodeByBrowseName("NodeIDByBrowseName", browseName, class[0], false)
	} else {
		id, err = g.nodeByBrowseName("NodeIDByBrowseName", browseName, 0, true)
	}
	if err != nil {
		return ua.NodeID{}, err
	}
	return g.Tables.Nodes[id].NodeID, nil
}

// AllReferencesOfType returns every reference row whose type carries the
// browse name.
func (g *Graph) AllReferencesOfType(browseName string) ([]graph.Reference, error) {
	typeID, err := g.ReferenceTypeByBrowseName(browseName)
	if err != nil {
		return nil, err
	}
	var out []graph.Reference
	for _, r := range g.Tables.References {
		if r.Type == typeID {
			out = append(out, r)
		}
	}
	return out, nil
}

// RemoveInstanceLevelOutgoingReferences returns the reference rows that
// survive pruning for serialization of one namespace: a row is kept when its
// target lives in the namespace, or when its type is HasModellingRule or
// HasTypeDefinition.
func (g *Graph) RemoveInstanceLevelOutgoingReferences(namespace uint16) ([]graph.Reference, error) {
	hmr, err := g.ReferenceTypeByBrowseName("HasModellingRule")
	if err != nil {
		return nil, err
	}
	htd, err := g.ReferenceTypeByBrowseName("HasTypeDefinition")
	if err != nil {
		return nil, err
	}

	var out []graph.Reference
	for _, r := range g.Tables.References {
		if r.Type == hmr || r.Type == htd {
			out = append(out, r)
			continue
		}
		if trg := g.Tables.NodeByID(r.Trg); trg != nil && trg.Namespace == namespace {
			out = append(out, r)
		}
	}
	return out, nil
}

// WriteNodeSet serializes the graph to w with namespaceURI as the file's own
// namespace. With includeOutgoingInstanceLevelReferences false, references
// leaving the namespace at instance level are pruned first.
func (g *Graph) WriteNodeSet(w io.Writer, namespaceURI string, includeOutgoingInstanceLevelReferences bool, opts generator.Options) error {
	index, ok := g.Tables.NamespaceIndex(namespaceURI)
	if !ok {
		return graph.NewError("WriteNodeSet").Namespace(namespaceURI).
			Context("namespace uri not in graph").
			Cause(graph.ErrNoMatch).Err()
	}

	references := g.Tables.References
	if !includeOutgoingInstanceLevelReferences {
		var err error
		references, err = g.RemoveInstanceLevelOutgoingReferences(index)
		if err != nil {
			return err
		}
	}

	gen := generator.NewGenerator(g.log)
	return gen.WriteNodeSet(w, g.Tables, references, index, opts)
}

// NormalizedNode is a node row with every id-valued column resolved back to
// its namespace-qualified identifier.
type NormalizedNode struct {
	NodeID              ua.NodeID
	Class               graph.NodeClass
	BrowseName          string
	DisplayName         string
	Description         string
	DataType            *ua.NodeID
	ParentNodeID        *ua.NodeID
	MethodDeclarationID *ua.NodeID
}

// NormalizedNodes returns the denormalized node rows, sorted by identifier.
// A non-empty namespaceURI restricts the rows to that namespace.
func (g *Graph) NormalizedNodes(namespaceURI string) ([]NormalizedNode, error) {
	filter := -1
	if namespaceURI != "" {
		index, ok := g.Tables.NamespaceIndex(namespaceURI)
		if !ok {
			return nil, graph.NewError("NormalizedNodes").Namespace(namespaceURI).
				Context("namespace uri not in graph").
				Cause(graph.ErrNoMatch).Err()
		}
		filter = int(index)
	}

	denorm := func(id graph.ID) *ua.NodeID {
		if id == graph.NilID {
			return nil
		}
		nid := g.Tables.Arena.NodeID(id)
		return &nid
	}

	var out []NormalizedNode
	for i := range g.Tables.Nodes {
		n := &g.Tables.Nodes[i]
		if filter >= 0 && int(n.Namespace) != filter {
			continue
		}
		row := NormalizedNode{
			NodeID:      n.NodeID,
			Class:       n.Class,
			BrowseName:  n.BrowseName,
			DisplayName: n.DisplayName,
			Description: n.Description,
		}
		switch a := n.Attrs.(type) {
		case graph.ObjectAttributes:
			row.ParentNodeID = denorm(a.ParentNodeID)
		case graph.VariableAttributes:
			row.DataType = denorm(a.DataType)
			row.ParentNodeID = denorm(a.ParentNodeID)
		case graph.VariableTypeAttributes:
			row.DataType = denorm(a.DataType)
		case graph.MethodAttributes:
			row.ParentNodeID = denorm(a.ParentNodeID)
			row.MethodDeclarationID = denorm(a.MethodDeclarationID)
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID.Less(out[j].NodeID) })
	return out, nil
}

// NormalizedReference is a reference row with all three columns resolved
// back to namespace-qualified identifiers.
type NormalizedReference struct {
	Src  ua.NodeID
	Trg  ua.NodeID
	Type ua.NodeID
}

// NormalizedReferences returns the denormalized reference rows, sorted. A
// non-empty namespaceURI restricts the rows to those with at least one
// endpoint in that namespace.
func (g *Graph) NormalizedReferences(namespaceURI string) ([]NormalizedReference, error) {
	rows := g.Tables.References
	if namespaceURI != "" {
		index, ok := g.Tables.NamespaceIndex(namespaceURI)
		if !ok {
			return nil, graph.NewError("NormalizedReferences").Namespace(namespaceURI).
				Context("namespace uri not in graph").
				Cause(graph.ErrNoMatch).Err()
		}
		var filtered []graph.Reference
		for _, r := range rows {
			src := g.Tables.NodeByID(r.Src)
			trg := g.Tables.NodeByID(r.Trg)
			if (src != nil && src.Namespace == index) || (trg != nil && trg.Namespace == index) {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	out := make([]NormalizedReference, 0, len(rows))
	for _, r := range rows {
		out = append(out, NormalizedReference{
			Src:  g.Tables.Arena.NodeID(r.Src),
			Trg:  g.Tables.Arena.NodeID(r.Trg),
			Type: g.Tables.Arena.NodeID(r.Type),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Src != out[j].Src {
			return out[i].Src.Less(out[j].Src)
		}
		if out[i].Trg != out[j].Trg {
			return out[i].Trg.Less(out[j].Trg)
		}
		return out[i].Type.Less(out[j].Type)
	})
	return out, nil
}

// FindCircularReferenceNodes returns the identifiers of the nodes on
// hierarchical reference cycles within the namespace.
func (g *Graph) FindCircularReferenceNodes(namespaceURI string) ([]ua.NodeID, error) {
	index, ok := g.Tables.NamespaceIndex(namespaceURI)
	if !ok {
		return nil, graph.NewError("FindCircularReferenceNodes").Namespace(namespaceURI).
			Context("namespace uri not in graph").
			Cause(graph.ErrNoMatch).Err()
	}
	ids, err := navigation.FindCircularReferenceNodes(g.Tables, index)
	if err != nil {
		return nil, err
	}
	out := make([]ua.NodeID, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.Tables.Arena.NodeID(id))
	}
	return out, nil
}

// ObjectsOfType returns the Object nodes typed by the ObjectType with the
// browse name.
func (g *Graph) ObjectsOfType(typeName string) ([]*graph.Node, error) {
	htd, err := g.ReferenceTypeByBrowseName("HasTypeDefinition")
	if err != nil {
		return nil, err
	}
	typeID, err := g.ObjectTypeByBrowseName(typeName)
	if err != nil {
		return nil, err
	}
	var out []*graph.Node
	for _, r := range g.Tables.References {
		if r.Type == htd && r.Trg == typeID {
			out = append(out, g.Tables.NodeByID(r.Src))
		}
	}
	return out, nil
}

// BrowseNamesForNodeClass returns the distinct browse names of the class,
// in first-seen order. A non-nil namespace narrows to nodes defined there.
func (g *Graph) BrowseNamesForNodeClass(class graph.NodeClass, namespace *uint16) []string {
	seen := make(map[string]struct{})
	var out []string
	for i := range g.Tables.Nodes {
		n := &g.Tables.Nodes[i]
		if n.Class != class {
			continue
		}
		if namespace != nil && n.Namespace != *namespace {
			continue
		}
		if _, ok := seen[n.BrowseName]; ok {
			continue
		}
		seen[n.BrowseName] = struct{}{}
		out = append(out, n.BrowseName)
	}
	return out
}

// NodeClasses returns the distinct node classes present, in first-seen
// order.
func (g *Graph) NodeClasses() []graph.NodeClass {
	seen := make(map[graph.NodeClass]struct{})
	var out []graph.NodeClass
	for i := range g.Tables.Nodes {
		c := g.Tables.Nodes[i].Class
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
