package parser

import (
	"github.com/graphforge/uanodeset/pkg/graph"
	"github.com/graphforge/uanodeset/pkg/ua"
)

// consolidate merges the per-file results and normalizes every
// identifier-valued column to surrogate ids through one shared arena.
// Factorization order is column-wise: node identifiers first, then the
// id-valued node attributes, then the reference columns, each in row order,
// so identifiers shared between files collapse to one id.
func consolidate(results []fileResult, builder *NamespaceBuilder) (*graph.Tables, error) {
	tables := graph.NewTables()
	arena := tables.Arena

	var nodes []rawNode
	var refs []rawReference
	for _, res := range results {
		nodes = append(nodes, res.nodes...)
		refs = append(refs, res.references...)
		tables.Models = append(tables.Models, res.models...)
	}

	for i := range nodes {
		arena.Intern(nodes[i].nodeID)
	}
	for i := range nodes {
		if nodes[i].parentNodeID != nil {
			arena.Intern(*nodes[i].parentNodeID)
		}
	}
	for i := range nodes {
		if nodes[i].dataType != nil {
			arena.Intern(*nodes[i].dataType)
		}
	}
	for i := range nodes {
		if nodes[i].methodDeclarationID != nil {
			arena.Intern(*nodes[i].methodDeclarationID)
		}
	}
	for _, r := range refs {
		arena.Intern(r.src)
	}
	for _, r := range refs {
		arena.Intern(r.trg)
	}
	for _, r := range refs {
		arena.Intern(r.typ)
	}

	// Node rows must occupy the arena's leading id range so a surrogate id
	// doubles as the row index. Re-intern order above guarantees this:
	// node identifiers were interned before any other column.
	tables.Nodes = make([]graph.Node, len(nodes))
	for i := range nodes {
		row := normalizeNode(&nodes[i], arena)
		id, _ := arena.Lookup(nodes[i].nodeID)
		if int(id) != i {
			return nil, graph.NewError("consolidate").Node(id).
				Name(nodes[i].nodeID.String()).
				Context("duplicate node identifier").
				Cause(graph.ErrIntegrity).Err()
		}
		tables.Nodes[i] = *row
	}

	for _, r := range refs {
		src, _ := arena.Lookup(r.src)
		trg, _ := arena.Lookup(r.trg)
		typ, _ := arena.Lookup(r.typ)
		tables.References = append(tables.References, graph.Reference{Src: src, Trg: trg, Type: typ})
	}
	tables.DedupReferences()

	for i, uri := range builder.URIs() {
		tables.Namespaces = append(tables.Namespaces, graph.Namespace{Index: uint16(i), URI: uri})
	}
	return tables, nil
}

func normalizeNode(n *rawNode, arena *graph.Arena) *graph.Node {
	lookupOpt := func(id *ua.NodeID) graph.ID {
		if id == nil {
			return graph.NilID
		}
		sid, _ := arena.Lookup(*id)
		return sid
	}

	node := &graph.Node{
		NodeID:              n.nodeID,
		Class:               n.class,
		BrowseName:          n.browseName,
		BrowseNameNamespace: n.browseNS,
		DisplayName:         n.displayName,
		Description:         n.description,
		SymbolicName:        n.symbolicName,
		Namespace:           n.nodeID.Namespace,
	}

	switch n.class {
	case graph.ClassObject:
		node.Attrs = graph.ObjectAttributes{
			EventNotifier: n.eventNotifier,
			ParentNodeID:  lookupOpt(n.parentNodeID),
		}
	case graph.ClassObjectType:
		node.Attrs = graph.ObjectTypeAttributes{IsAbstract: n.isAbstract}
	case graph.ClassVariable:
		node.Attrs = graph.VariableAttributes{
			DataType:                lookupOpt(n.dataType),
			ParentNodeID:            lookupOpt(n.parentNodeID),
			ValueRank:               n.valueRank,
			ArrayDimensions:         n.arrayDimensions,
			AccessLevel:             n.accessLevel,
			UserAccessLevel:         n.userAccessLevel,
			MinimumSamplingInterval: n.minimumSamplingInterval,
			Historizing:             n.historizing,
			Value:                   n.value,
		}
	case graph.ClassVariableType:
		node.Attrs = graph.VariableTypeAttributes{
			DataType:   lookupOpt(n.dataType),
			ValueRank:  n.valueRank,
			IsAbstract: n.isAbstract,
			Value:      n.value,
		}
	case graph.ClassDataType:
		node.Attrs = graph.DataTypeAttributes{
			IsAbstract: n.isAbstract,
			Definition: n.definition,
		}
	case graph.ClassReferenceType:
		node.Attrs = graph.ReferenceTypeAttributes{
			IsAbstract:  n.isAbstract,
			Symmetric:   n.symmetric,
			InverseName: n.inverseName,
		}
	case graph.ClassMethod:
		node.Attrs = graph.MethodAttributes{
			Executable:          n.executable,
			UserExecutable:      n.userExecutable,
			ParentNodeID:        lookupOpt(n.parentNodeID),
			MethodDeclarationID: lookupOpt(n.methodDeclarationID),
		}
	case graph.ClassView:
		node.Attrs = graph.ViewAttributes{
			ContainsNoLoops: n.containsNoLoops,
			EventNotifier:   n.eventNotifier,
		}
	}
	return node
}
