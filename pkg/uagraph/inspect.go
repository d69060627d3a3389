package uagraph

import (
	"sort"
	"strings"

	"github.com/graphforge/uanodeset/pkg/graph"
	"github.com/graphforge/uanodeset/pkg/navigation"
	"github.com/graphforge/uanodeset/pkg/ua"
)

// Relation selects which end of a reference a neighborhood query anchors on.
type Relation uint8

const (
	// Outgoing anchors on the source column.
	Outgoing Relation = iota
	// Incoming anchors on the target column.
	Incoming
)

// NeighborRow is one reference row enriched with browse names and
// identifiers for both endpoints and the type.
type NeighborRow struct {
	ReferenceType string
	Source        string
	SourceNodeID  ua.NodeID
	Target        string
	TargetNodeID  ua.NodeID
}

// NeighboringNodesByID returns the references anchored on the node,
// enriched with endpoint browse names. Rows whose type or far endpoint has
// no node row are skipped, matching an inner join.
func (g *Graph) NeighboringNodesByID(id graph.ID, relation Relation) ([]NeighborRow, error) {
	if relation != Outgoing && relation != Incoming {
		return nil, graph.NewError("NeighboringNodesByID").Input().
			Context("relation must be Outgoing or Incoming").
			Cause(graph.ErrSchema).Err()
	}

	var out []NeighborRow
	for _, r := range g.Tables.References {
		anchor := r.Src
		if relation == Incoming {
			anchor = r.Trg
		}
		if anchor != id {
			continue
		}
		refType := g.Tables.NodeByID(r.Type)
		src := g.Tables.NodeByID(r.Src)
		trg := g.Tables.NodeByID(r.Trg)
		if refType == nil || src == nil || trg == nil {
			continue
		}
		out = append(out, NeighborRow{
			ReferenceType: refType.BrowseName,
			Source:        src.BrowseName,
			SourceNodeID:  src.NodeID,
			Target:        trg.BrowseName,
			TargetNodeID:  trg.NodeID,
		})
	}
	return out, nil
}

// NeighboringNodesByBrowseName resolves the node by browse name and class,
// then returns its enriched neighborhood.
func (g *Graph) NeighboringNodesByBrowseName(browseName string, class graph.NodeClass, relation Relation) ([]NeighborRow, error) {
	switch class {
	case graph.ClassObject, graph.ClassDataType, graph.ClassReferenceType,
		graph.ClassObjectType, graph.ClassVariableType:
	default:
		return nil, graph.NewError("NeighboringNodesByBrowseName").Input().
			Name(browseName).
			Context("class must be Object, DataType, ReferenceType, ObjectType or VariableType").
			Cause(graph.ErrSchema).Err()
	}
	id, err := g.nodeByBrowseName("NeighboringNodesByBrowseName", browseName, class, false)
	if err != nil {
		return nil, err
	}
	return g.NeighboringNodesByID(id, relation)
}

// InstanceTypeInfo pairs an instance node with the type it is defined by.
type InstanceTypeInfo struct {
	BrowseName     string
	NodeID         ua.NodeID
	TypeBrowseName string
	TypeNodeID     ua.NodeID
}

// InstancesWithTypeInfo returns every node carrying a HasTypeDefinition
// reference together with its type's browse name and identifier.
func (g *Graph) InstancesWithTypeInfo() ([]InstanceTypeInfo, error) {
	htd, err := g.ReferenceTypeByBrowseName("HasTypeDefinition")
	if err != nil {
		return nil, err
	}
	var out []InstanceTypeInfo
	for _, r := range g.Tables.References {
		if r.Type != htd {
			continue
		}
		src := g.Tables.NodeByID(r.Src)
		trg := g.Tables.NodeByID(r.Trg)
		out = append(out, InstanceTypeInfo{
			BrowseName:     src.BrowseName,
			NodeID:         src.NodeID,
			TypeBrowseName: trg.BrowseName,
			TypeNodeID:     trg.NodeID,
		})
	}
	return out, nil
}

// NodePath is a node reached from a traversal root, with the '/'-joined
// browse-name path leading to it.
type NodePath struct {
	ID   graph.ID
	Path string
}

// NodePathsByReferenceTypes walks from the root object along the given
// reference types and returns every reached node with its browse-name path,
// rooted at the root's own browse name and sorted by path.
func (g *Graph) NodePathsByReferenceTypes(rootBrowseName string, referenceTypes []string) ([]NodePath, error) {
	rootID, err := g.ObjectByBrowseName(rootBrowseName)
	if err != nil {
		return nil, err
	}

	typeIDs := make(map[graph.ID]struct{}, len(referenceTypes))
	for _, name := range referenceTypes {
		id, err := g.ReferenceTypeByBrowseName(name)
		if err != nil {
			return nil, err
		}
		typeIDs[id] = struct{}{}
	}

	var edges []graph.Reference
	for _, r := range g.Tables.References {
		if _, ok := typeIDs[r.Type]; ok {
			edges = append(edges, r)
		}
	}

	rows := navigation.FindRelatives([]graph.ID{rootID}, edges, navigation.FindRelativesOptions{
		Direction: navigation.Descendant,
		KeepPaths: true,
	})

	out := []NodePath{{ID: rootID, Path: rootBrowseName + "/"}}
	for _, row := range rows {
		if row.Hops == 0 {
			continue
		}
		names := make([]string, 0, len(row.Path)-1)
		for _, id := range row.Path[1:] {
			names = append(names, g.Tables.NodeByID(id).BrowseName)
		}
		out = append(out, NodePath{
			ID:   row.End,
			Path: rootBrowseName + "/" + strings.Join(names, "/"),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
