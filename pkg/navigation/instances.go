package navigation

import (
	"sort"
	"strings"

	"github.com/graphforge/uanodeset/pkg/graph"
)

// InstanceDeclaration is one declared instance member inherited by a type:
// the member node, its '/'-joined browse path from the type, the requesting
// type, the supertype that declared it and the modelling-rule browse names
// encountered along the path.
type InstanceDeclaration struct {
	InstanceID        graph.ID
	BrowsePath        string
	TypeID            graph.ID
	SuperTypeID       graph.ID
	ModellingRulePath []string
}

// FullyInheritedInstanceDeclarations computes, for each requested type, the
// complete set of instance members it declares or inherits: every node
// reachable from the type or one of its supertypes via hierarchical
// references whose target carries a HasModellingRule reference. Supertypes
// are visited most general first; when two levels of the chain declare the
// same browse path, the more derived declaration wins. Members nested under
// an Optional or Mandatory placeholder are templates, not real members, and
// are excluded.
func FullyInheritedInstanceDeclarations(requestTypeIDs []graph.ID, t *graph.Tables) ([]InstanceDeclaration, error) {
	if len(requestTypeIDs) == 0 {
		return nil, graph.NewError("FullyInheritedInstanceDeclarations").Input().
			Context("no requested types").Cause(graph.ErrEmptyInput).Err()
	}
	if len(t.Nodes) == 0 {
		return nil, graph.NewError("FullyInheritedInstanceDeclarations").Input().
			Context("no type-library nodes").Cause(graph.ErrEmptyInput).Err()
	}
	if err := checkRequestedTypesExist(requestTypeIDs, t); err != nil {
		return nil, err
	}

	chain, err := supertypeChains(requestTypeIDs, t)
	if err != nil {
		return nil, err
	}

	memberEdges, err := HierarchicalReferencesTargetHasModellingRule(t.References, t)
	if err != nil {
		return nil, err
	}
	modellingRule, err := modellingRuleNames(t)
	if err != nil {
		return nil, err
	}

	seeds := make([]graph.ID, len(chain))
	for i, link := range chain {
		seeds[i] = link.supertype
	}
	rows := FindRelatives(seeds, memberEdges, FindRelativesOptions{
		Direction: Descendant,
		KeepPaths: true,
	})

	var records []instanceRecord
	for _, row := range rows {
		link := chain[row.SeedIndex]
		var names []string
		var rulePath []string
		for _, inst := range row.Path {
			rule, hasRule := modellingRule[inst]
			if !hasRule && row.Hops != 0 {
				continue
			}
			name := ""
			if row.Hops != 0 {
				name = t.NodeByID(inst).BrowseName
			}
			names = append(names, name)
			if hasRule {
				rulePath = append(rulePath, rule)
			}
		}
		records = append(records, instanceRecord{
			decl: InstanceDeclaration{
				InstanceID:        row.End,
				BrowsePath:        strings.Join(names, "/"),
				TypeID:            link.typeID,
				SuperTypeID:       link.supertype,
				ModellingRulePath: rulePath,
			},
			index: link.index,
		})
	}

	// More derived declarations of the same browse path override more
	// general ones: sort descending by (type, chain index, path) and keep
	// the first of each (type, path) pair.
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.decl.TypeID != b.decl.TypeID {
			return a.decl.TypeID > b.decl.TypeID
		}
		if a.index != b.index {
			return a.index > b.index
		}
		return a.decl.BrowsePath > b.decl.BrowsePath
	})

	type pathKey struct {
		typeID graph.ID
		path   string
	}
	seen := make(map[pathKey]struct{})
	var out []InstanceDeclaration
	for _, rec := range records {
		key := pathKey{typeID: rec.decl.TypeID, path: rec.decl.BrowsePath}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if isPlaceholderSubNode(rec.decl.ModellingRulePath) {
			continue
		}
		out = append(out, rec.decl)
	}
	return out, nil
}

type instanceRecord struct {
	decl  InstanceDeclaration
	index int
}

// isPlaceholderSubNode reports whether the declaration sits below an
// Optional or Mandatory placeholder. The placeholder itself (rule path of
// length one) stays; its named children are templates and go.
func isPlaceholderSubNode(rulePath []string) bool {
	if len(rulePath) <= 1 {
		return false
	}
	for _, rule := range rulePath {
		if rule == "OptionalPlaceholder" || rule == "MandatoryPlaceholder" {
			return true
		}
	}
	return false
}

func checkRequestedTypesExist(requestTypeIDs []graph.ID, t *graph.Tables) error {
	var missing []string
	for _, id := range requestTypeIDs {
		node := t.NodeByID(id)
		if node == nil || !node.Class.IsType() {
			name := "unknown id"
			if t.Arena != nil && id >= 0 && int(id) < t.Arena.Len() {
				name = t.Arena.NodeID(id).String()
			}
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return graph.NewError("FullyInheritedInstanceDeclarations").Input().
		Context("missing requested types: " + strings.Join(missing, ", ")).
		Cause(graph.ErrUnknownType).Err()
}

type chainLink struct {
	typeID    graph.ID
	supertype graph.ID
	index     int
}

// supertypeChains flattens the supertype closure of the requested types into
// one link per (type, supertype) pair, ordered most general first within
// each type. Generality is measured by how many supertypes a type itself
// has: the root of the taxonomy has only itself.
func supertypeChains(requestTypeIDs []graph.ID, t *graph.Tables) ([]chainLink, error) {
	closure, err := TypingTransitiveReflexive(t)
	if err != nil {
		return nil, err
	}

	// depth[x] counts the supertypes of x, itself included. The taxonomy
	// root has depth one; deeper types have more.
	depth := make(map[graph.ID]int)
	for _, p := range closure {
		depth[p.Trg]++
	}

	want := make(map[graph.ID]struct{}, len(requestTypeIDs))
	for _, id := range requestTypeIDs {
		want[id] = struct{}{}
	}
	byType := make(map[graph.ID][]graph.ID)
	var typeOrder []graph.ID
	for _, p := range closure {
		if _, ok := want[p.Trg]; !ok {
			continue
		}
		if _, ok := byType[p.Trg]; !ok {
			typeOrder = append(typeOrder, p.Trg)
		}
		byType[p.Trg] = append(byType[p.Trg], p.Src)
	}

	var chain []chainLink
	for _, typeID := range typeOrder {
		supers := byType[typeID]
		sort.SliceStable(supers, func(i, j int) bool {
			if depth[supers[i]] != depth[supers[j]] {
				return depth[supers[i]] < depth[supers[j]]
			}
			return supers[i] < supers[j]
		})
		for i, s := range supers {
			chain = append(chain, chainLink{typeID: typeID, supertype: s, index: i})
		}
	}
	return chain, nil
}
