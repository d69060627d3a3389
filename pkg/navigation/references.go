package navigation

import (
	"fmt"

	"github.com/graphforge/uanodeset/pkg/graph"
)

// ResolveReferenceType resolves a reference-type browse name fixed by the
// OPC UA meta-model taxonomy to its surrogate id. Exactly one node with
// NodeClass ReferenceType and a matching browse name must exist.
func ResolveReferenceType(t *graph.Tables, browseName string) (graph.ID, error) {
	var matches []graph.ID
	for i := range t.Nodes {
		if t.Nodes[i].Class == graph.ClassReferenceType && t.Nodes[i].BrowseName == browseName {
			matches = append(matches, graph.ID(i))
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return graph.NilID, graph.NoMatchError("ResolveReferenceType", browseName)
	default:
		return graph.NilID, graph.AmbiguousMatchError("ResolveReferenceType", browseName, len(matches))
	}
}

// ConstrainToReferenceType returns the subset of references whose type is
// one of the allowed types or any transitive subtype of one. Subsumption
// requires the closure: HierarchicalReferences is itself a type with
// subtypes such as HasChild and Organizes.
func ConstrainToReferenceType(references []graph.Reference, t *graph.Tables, allowed []graph.ID) ([]graph.Reference, error) {
	subtypes, err := SubtypesOfNodes(allowed, t)
	if err != nil {
		return nil, err
	}
	allowedSet := make(map[graph.ID]struct{}, len(subtypes))
	for _, p := range subtypes {
		allowedSet[p.Related] = struct{}{}
	}
	var out []graph.Reference
	for _, r := range references {
		if _, ok := allowedSet[r.Type]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func referencesOfCategory(references []graph.Reference, t *graph.Tables, browseName string) ([]graph.Reference, error) {
	id, err := ResolveReferenceType(t, browseName)
	if err != nil {
		return nil, err
	}
	return ConstrainToReferenceType(references, t, []graph.ID{id})
}

// HierarchicalReferences returns the references whose type is
// HierarchicalReferences or a subtype of it.
func HierarchicalReferences(references []graph.Reference, t *graph.Tables) ([]graph.Reference, error) {
	return referencesOfCategory(references, t, "HierarchicalReferences")
}

// NonHierarchicalReferences returns the references whose type is
// NonHierarchicalReferences or a subtype of it.
func NonHierarchicalReferences(references []graph.Reference, t *graph.Tables) ([]graph.Reference, error) {
	return referencesOfCategory(references, t, "NonHierarchicalReferences")
}

// HasPropertyReferences returns the references whose type is HasProperty or
// a subtype of it.
func HasPropertyReferences(references []graph.Reference, t *graph.Tables) ([]graph.Reference, error) {
	return referencesOfCategory(references, t, "HasProperty")
}

// HasModellingRuleReferences returns the references whose type is
// HasModellingRule or a subtype of it.
func HasModellingRuleReferences(references []graph.Reference, t *graph.Tables) ([]graph.Reference, error) {
	return referencesOfCategory(references, t, "HasModellingRule")
}

// HasSubtypeReferences returns the references typed exactly HasSubtype.
func HasSubtypeReferences(references []graph.Reference, t *graph.Tables) ([]graph.Reference, error) {
	id, err := ResolveReferenceType(t, "HasSubtype")
	if err != nil {
		return nil, err
	}
	var out []graph.Reference
	for _, r := range references {
		if r.Type == id {
			out = append(out, r)
		}
	}
	return out, nil
}

// HasTypeDefinitionReferences returns the references typed exactly
// HasTypeDefinition.
func HasTypeDefinitionReferences(references []graph.Reference, t *graph.Tables) ([]graph.Reference, error) {
	id, err := ResolveReferenceType(t, "HasTypeDefinition")
	if err != nil {
		return nil, err
	}
	var out []graph.Reference
	for _, r := range references {
		if r.Type == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func modellingRuleTargets(references []graph.Reference, t *graph.Tables) (map[graph.ID]struct{}, error) {
	mr, err := HasModellingRuleReferences(references, t)
	if err != nil {
		return nil, err
	}
	set := make(map[graph.ID]struct{}, len(mr))
	for _, r := range mr {
		set[r.Src] = struct{}{}
	}
	return set, nil
}

// modellingRuleNames maps each node with a HasModellingRule reference to
// the browse name of its modelling rule. The first rule wins if a node
// carries several.
func modellingRuleNames(t *graph.Tables) (map[graph.ID]string, error) {
	mr, err := HasModellingRuleReferences(t.References, t)
	if err != nil {
		return nil, err
	}
	names := make(map[graph.ID]string, len(mr))
	for _, r := range mr {
		if _, ok := names[r.Src]; ok {
			continue
		}
		if node := t.NodeByID(r.Trg); node != nil {
			names[r.Src] = node.BrowseName
		}
	}
	return names, nil
}

// HierarchicalReferencesTargetHasModellingRule returns the hierarchical
// references whose target node itself carries a HasModellingRule reference.
// These edges lead to declared instance members of a type.
func HierarchicalReferencesTargetHasModellingRule(references []graph.Reference, t *graph.Tables) ([]graph.Reference, error) {
	hier, err := HierarchicalReferences(references, t)
	if err != nil {
		return nil, err
	}
	withRule, err := modellingRuleTargets(references, t)
	if err != nil {
		return nil, err
	}
	var out []graph.Reference
	for _, r := range hier {
		if _, ok := withRule[r.Trg]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// HierarchicalReferencesTargetHasNoModellingRule is the complement of
// HierarchicalReferencesTargetHasModellingRule. Useful for keeping forward
// references to methods when instantiating.
func HierarchicalReferencesTargetHasNoModellingRule(references []graph.Reference, t *graph.Tables) ([]graph.Reference, error) {
	hier, err := HierarchicalReferences(references, t)
	if err != nil {
		return nil, err
	}
	withRule, err := modellingRuleTargets(references, t)
	if err != nil {
		return nil, err
	}
	var out []graph.Reference
	for _, r := range hier {
		if _, ok := withRule[r.Trg]; !ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// NonHierarchicalReferencesTargetHasNoModellingRule returns the
// non-hierarchical references whose target does not carry a HasModellingRule
// reference. In a type namespace this excludes references pointing at
// instance declarations.
func NonHierarchicalReferencesTargetHasNoModellingRule(references []graph.Reference, t *graph.Tables) ([]graph.Reference, error) {
	nonHier, err := NonHierarchicalReferences(references, t)
	if err != nil {
		return nil, err
	}
	withRule, err := modellingRuleTargets(references, t)
	if err != nil {
		return nil, err
	}
	var out []graph.Reference
	for _, r := range nonHier {
		if _, ok := withRule[r.Trg]; !ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// FindCircularReferenceNodes restricts the hierarchical references to those
// with an endpoint in the given namespace, computes the transitive closure
// of that restricted relation and reports every source id that can reach a
// node which also reaches it back. Any such pair means a directed cycle.
func FindCircularReferenceNodes(t *graph.Tables, namespace uint16) ([]graph.ID, error) {
	hier, err := HierarchicalReferences(t.References, t)
	if err != nil {
		return nil, err
	}

	var edges []Pair
	for _, r := range hier {
		src := t.NodeByID(r.Src)
		trg := t.NodeByID(r.Trg)
		if src == nil || trg == nil {
			return nil, graph.NewError("FindCircularReferenceNodes").Reference().
				Context(fmt.Sprintf("dangling endpoint %d or %d", r.Src, r.Trg)).
				Cause(graph.ErrIntegrity).Err()
		}
		if src.Namespace == namespace || trg.Namespace == namespace {
			edges = append(edges, Pair{Src: r.Src, Trg: r.Trg})
		}
	}

	closure, err := TransitiveClosure(edges, ClosureOptions{})
	if err != nil {
		return nil, err
	}

	reach := make(map[Pair]struct{}, len(closure.Pairs))
	for _, p := range closure.Pairs {
		reach[p] = struct{}{}
	}
	seen := make(map[graph.ID]struct{})
	var out []graph.ID
	for _, p := range closure.Pairs {
		if _, back := reach[Pair{Src: p.Trg, Trg: p.Src}]; back {
			if _, dup := seen[p.Src]; !dup {
				seen[p.Src] = struct{}{}
				out = append(out, p.Src)
			}
		}
	}
	return out, nil
}
