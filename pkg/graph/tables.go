// Package graph holds the normalized node and reference tables that every
// algorithm in the module operates over, together with the surrogate id
// arena that maps namespace-qualified identifiers to dense int32 ids.
package graph

import (
	"sort"

	"github.com/graphforge/uanodeset/pkg/ua"
)

// ID is a dense surrogate id into the node table.
type ID = int32

// NilID marks an absent id reference.
const NilID ID = -1

// Arena is the bijective mapping between namespace-qualified identifiers
// and surrogate ids. Ids are handed out in first-seen order.
type Arena struct {
	byNodeID map[ua.NodeID]ID
	byID     []ua.NodeID
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{byNodeID: make(map[ua.NodeID]ID)}
}

// Intern returns the surrogate id for the identifier, allocating the next
// dense id on first sight.
func (a *Arena) Intern(nid ua.NodeID) ID {
	if id, ok := a.byNodeID[nid]; ok {
		return id
	}
	id := ID(len(a.byID))
	a.byNodeID[nid] = id
	a.byID = append(a.byID, nid)
	return id
}

// Lookup returns the surrogate id for the identifier if it has been interned.
func (a *Arena) Lookup(nid ua.NodeID) (ID, bool) {
	id, ok := a.byNodeID[nid]
	return id, ok
}

// NodeID returns the identifier for a surrogate id. It panics on ids the
// arena never handed out; callers index with ids obtained from Intern or
// Lookup only.
func (a *Arena) NodeID(id ID) ua.NodeID {
	return a.byID[id]
}

// Len returns the number of interned identifiers.
func (a *Arena) Len() int {
	return len(a.byID)
}

// Reference is one row of the normalized reference table. All three columns
// are surrogate ids; the row is stored in source-to-target direction.
type Reference struct {
	Src  ID
	Trg  ID
	Type ID
}

// Namespace pairs a consolidated namespace index with its URI and the index
// of the file it was declared in.
type Namespace struct {
	Index uint16
	URI   string
}

// Tables is the normalized in-memory form of one or more parsed files:
// a node table indexed by surrogate id, a reference table, the consolidated
// namespace array and the per-file model headers.
type Tables struct {
	Nodes      []Node
	References []Reference
	Namespaces []Namespace
	Models     []ua.Model
	Arena      *Arena
}

// NewTables returns empty tables sharing a fresh arena.
func NewTables() *Tables {
	return &Tables{Arena: NewArena()}
}

// NodeByID returns the node row for a surrogate id.
func (t *Tables) NodeByID(id ID) *Node {
	if id < 0 || int(id) >= len(t.Nodes) {
		return nil
	}
	return &t.Nodes[id]
}

// IDsOfClass returns the surrogate ids of every node of the given class.
func (t *Tables) IDsOfClass(class NodeClass) []ID {
	var out []ID
	for i := range t.Nodes {
		if t.Nodes[i].Class == class {
			out = append(out, ID(i))
		}
	}
	return out
}

// NamespaceURI returns the URI for a consolidated namespace index, or "".
func (t *Tables) NamespaceURI(index uint16) string {
	for _, ns := range t.Namespaces {
		if ns.Index == index {
			return ns.URI
		}
	}
	return ""
}

// NamespaceIndex returns the consolidated index for a namespace URI.
func (t *Tables) NamespaceIndex(uri string) (uint16, bool) {
	for _, ns := range t.Namespaces {
		if ns.URI == uri {
			return ns.Index, true
		}
	}
	return 0, false
}

// DedupReferences removes exact duplicate reference rows in place,
// preserving first occurrence order.
func (t *Tables) DedupReferences() {
	seen := make(map[Reference]struct{}, len(t.References))
	out := t.References[:0]
	for _, r := range t.References {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	t.References = out
}

// OutgoingFrom returns the reference rows whose source is one of the ids.
func (t *Tables) OutgoingFrom(ids []ID) []Reference {
	set := idSet(ids)
	var out []Reference
	for _, r := range t.References {
		if _, ok := set[r.Src]; ok {
			out = append(out, r)
		}
	}
	return out
}

// IncomingTo returns the reference rows whose target is one of the ids.
func (t *Tables) IncomingTo(ids []ID) []Reference {
	set := idSet(ids)
	var out []Reference
	for _, r := range t.References {
		if _, ok := set[r.Trg]; ok {
			out = append(out, r)
		}
	}
	return out
}

// ValidateIntegrity checks that every reference endpoint and every
// id-valued attribute points at an existing node row. Violations are
// reported together in one error naming each offending row.
func (t *Tables) ValidateIntegrity() error {
	n := ID(len(t.Nodes))
	valid := func(id ID) bool { return id >= 0 && id < n }

	var bad []string
	for _, r := range t.References {
		if !valid(r.Src) || !valid(r.Trg) || !valid(r.Type) {
			bad = append(bad, referenceDiagnostic(t, r))
		}
	}
	for i := range t.Nodes {
		node := &t.Nodes[i]
		for _, ref := range attributeIDRefs(node) {
			if ref.id != NilID && !valid(ref.id) {
				bad = append(bad, nodeDiagnostic(t, ID(i), ref.attr))
			}
		}
	}
	if len(bad) == 0 {
		return nil
	}
	sort.Strings(bad)
	return NewError("ValidateIntegrity").Reference().
		Context(joinDiagnostics(bad)).
		Cause(ErrIntegrity).Err()
}

type attrIDRef struct {
	attr string
	id   ID
}

func attributeIDRefs(n *Node) []attrIDRef {
	switch a := n.Attrs.(type) {
	case ObjectAttributes:
		return []attrIDRef{{"ParentNodeId", a.ParentNodeID}}
	case VariableAttributes:
		return []attrIDRef{{"DataType", a.DataType}, {"ParentNodeId", a.ParentNodeID}}
	case VariableTypeAttributes:
		return []attrIDRef{{"DataType", a.DataType}}
	case MethodAttributes:
		return []attrIDRef{{"ParentNodeId", a.ParentNodeID}, {"MethodDeclarationId", a.MethodDeclarationID}}
	}
	return nil
}

func referenceDiagnostic(t *Tables, r Reference) string {
	return "reference (" + endpointDiagnostic(t, r.Src) + ") -[" +
		endpointDiagnostic(t, r.Type) + "]-> (" + endpointDiagnostic(t, r.Trg) + ")"
}

func nodeDiagnostic(t *Tables, id ID, attr string) string {
	return "node " + endpointDiagnostic(t, id) + " attribute " + attr
}

func endpointDiagnostic(t *Tables, id ID) string {
	if node := t.NodeByID(id); node != nil {
		name := node.DisplayName
		if name == "" {
			name = node.BrowseName
		}
		return name + " " + node.NodeID.String()
	}
	if t.Arena != nil && id >= 0 && int(id) < t.Arena.Len() {
		return "dangling " + t.Arena.NodeID(id).String()
	}
	return "unknown id"
}

func joinDiagnostics(diags []string) string {
	s := diags[0]
	for _, d := range diags[1:] {
		s += "; " + d
	}
	return s
}

func idSet(ids []ID) map[ID]struct{} {
	set := make(map[ID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
