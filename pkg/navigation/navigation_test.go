package navigation

import (
	"errors"
	"strconv"
	"testing"

	"github.com/graphforge/uanodeset/pkg/graph"
	"github.com/graphforge/uanodeset/pkg/ua"
)

// typeFixture builds a minimal reference-type taxonomy plus whatever nodes
// a test adds on top of it.
type typeFixture struct {
	tables *graph.Tables
	nextID uint32
	ids    map[string]graph.ID
}

func newTypeFixture(t *testing.T) *typeFixture {
	t.Helper()
	f := &typeFixture{
		tables: graph.NewTables(),
		nextID: 1,
		ids:    make(map[string]graph.ID),
	}

	f.addNode("HierarchicalReferences", graph.ClassReferenceType)
	f.addNode("NonHierarchicalReferences", graph.ClassReferenceType)
	f.addNode("HasChild", graph.ClassReferenceType)
	f.addNode("HasComponent", graph.ClassReferenceType)
	f.addNode("HasProperty", graph.ClassReferenceType)
	f.addNode("Organizes", graph.ClassReferenceType)
	f.addNode("HasSubtype", graph.ClassReferenceType)
	f.addNode("HasModellingRule", graph.ClassReferenceType)
	f.addNode("HasTypeDefinition", graph.ClassReferenceType)

	f.addRef("HierarchicalReferences", "HasChild", "HasSubtype")
	f.addRef("HasChild", "HasComponent", "HasSubtype")
	f.addRef("HasChild", "HasProperty", "HasSubtype")
	f.addRef("HierarchicalReferences", "Organizes", "HasSubtype")
	f.addRef("NonHierarchicalReferences", "HasModellingRule", "HasSubtype")
	f.addRef("NonHierarchicalReferences", "HasTypeDefinition", "HasSubtype")

	f.addNode("Mandatory", graph.ClassObject)
	f.addNode("OptionalPlaceholder", graph.ClassObject)
	return f
}

func (f *typeFixture) addNode(browse string, class graph.NodeClass) graph.ID {
	nid := ua.NodeID{Kind: ua.KindNumeric, Value: strconv.FormatUint(uint64(f.nextID), 10)}
	f.nextID++
	id := f.tables.Arena.Intern(nid)
	f.tables.Nodes = append(f.tables.Nodes, graph.Node{
		NodeID:      nid,
		Class:       class,
		BrowseName:  browse,
		DisplayName: browse,
	})
	f.ids[browse] = id
	return id
}

func (f *typeFixture) addRef(src, trg, refType string) {
	f.tables.References = append(f.tables.References, graph.Reference{
		Src:  f.ids[src],
		Trg:  f.ids[trg],
		Type: f.ids[refType],
	})
}

func (f *typeFixture) id(browse string) graph.ID { return f.ids[browse] }

func pairSet(pairs []TypePair) map[[2]graph.ID]bool {
	set := make(map[[2]graph.ID]bool, len(pairs))
	for _, p := range pairs {
		set[[2]graph.ID{p.Type, p.Related}] = true
	}
	return set
}

func TestSubtypesOfNodesChain(t *testing.T) {
	f := newTypeFixture(t)
	a := f.addNode("A", graph.ClassObjectType)
	b := f.addNode("B", graph.ClassObjectType)
	c := f.addNode("C", graph.ClassObjectType)
	f.addRef("A", "B", "HasSubtype")
	f.addRef("B", "C", "HasSubtype")

	subs, err := SubtypesOfNodes([]graph.ID{a}, f.tables)
	if err != nil {
		t.Fatalf("subtypes failed: %v", err)
	}
	set := pairSet(subs)
	for _, want := range [][2]graph.ID{{a, a}, {a, b}, {a, c}} {
		if !set[want] {
			t.Errorf("missing subtype pair %v", want)
		}
	}
	for pair := range set {
		if pair[0] != a {
			t.Errorf("unexpected pair %v", pair)
		}
	}

	supers, err := SupertypesOfNodes([]graph.ID{c}, f.tables)
	if err != nil {
		t.Fatalf("supertypes failed: %v", err)
	}
	set = pairSet(supers)
	for _, want := range [][2]graph.ID{{c, c}, {c, b}, {c, a}} {
		if !set[want] {
			t.Errorf("missing supertype pair %v", want)
		}
	}
}

func TestTransitiveClosureRejectsSelfEdge(t *testing.T) {
	_, err := TransitiveClosure([]Pair{{Src: 1, Trg: 1}}, ClosureOptions{})
	if !errors.Is(err, graph.ErrSchema) {
		t.Errorf("expected ErrSchema, got %v", err)
	}
}

func TestTransitiveClosureFixedPointObservable(t *testing.T) {
	closure, err := TransitiveClosure([]Pair{{1, 2}, {2, 3}, {3, 4}}, ClosureOptions{})
	if err != nil {
		t.Fatalf("closure failed: %v", err)
	}
	if !closure.FixedPoint {
		t.Errorf("fixed point should be reached")
	}
	if closure.Rounds < 1 || closure.Rounds > MaxClosureRounds {
		t.Errorf("implausible round count %d", closure.Rounds)
	}
	if len(closure.Pairs) != 6 {
		t.Errorf("expected 6 strict closure pairs, got %d", len(closure.Pairs))
	}
}

func TestTransitiveClosureRoundCap(t *testing.T) {
	// A four-node chain grows for two squaring rounds and needs a third to
	// confirm the fixed point; any lower cap trips the divergence guard.
	chain := []Pair{{1, 2}, {2, 3}, {3, 4}}
	for _, limit := range []int{1, 2} {
		if _, err := TransitiveClosure(chain, ClosureOptions{MaxRounds: limit}); !errors.Is(err, graph.ErrClosureDiverged) {
			t.Errorf("cap %d: expected ErrClosureDiverged, got %v", limit, err)
		}
	}

	closure, err := TransitiveClosure(chain, ClosureOptions{MaxRounds: 3})
	if err != nil {
		t.Fatalf("three rounds suffice for a four-node chain: %v", err)
	}
	if !closure.FixedPoint || closure.Rounds != 3 {
		t.Errorf("expected fixed point in exactly 3 rounds, got %+v", closure)
	}
}

func TestTransitiveClosureCycleConverges(t *testing.T) {
	closure, err := TransitiveClosure([]Pair{{1, 2}, {2, 3}, {3, 1}}, ClosureOptions{})
	if err != nil {
		t.Fatalf("cyclic closure should still converge: %v", err)
	}
	// Every node reaches every other; the diagonal is not reported.
	if len(closure.Pairs) != 6 {
		t.Errorf("expected 6 pairs for a 3-cycle, got %d", len(closure.Pairs))
	}
}

func TestConstrainToReferenceTypeSubsumption(t *testing.T) {
	f := newTypeFixture(t)
	x := f.addNode("X", graph.ClassObject)
	y := f.addNode("Y", graph.ClassObject)
	f.addRef("X", "Y", "Organizes")
	f.addRef("X", "Y", "HasTypeDefinition")

	hier, err := HierarchicalReferences(f.tables.References, f.tables)
	if err != nil {
		t.Fatalf("hierarchical filter failed: %v", err)
	}
	for _, r := range hier {
		if r.Type == f.id("HasTypeDefinition") {
			t.Errorf("non-hierarchical reference leaked through")
		}
	}
	found := false
	for _, r := range hier {
		if r.Src == x && r.Trg == y && r.Type == f.id("Organizes") {
			found = true
		}
	}
	if !found {
		t.Errorf("Organizes is a hierarchical subtype and must be included")
	}
}

func TestResolveReferenceTypeAmbiguity(t *testing.T) {
	f := newTypeFixture(t)
	f.addNode("HasSubtype", graph.ClassReferenceType)

	if _, err := ResolveReferenceType(f.tables, "HasSubtype"); !errors.Is(err, graph.ErrAmbiguousMatch) {
		t.Errorf("duplicate browse name should be rejected, got %v", err)
	}
	if _, err := ResolveReferenceType(f.tables, "NoSuchReferenceType"); !errors.Is(err, graph.ErrNoMatch) {
		t.Errorf("missing browse name should be rejected, got %v", err)
	}
}

func TestFindRelativesKeepPaths(t *testing.T) {
	edges := []graph.Reference{
		{Src: 1, Trg: 2, Type: 0},
		{Src: 2, Trg: 3, Type: 0},
	}
	rows := FindRelatives([]graph.ID{1}, edges, FindRelativesOptions{
		Direction: Descendant,
		KeepPaths: true,
	})
	if len(rows) != 3 {
		t.Fatalf("expected seed row plus two hops, got %d rows", len(rows))
	}
	deepest := rows[len(rows)-1]
	if deepest.Hops != 2 || deepest.End != 3 {
		t.Errorf("unexpected deepest row: %+v", deepest)
	}
	if len(deepest.Path) != 3 || deepest.Path[0] != 1 || deepest.Path[2] != 3 {
		t.Errorf("path not retained: %v", deepest.Path)
	}
}

func TestFindRelativesAncestorDirection(t *testing.T) {
	edges := []graph.Reference{{Src: 1, Trg: 2, Type: 0}}
	rows := FindRelatives([]graph.ID{2}, edges, FindRelativesOptions{Direction: Ancestor})
	if len(rows) != 2 || rows[1].End != 1 {
		t.Errorf("ancestor traversal should reach the source: %+v", rows)
	}
}

func TestFindRelativesCutoff(t *testing.T) {
	edges := []graph.Reference{
		{Src: 1, Trg: 2, Type: 0},
		{Src: 2, Trg: 3, Type: 0},
	}
	rows := FindRelatives([]graph.ID{1}, edges, FindRelativesOptions{
		Direction: Descendant,
		Cutoff:    1,
	})
	for _, r := range rows {
		if r.Hops > 1 {
			t.Errorf("cutoff exceeded: %+v", r)
		}
	}
}

func TestFindCircularReferenceNodes(t *testing.T) {
	f := newTypeFixture(t)
	f.addNode("X", graph.ClassObject)
	f.addNode("Y", graph.ClassObject)
	f.addNode("Z", graph.ClassObject)
	f.addNode("W", graph.ClassObject)
	f.addRef("X", "Y", "Organizes")
	f.addRef("Y", "Z", "Organizes")
	f.addRef("Z", "X", "Organizes")

	circular, err := FindCircularReferenceNodes(f.tables, 0)
	if err != nil {
		t.Fatalf("detection failed: %v", err)
	}
	set := make(map[graph.ID]bool)
	for _, id := range circular {
		set[id] = true
	}
	for _, name := range []string{"X", "Y", "Z"} {
		if !set[f.id(name)] {
			t.Errorf("%s is on the cycle and must be reported", name)
		}
	}
	if set[f.id("W")] {
		t.Errorf("W has no edges into the cycle and must not be reported")
	}
}

func TestFullyInheritedInstanceDeclarations(t *testing.T) {
	f := newTypeFixture(t)
	f.addNode("S", graph.ClassObjectType)
	tID := f.addNode("T", graph.ClassObjectType)
	f.addNode("M", graph.ClassVariable)
	f.addNode("P", graph.ClassVariable)
	f.addNode("Q", graph.ClassVariable)

	f.addRef("S", "T", "HasSubtype")
	f.addRef("S", "M", "HasComponent")
	f.addRef("M", "Mandatory", "HasModellingRule")
	f.addRef("T", "P", "HasProperty")
	f.addRef("P", "Mandatory", "HasModellingRule")
	f.addRef("T", "Q", "HasProperty")

	decls, err := FullyInheritedInstanceDeclarations([]graph.ID{tID}, f.tables)
	if err != nil {
		t.Fatalf("declarations failed: %v", err)
	}

	paths := make(map[string]InstanceDeclaration)
	for _, d := range decls {
		paths[d.BrowsePath] = d
	}
	p, ok := paths["P"]
	if !ok {
		t.Fatalf("P has a modelling rule and must be declared; got %v", paths)
	}
	if p.TypeID != tID || p.InstanceID != f.id("P") {
		t.Errorf("unexpected declaration for P: %+v", p)
	}
	if len(p.ModellingRulePath) != 1 || p.ModellingRulePath[0] != "Mandatory" {
		t.Errorf("unexpected modelling rule path for P: %v", p.ModellingRulePath)
	}
	if _, ok := paths["Q"]; ok {
		t.Errorf("Q has no modelling rule and must be excluded")
	}
	m, ok := paths["M"]
	if !ok {
		t.Fatalf("M is inherited from the supertype and must be declared")
	}
	if m.SuperTypeID != f.id("S") {
		t.Errorf("M should be attributed to supertype S: %+v", m)
	}
}

func TestFullyInheritedInstanceDeclarationsPlaceholderChildren(t *testing.T) {
	f := newTypeFixture(t)
	tID := f.addNode("T", graph.ClassObjectType)
	f.addNode("PH", graph.ClassObject)
	f.addNode("Template", graph.ClassVariable)

	f.addRef("T", "PH", "HasComponent")
	f.addRef("PH", "OptionalPlaceholder", "HasModellingRule")
	f.addRef("PH", "Template", "HasComponent")
	f.addRef("Template", "Mandatory", "HasModellingRule")

	decls, err := FullyInheritedInstanceDeclarations([]graph.ID{tID}, f.tables)
	if err != nil {
		t.Fatalf("declarations failed: %v", err)
	}
	for _, d := range decls {
		if d.BrowsePath == "PH/Template" {
			t.Errorf("children of a placeholder are templates and must be excluded")
		}
	}
	found := false
	for _, d := range decls {
		if d.BrowsePath == "PH" {
			found = true
		}
	}
	if !found {
		t.Errorf("the placeholder itself must stay declared")
	}
}

func TestFullyInheritedInstanceDeclarationsValidation(t *testing.T) {
	f := newTypeFixture(t)
	tID := f.addNode("T", graph.ClassObjectType)
	obj := f.addNode("NotAType", graph.ClassObject)

	if _, err := FullyInheritedInstanceDeclarations(nil, f.tables); !errors.Is(err, graph.ErrEmptyInput) {
		t.Errorf("empty request should fail with ErrEmptyInput, got %v", err)
	}
	if _, err := FullyInheritedInstanceDeclarations([]graph.ID{obj}, f.tables); !errors.Is(err, graph.ErrUnknownType) {
		t.Errorf("non-type id should fail with ErrUnknownType, got %v", err)
	}
	if _, err := FullyInheritedInstanceDeclarations([]graph.ID{tID}, graph.NewTables()); !errors.Is(err, graph.ErrEmptyInput) {
		t.Errorf("empty tables should fail with ErrEmptyInput, got %v", err)
	}
}
