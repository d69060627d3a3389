package graph

import (
	"errors"
	"strings"
	"testing"

	"github.com/graphforge/uanodeset/pkg/ua"
)

func numericID(ns uint16, value string) ua.NodeID {
	return ua.NodeID{Namespace: ns, Kind: ua.KindNumeric, Value: value}
}

func TestArenaInternFirstSeenOrder(t *testing.T) {
	a := NewArena()
	first := a.Intern(numericID(0, "85"))
	second := a.Intern(numericID(2, "5001"))
	again := a.Intern(numericID(0, "85"))

	if first != 0 || second != 1 {
		t.Errorf("ids not dense first-seen: %d %d", first, second)
	}
	if again != first {
		t.Errorf("re-intern returned a new id: %d vs %d", again, first)
	}
	if a.NodeID(second) != numericID(2, "5001") {
		t.Errorf("reverse lookup mismatch")
	}
	if a.Len() != 2 {
		t.Errorf("expected 2 interned ids, got %d", a.Len())
	}
}

func TestArenaLookupMiss(t *testing.T) {
	a := NewArena()
	if _, ok := a.Lookup(numericID(0, "85")); ok {
		t.Errorf("lookup should miss on empty arena")
	}
}

func newTestTables(t *testing.T) *Tables {
	t.Helper()
	tables := NewTables()
	add := func(nid ua.NodeID, class NodeClass, browse string, attrs NodeAttributes) ID {
		id := tables.Arena.Intern(nid)
		tables.Nodes = append(tables.Nodes, Node{
			NodeID:      nid,
			Class:       class,
			BrowseName:  browse,
			DisplayName: browse,
			Namespace:   nid.Namespace,
			Attrs:       attrs,
		})
		return id
	}
	add(numericID(0, "35"), ClassReferenceType, "Organizes", ReferenceTypeAttributes{})
	add(numericID(0, "85"), ClassObject, "Objects", ObjectAttributes{ParentNodeID: NilID})
	add(numericID(2, "5001"), ClassObject, "Machine", ObjectAttributes{ParentNodeID: NilID})
	tables.References = append(tables.References, Reference{Src: 1, Trg: 2, Type: 0})
	return tables
}

func TestValidateIntegrityClean(t *testing.T) {
	tables := newTestTables(t)
	if err := tables.ValidateIntegrity(); err != nil {
		t.Errorf("expected clean tables, got %v", err)
	}
}

func TestValidateIntegrityDanglingTarget(t *testing.T) {
	tables := newTestTables(t)
	dangling := tables.Arena.Intern(numericID(2, "9999"))
	tables.References = append(tables.References, Reference{Src: 1, Trg: dangling, Type: 0})

	err := tables.ValidateIntegrity()
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "ns=2;i=9999") {
		t.Errorf("diagnostic should name the dangling identifier: %s", msg)
	}
	if !strings.Contains(msg, "Objects") {
		t.Errorf("diagnostic should name the source display name: %s", msg)
	}
}

func TestValidateIntegrityBadAttributeRef(t *testing.T) {
	tables := newTestTables(t)
	tables.Nodes = append(tables.Nodes, Node{
		NodeID:     numericID(2, "6001"),
		Class:      ClassVariable,
		BrowseName: "Speed",
		Namespace:  2,
		Attrs:      VariableAttributes{DataType: 99, ParentNodeID: NilID},
	})
	tables.Arena.Intern(numericID(2, "6001"))

	err := tables.ValidateIntegrity()
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
	if !strings.Contains(err.Error(), "DataType") {
		t.Errorf("diagnostic should name the offending attribute: %s", err)
	}
}

func TestDedupReferences(t *testing.T) {
	tables := newTestTables(t)
	tables.References = append(tables.References,
		Reference{Src: 1, Trg: 2, Type: 0},
		Reference{Src: 2, Trg: 1, Type: 0},
	)
	tables.DedupReferences()
	if len(tables.References) != 2 {
		t.Errorf("expected 2 distinct references, got %d", len(tables.References))
	}
	if tables.References[0] != (Reference{Src: 1, Trg: 2, Type: 0}) {
		t.Errorf("dedup should preserve first occurrence order")
	}
}

func TestIDsOfClass(t *testing.T) {
	tables := newTestTables(t)
	objects := tables.IDsOfClass(ClassObject)
	if len(objects) != 2 {
		t.Errorf("expected 2 objects, got %d", len(objects))
	}
}

func TestNodeClassTags(t *testing.T) {
	if ClassVariable.XMLTag() != "UAVariable" {
		t.Errorf("unexpected tag %s", ClassVariable.XMLTag())
	}
	c, ok := NodeClassFromTag("UAReferenceType")
	if !ok || c != ClassReferenceType {
		t.Errorf("tag mapping failed: %v %v", c, ok)
	}
	if _, ok := NodeClassFromTag("Aliases"); ok {
		t.Errorf("non-node tag should not map")
	}
}
