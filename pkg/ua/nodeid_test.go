package ua

import (
	"errors"
	"sort"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestParseNodeIDNumeric(t *testing.T) {
	id, err := ParseNodeID("i=85")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if id.Namespace != 0 || id.Kind != KindNumeric || id.Value != "85" {
		t.Errorf("unexpected identifier: %+v", id)
	}
	if id.String() != "i=85" {
		t.Errorf("expected i=85, got %s", id.String())
	}
}

func TestParseNodeIDWithNamespace(t *testing.T) {
	id, err := ParseNodeID("ns=2;s=Machine.Temperature")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if id.Namespace != 2 || id.Kind != KindString || id.Value != "Machine.Temperature" {
		t.Errorf("unexpected identifier: %+v", id)
	}
	if id.String() != "ns=2;s=Machine.Temperature" {
		t.Errorf("round trip mismatch: %s", id.String())
	}
}

func TestParseNodeIDGuid(t *testing.T) {
	id, err := ParseNodeID("ns=1;g=09087e75-8e5e-499b-954f-f2a9603db28a")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if id.Kind != KindGuid {
		t.Errorf("expected guid kind, got %v", id.Kind)
	}
}

func TestParseNodeIDMalformed(t *testing.T) {
	cases := []string{
		"",
		"i=",
		"i=01",
		"i=5x",
		"x=5",
		"ns=2;x=5",
		"ns=99999999;i=5",
		"g=not-a-guid",
		"just text",
	}
	for _, c := range cases {
		if _, err := ParseNodeID(c); !errors.Is(err, ErrMalformedIdentifier) {
			t.Errorf("%q: expected ErrMalformedIdentifier, got %v", c, err)
		}
	}
}

func TestResolveNodeIDAlias(t *testing.T) {
	aliases := AliasMap{
		"HasComponent": {Namespace: 0, Kind: KindNumeric, Value: "47"},
	}
	id, err := ResolveNodeID("HasComponent", nil, aliases)
	if err != nil {
		t.Fatalf("alias resolution failed: %v", err)
	}
	if id.Value != "47" {
		t.Errorf("expected i=47, got %s", id.String())
	}
}

func TestResolveNodeIDNamespaceRemap(t *testing.T) {
	nsMap := NamespaceMap{0: 0, 1: 3}
	id, err := ResolveNodeID("ns=1;i=5001", nsMap, nil)
	if err != nil {
		t.Fatalf("remap failed: %v", err)
	}
	if id.Namespace != 3 {
		t.Errorf("expected namespace 3, got %d", id.Namespace)
	}
}

func TestResolveNodeIDUnmappedNamespace(t *testing.T) {
	nsMap := NamespaceMap{0: 0}
	if _, err := ResolveNodeID("ns=7;i=1", nsMap, nil); !errors.Is(err, ErrUnmappedNamespace) {
		t.Errorf("expected ErrUnmappedNamespace, got %v", err)
	}
}

func TestNodeIDOrdering(t *testing.T) {
	ids := []NodeID{
		{Namespace: 2, Kind: KindString, Value: "b"},
		{Namespace: 0, Kind: KindNumeric, Value: "85"},
		{Namespace: 2, Kind: KindNumeric, Value: "1"},
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	for i := 1; i < len(ids); i++ {
		if ids[i].String() < ids[i-1].String() {
			t.Errorf("not sorted by canonical text: %s before %s", ids[i-1], ids[i])
		}
	}
}

func TestNodeIDRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	genID := gopter.CombineGens(
		gen.UInt16(),
		gen.UInt32(),
	).Map(func(vals []interface{}) NodeID {
		return NodeID{
			Namespace: vals[0].(uint16),
			Kind:      KindNumeric,
			Value:     strconv.FormatUint(uint64(vals[1].(uint32)), 10),
		}
	})

	properties.Property("numeric identifiers survive format and reparse", prop.ForAll(
		func(id NodeID) bool {
			parsed, err := ParseNodeID(id.String())
			return err == nil && parsed == id
		},
		genID,
	))

	properties.TestingRun(t)
}
