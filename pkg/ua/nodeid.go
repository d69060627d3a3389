// Package ua defines the namespace-qualified node identifier and the tagged
// union of OPC UA built-in values that the rest of the module operates over.
package ua

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/uuid"
)

// Sentinel errors for identifier parsing.
var (
	ErrMalformedIdentifier = errors.New("malformed node identifier")
	ErrUnmappedNamespace   = errors.New("namespace index missing from namespace map")
)

// IDKind is the identifier kind of a NodeID.
type IDKind uint8

const (
	KindNumeric IDKind = iota
	KindString
	KindGuid
	KindOpaque
)

// Tag returns the single-letter wire tag for the kind.
func (k IDKind) Tag() string {
	switch k {
	case KindNumeric:
		return "i"
	case KindString:
		return "s"
	case KindGuid:
		return "g"
	case KindOpaque:
		return "b"
	default:
		return "?"
	}
}

func kindFromTag(tag string) (IDKind, bool) {
	switch tag {
	case "i":
		return KindNumeric, true
	case "s":
		return KindString, true
	case "g":
		return KindGuid, true
	case "b":
		return KindOpaque, true
	}
	return 0, false
}

// NodeID is a namespace-qualified node identifier. It is an immutable value
// type; two identifiers are equal iff namespace, kind and value all match.
type NodeID struct {
	Namespace uint16
	Kind      IDKind
	Value     string
}

// String renders the canonical textual form "ns=<n>;<k>=<v>", omitting the
// "ns=" prefix for namespace 0.
func (n NodeID) String() string {
	if n.Namespace == 0 {
		return n.Kind.Tag() + "=" + n.Value
	}
	return "ns=" + strconv.Itoa(int(n.Namespace)) + ";" + n.Kind.Tag() + "=" + n.Value
}

// Less orders identifiers by their canonical textual form.
func (n NodeID) Less(other NodeID) bool {
	return n.String() < other.String()
}

// XMLEncode renders the identifier as a Types.xsd <Identifier> element.
func (n NodeID) XMLEncode(includeXMLNS bool) string {
	x := "<Identifier"
	if includeXMLNS {
		x += " " + XMLNSAttrib
	}
	return x + ">" + n.String() + "</Identifier>"
}

// AliasMap maps symbolic alias names (from a file's <Aliases> block) to
// resolved identifiers. Aliases never survive past parsing.
type AliasMap map[string]NodeID

// NamespaceMap remaps file-local namespace indices to consolidated indices.
// Every index encountered during parsing must have an entry.
type NamespaceMap map[uint16]uint16

var (
	nodeIDWithNS    = regexp.MustCompile(`^ns=(\d+);([isgb])=(.*)$`)
	nodeIDWithoutNS = regexp.MustCompile(`^([isgb])=(.*)$`)
)

// ParseNodeID parses an identifier from its textual form without alias or
// namespace remapping.
func ParseNodeID(text string) (NodeID, error) {
	return ResolveNodeID(text, nil, nil)
}

// ResolveNodeID parses an identifier from its textual form. The alias map, if
// supplied, is consulted before generic parsing: an exact match returns the
// mapped identifier unchanged. The namespace map, if supplied, must contain
// an entry for every namespace index encountered.
func ResolveNodeID(text string, nsMap NamespaceMap, aliases AliasMap) (NodeID, error) {
	if aliases != nil {
		if id, ok := aliases[text]; ok {
			return id, nil
		}
	}

	var ns uint64
	var kindTag, value string
	if m := nodeIDWithNS.FindStringSubmatch(text); m != nil {
		var err error
		ns, err = strconv.ParseUint(m[1], 10, 16)
		if err != nil {
			return NodeID{}, fmt.Errorf("%w: %q: namespace index out of range", ErrMalformedIdentifier, text)
		}
		kindTag, value = m[2], m[3]
	} else if m := nodeIDWithoutNS.FindStringSubmatch(text); m != nil {
		kindTag, value = m[1], m[2]
	} else {
		return NodeID{}, fmt.Errorf("%w: %q", ErrMalformedIdentifier, text)
	}

	kind, ok := kindFromTag(kindTag)
	if !ok {
		return NodeID{}, fmt.Errorf("%w: %q: unknown kind %q", ErrMalformedIdentifier, text, kindTag)
	}

	if err := validateIDValue(kind, value); err != nil {
		return NodeID{}, fmt.Errorf("%w: %q: %v", ErrMalformedIdentifier, text, err)
	}

	namespace := uint16(ns)
	if nsMap != nil {
		mapped, ok := nsMap[namespace]
		if !ok {
			return NodeID{}, fmt.Errorf("%w: index %d in %q", ErrUnmappedNamespace, namespace, text)
		}
		namespace = mapped
	}

	return NodeID{Namespace: namespace, Kind: kind, Value: value}, nil
}

func validateIDValue(kind IDKind, value string) error {
	switch kind {
	case KindNumeric:
		if value == "" {
			return errors.New("empty numeric value")
		}
		if len(value) > 1 && value[0] == '0' {
			return errors.New("leading zero in numeric value")
		}
		for _, c := range value {
			if c < '0' || c > '9' {
				return errors.New("non-digit in numeric value")
			}
		}
	case KindGuid:
		if _, err := uuid.Parse(value); err != nil {
			return fmt.Errorf("invalid guid: %v", err)
		}
	}
	return nil
}
