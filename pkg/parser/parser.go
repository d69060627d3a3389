// Package parser reads NodeSet2 XML files into the normalized node and
// reference tables. Per file it extracts namespace declarations, aliases and
// model headers, maps node elements to rows and normalizes reference
// direction; across files it consolidates namespaces and factorizes every
// identifier-valued column to dense surrogate ids through one shared arena.
package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/graphforge/uanodeset/pkg/graph"
	"github.com/graphforge/uanodeset/pkg/logging"
	"github.com/graphforge/uanodeset/pkg/ua"
)

// Parser parses one or more NodeSet2 files into consolidated tables.
type Parser struct {
	log logging.Logger
}

// NewParser returns a parser logging through the given logger.
func NewParser(log logging.Logger) *Parser {
	if log == nil {
		log = logging.NopLogger{}
	}
	return &Parser{log: log}
}

// rawNode is one node element before surrogate-id normalization: all
// identifier-valued fields still carry namespace-qualified identifiers.
type rawNode struct {
	nodeID       ua.NodeID
	class        graph.NodeClass
	browseName   string
	browseNS     uint16
	displayName  string
	description  string
	symbolicName string

	dataType            *ua.NodeID
	parentNodeID        *ua.NodeID
	methodDeclarationID *ua.NodeID

	valueRank               *int32
	isAbstract              bool
	symmetric               bool
	historizing             bool
	containsNoLoops         bool
	accessLevel             *uint8
	userAccessLevel         *uint8
	eventNotifier           uint8
	minimumSamplingInterval *float64
	arrayDimensions         string
	executable              *bool
	userExecutable          *bool
	inverseName             string

	value      ua.Value
	definition *ua.DataTypeDefinition
}

type rawReference struct {
	src ua.NodeID
	trg ua.NodeID
	typ ua.NodeID
}

type fileResult struct {
	nodes      []rawNode
	references []rawReference
	models     []ua.Model
}

// ParseFiles parses the given files in sorted order and consolidates them
// into one set of normalized tables. If desiredNamespaces is non-empty,
// files declaring none of the desired namespaces are skipped and the
// consolidated namespace array follows the desired order.
func (p *Parser) ParseFiles(files []string, desiredNamespaces []string) (*graph.Tables, error) {
	if len(desiredNamespaces) > 0 {
		filtered, err := ExcludeFilesNotInNamespaces(files, desiredNamespaces)
		if err != nil {
			return nil, err
		}
		files = filtered
	}

	builder := NewNamespaceBuilder(desiredNamespaces, p.log)
	var results []fileResult

	sorted := append([]string(nil), files...)
	sort.Strings(sorted)
	for _, file := range sorted {
		if !strings.HasSuffix(file, ".xml") {
			continue
		}
		f, err := os.Open(file)
		if err != nil {
			return nil, graph.SchemaError("ParseFiles", file, err)
		}

		timer := logging.StartTimer(p.log, "parse_file", logging.File(file))
		res, err := p.parseReader(f, builder)
		f.Close()
		if err != nil {
			timer.EndError(err)
			return nil, graph.SchemaError("ParseFiles", file, err)
		}
		timer.End(
			logging.Nodes(len(res.nodes)),
			logging.References(len(res.references)),
		)
		results = append(results, *res)
	}

	return consolidate(results, builder)
}

// ParseDir parses every .xml file in the directory.
func (p *Parser) ParseDir(dir string, desiredNamespaces []string) (*graph.Tables, error) {
	files, err := ListXMLFiles(dir)
	if err != nil {
		return nil, err
	}
	return p.ParseFiles(files, desiredNamespaces)
}

// ParseReader parses a single document from r. Intended for tests and
// in-memory sources; multi-file consolidation goes through ParseFiles.
func (p *Parser) ParseReader(r io.Reader, desiredNamespaces []string) (*graph.Tables, error) {
	builder := NewNamespaceBuilder(desiredNamespaces, p.log)
	res, err := p.parseReader(r, builder)
	if err != nil {
		return nil, graph.SchemaError("ParseReader", "stream", err)
	}
	return consolidate([]fileResult{*res}, builder)
}

func (p *Parser) parseReader(r io.Reader, builder *NamespaceBuilder) (*fileResult, error) {
	dec := xml.NewDecoder(r)

	res := &fileResult{}
	var declaredURIs []string
	nsMap := ua.NamespaceMap{0: 0}
	aliases := ua.AliasMap{}
	foundNamespaceUris := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "UANodeSet":
			// Root element, children handled by this loop.
		case "NamespaceUris":
			elem, err := decodeElement(dec, start)
			if err != nil {
				return nil, err
			}
			if !foundNamespaceUris {
				foundNamespaceUris = true
				for _, uri := range elem.FindAll("Uri") {
					declaredURIs = append(declaredURIs, strings.TrimSpace(uri.Text))
				}
				nsMap = builder.Map(declaredURIs)
			}
		case "Aliases":
			elem, err := decodeElement(dec, start)
			if err != nil {
				return nil, err
			}
			for _, alias := range elem.FindAll("Alias") {
				name, ok := alias.Attr("Alias")
				if !ok {
					return nil, fmt.Errorf("Alias element without Alias attribute")
				}
				id, err := ua.ResolveNodeID(strings.TrimSpace(alias.Text), nsMap, nil)
				if err != nil {
					return nil, err
				}
				aliases[name] = id
			}
		case "Models":
			elem, err := decodeElement(dec, start)
			if err != nil {
				return nil, err
			}
			for _, model := range elem.FindAll("Model") {
				m := ua.Model{}
				m.ModelURI, _ = model.Attr("ModelUri")
				m.PublicationDate, _ = model.Attr("PublicationDate")
				m.Version, _ = model.Attr("Version")
				for _, req := range model.FindAll("RequiredModel") {
					rm := ua.RequiredModel{}
					rm.ModelURI, _ = req.Attr("ModelUri")
					rm.PublicationDate, _ = req.Attr("PublicationDate")
					rm.Version, _ = req.Attr("Version")
					m.RequiredModels = append(m.RequiredModels, rm)
				}
				res.models = append(res.models, m)
			}
		default:
			class, isNode := graph.NodeClassFromTag(start.Name.Local)
			if !isNode {
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			elem, err := decodeElement(dec, start)
			if err != nil {
				return nil, err
			}
			node, refs, err := nodeFromElement(elem, class, nsMap, aliases)
			if err != nil {
				return nil, err
			}
			res.nodes = append(res.nodes, *node)
			res.references = append(res.references, refs...)
		}
	}

	res.references = dedupRawReferences(res.references)
	return res, nil
}

// decodeElement reads the subtree started by start into an XMLElement.
func decodeElement(dec *xml.Decoder, start xml.StartElement) (*ua.XMLElement, error) {
	return ua.DecodeElement(dec, start)
}

func nodeFromElement(elem *ua.XMLElement, class graph.NodeClass, nsMap ua.NamespaceMap, aliases ua.AliasMap) (*rawNode, []rawReference, error) {
	rawID, ok := elem.Attr("NodeId")
	if !ok {
		return nil, nil, fmt.Errorf("%s without NodeId attribute", elem.Name)
	}
	nodeID, err := ua.ResolveNodeID(rawID, nsMap, aliases)
	if err != nil {
		return nil, nil, err
	}

	node := &rawNode{nodeID: nodeID, class: class}
	node.symbolicName, _ = elem.Attr("SymbolicName")

	// Browse names are prefixed with a file-local namespace index. The
	// index is remapped and kept in its own field so browse paths stay
	// readable.
	browse, _ := elem.Attr("BrowseName")
	node.browseName = browse
	if idx := strings.Index(browse, ":"); idx >= 0 {
		ns, err := strconv.ParseUint(browse[:idx], 10, 16)
		if err != nil {
			return nil, nil, fmt.Errorf("malformed BrowseName namespace prefix %q", browse)
		}
		mapped, ok := nsMap[uint16(ns)]
		if !ok {
			return nil, nil, fmt.Errorf("%w: BrowseName %q", ua.ErrUnmappedNamespace, browse)
		}
		node.browseNS = mapped
		node.browseName = browse[idx+1:]
	}

	if dn := elem.Find("DisplayName"); dn != nil {
		node.displayName = strings.TrimRight(dn.Text, " \t\r\n")
	}
	if desc := elem.Find("Description"); desc != nil {
		node.description = strings.TrimRight(desc.Text, " \t\r\n")
	}

	if err := parseClassAttributes(node, elem, nsMap, aliases); err != nil {
		return nil, nil, err
	}

	if val := elem.Find("Value"); val != nil {
		v, err := ua.ParseValue(val)
		if err != nil {
			return nil, nil, err
		}
		node.value = v
	}
	if def := elem.Find("Definition"); def != nil {
		node.definition = parseDefinition(def)
	}

	refs, err := referencesFromElement(elem, nodeID, nsMap, aliases)
	if err != nil {
		return nil, nil, err
	}
	return node, refs, nil
}

// referencesFromElement extracts the node's <Reference> children and
// normalizes direction: a reference declared IsForward="false" is stored
// with source and target swapped so the table always reads source to target.
func referencesFromElement(elem *ua.XMLElement, owner ua.NodeID, nsMap ua.NamespaceMap, aliases ua.AliasMap) ([]rawReference, error) {
	var out []rawReference
	for _, refs := range elem.FindAll("References") {
		for _, ref := range refs.FindAll("Reference") {
			rawType, ok := ref.Attr("ReferenceType")
			if !ok {
				return nil, fmt.Errorf("Reference without ReferenceType attribute")
			}
			refType, err := ua.ResolveNodeID(rawType, nsMap, aliases)
			if err != nil {
				return nil, err
			}
			target, err := ua.ResolveNodeID(strings.TrimRight(ref.Text, " \t\r\n"), nsMap, aliases)
			if err != nil {
				return nil, err
			}
			r := rawReference{src: owner, trg: target, typ: refType}
			if fw, ok := ref.Attr("IsForward"); ok && fw == "false" {
				r.src, r.trg = r.trg, r.src
			}
			out = append(out, r)
		}
	}
	return out, nil
}

func parseClassAttributes(node *rawNode, elem *ua.XMLElement, nsMap ua.NamespaceMap, aliases ua.AliasMap) error {
	idAttr := func(name string) (*ua.NodeID, error) {
		raw, ok := elem.Attr(name)
		if !ok {
			return nil, nil
		}
		id, err := ua.ResolveNodeID(raw, nsMap, aliases)
		if err != nil {
			return nil, err
		}
		return &id, nil
	}

	var err error
	if node.dataType, err = idAttr("DataType"); err != nil {
		return err
	}
	if node.parentNodeID, err = idAttr("ParentNodeId"); err != nil {
		return err
	}
	if node.methodDeclarationID, err = idAttr("MethodDeclarationId"); err != nil {
		return err
	}

	if raw, ok := elem.Attr("ValueRank"); ok {
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return fmt.Errorf("malformed ValueRank %q", raw)
		}
		rank := int32(v)
		node.valueRank = &rank
	}
	if raw, ok := elem.Attr("AccessLevel"); ok {
		v, err := strconv.ParseUint(raw, 10, 8)
		if err != nil {
			return fmt.Errorf("malformed AccessLevel %q", raw)
		}
		lvl := uint8(v)
		node.accessLevel = &lvl
	}
	if raw, ok := elem.Attr("UserAccessLevel"); ok {
		v, err := strconv.ParseUint(raw, 10, 8)
		if err != nil {
			return fmt.Errorf("malformed UserAccessLevel %q", raw)
		}
		lvl := uint8(v)
		node.userAccessLevel = &lvl
	}
	if raw, ok := elem.Attr("EventNotifier"); ok {
		v, err := strconv.ParseUint(raw, 10, 8)
		if err != nil {
			return fmt.Errorf("malformed EventNotifier %q", raw)
		}
		node.eventNotifier = uint8(v)
	}
	if raw, ok := elem.Attr("MinimumSamplingInterval"); ok {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("malformed MinimumSamplingInterval %q", raw)
		}
		node.minimumSamplingInterval = &v
	}
	node.isAbstract = elem.Attrs["IsAbstract"] == "true"
	node.symmetric = elem.Attrs["Symmetric"] == "true"
	node.historizing = elem.Attrs["Historizing"] == "true"
	node.containsNoLoops = elem.Attrs["ContainsNoLoops"] == "true"
	node.arrayDimensions = elem.Attrs["ArrayDimensions"]
	if raw, ok := elem.Attr("Executable"); ok {
		b := raw == "true"
		node.executable = &b
	}
	if raw, ok := elem.Attr("UserExecutable"); ok {
		b := raw == "true"
		node.userExecutable = &b
	}
	if inv := elem.Find("InverseName"); inv != nil {
		node.inverseName = strings.TrimSpace(inv.Text)
	}
	return nil
}

func parseDefinition(def *ua.XMLElement) *ua.DataTypeDefinition {
	name, _ := def.Attr("Name")
	d := &ua.DataTypeDefinition{Name: name}
	for _, field := range def.FindAll("Field") {
		f := ua.DataTypeField{}
		f.Name, _ = field.Attr("Name")
		f.Value, _ = field.Attr("Value")
		if desc := field.Find("Description"); desc != nil {
			f.Description = strings.TrimSpace(desc.Text)
		}
		d.Fields = append(d.Fields, f)
	}
	return d
}

func dedupRawReferences(refs []rawReference) []rawReference {
	type key struct{ src, trg, typ ua.NodeID }
	seen := make(map[key]struct{}, len(refs))
	out := refs[:0]
	for _, r := range refs {
		k := key{r.src, r.trg, r.typ}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
