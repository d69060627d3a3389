// Package generator serializes normalized tables back to NodeSet2 XML.
// Namespaces are renumbered so the serialized namespace becomes index 1,
// surrogate ids are denormalized to textual identifiers and references are
// re-attached per node in the self-contained backward form wherever the
// target is locally declared.
package generator

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/graphforge/uanodeset/pkg/graph"
	"github.com/graphforge/uanodeset/pkg/logging"
	"github.com/graphforge/uanodeset/pkg/ua"
)

// Generator writes NodeSet2 files from normalized tables.
type Generator struct {
	log logging.Logger
}

// NewGenerator returns a generator logging through the given logger.
func NewGenerator(log logging.Logger) *Generator {
	if log == nil {
		log = logging.NopLogger{}
	}
	return &Generator{log: log}
}

// Options configures the emitted file header.
type Options struct {
	LastModified    time.Time // zero means time.Now
	PublicationDate time.Time // zero means time.Now
}

var defaultXMLNS = []string{
	`xmlns:xsd="http://www.w3.org/2001/XMLSchema"`,
	`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"`,
	`xmlns="http://opcfoundation.org/UA/2011/03/UANodeSet.xsd"`,
}

// WriteNodeSet serializes the tables to w with targetNamespace as the file's
// own namespace. The references slice is passed separately so callers can
// serialize a filtered subset; nodes always come from the table.
func (g *Generator) WriteNodeSet(w io.Writer, t *graph.Tables, references []graph.Reference, targetNamespace uint16, opts Options) error {
	timer := logging.StartTimer(g.log, "write_nodeset",
		logging.NamespaceIndex(int(targetNamespace)))

	remap, uris, err := renumberNamespaces(t, references, targetNamespace)
	if err != nil {
		timer.EndError(err)
		return err
	}

	lookup := func(id graph.ID) (ua.NodeID, error) {
		if id < 0 || int(id) >= t.Arena.Len() {
			return ua.NodeID{}, graph.NewError("WriteNodeSet").Node(id).
				Context("surrogate id outside arena").Cause(graph.ErrIntegrity).Err()
		}
		nid := t.Arena.NodeID(id)
		mapped, ok := remap[nid.Namespace]
		if !ok {
			return ua.NodeID{}, graph.NewError("WriteNodeSet").Node(id).
				Name(nid.String()).Context("namespace not in use set").
				Cause(graph.ErrIntegrity).Err()
		}
		nid.Namespace = mapped
		return nid, nil
	}

	refXML, err := referencesByNode(t, references, lookup)
	if err != nil {
		timer.EndError(err)
		return err
	}

	if err := writeHeader(w, t, uris, opts); err != nil {
		timer.EndError(err)
		return err
	}

	for i := range t.Nodes {
		if err := writeNode(w, &t.Nodes[i], graph.ID(i), remap, refXML, lookup); err != nil {
			timer.EndError(err)
			return err
		}
	}
	if _, err := io.WriteString(w, "</UANodeSet>"); err != nil {
		timer.EndError(err)
		return err
	}

	timer.End(
		logging.Nodes(len(t.Nodes)),
		logging.References(len(references)),
	)
	return nil
}

// renumberNamespaces determines the in-use namespace set and builds the
// renumbering map: the OPC Foundation namespace keeps index 0, the target
// namespace becomes index 1 and the rest follow in ascending original
// order.
func renumberNamespaces(t *graph.Tables, references []graph.Reference, target uint16) (ua.NamespaceMap, []string, error) {
	inUse := map[uint16]struct{}{0: {}, target: {}}
	noteID := func(id graph.ID) {
		if id != graph.NilID && id >= 0 && int(id) < t.Arena.Len() {
			inUse[t.Arena.NodeID(id).Namespace] = struct{}{}
		}
	}
	for i := range t.Nodes {
		n := &t.Nodes[i]
		inUse[n.Namespace] = struct{}{}
		inUse[n.BrowseNameNamespace] = struct{}{}
		switch a := n.Attrs.(type) {
		case graph.ObjectAttributes:
			noteID(a.ParentNodeID)
		case graph.VariableAttributes:
			noteID(a.DataType)
			noteID(a.ParentNodeID)
		case graph.VariableTypeAttributes:
			noteID(a.DataType)
		case graph.MethodAttributes:
			noteID(a.ParentNodeID)
			noteID(a.MethodDeclarationID)
		}
	}
	for _, r := range references {
		noteID(r.Src)
		noteID(r.Trg)
		noteID(r.Type)
	}

	var rest []int
	for ns := range inUse {
		if ns != 0 && ns != target {
			rest = append(rest, int(ns))
		}
	}
	sort.Ints(rest)

	ordered := []uint16{0}
	if target != 0 {
		ordered = append(ordered, target)
	}
	for _, ns := range rest {
		ordered = append(ordered, uint16(ns))
	}

	remap := make(ua.NamespaceMap, len(ordered))
	uris := make([]string, len(ordered))
	for newIdx, oldIdx := range ordered {
		remap[oldIdx] = uint16(newIdx)
		uri := t.NamespaceURI(oldIdx)
		if uri == "" {
			return nil, nil, graph.NewError("WriteNodeSet").
				Namespace(fmt.Sprintf("index %d", oldIdx)).
				Context("in use but not declared").
				Cause(graph.ErrIntegrity).Err()
		}
		uris[newIdx] = uri
	}
	return remap, uris, nil
}

func writeHeader(w io.Writer, t *graph.Tables, uris []string, opts Options) error {
	lastModified := opts.LastModified
	if lastModified.IsZero() {
		lastModified = time.Now().UTC()
	}
	publicationDate := opts.PublicationDate
	if publicationDate.IsZero() {
		publicationDate = time.Now().UTC()
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	b.WriteString(`<UANodeSet LastModified="` + lastModified.Format(time.RFC3339) + `"`)
	for _, xmlns := range defaultXMLNS {
		b.WriteString(" " + xmlns)
	}
	b.WriteString(">\n")

	if len(uris) > 1 {
		b.WriteString("<NamespaceUris>\n")
		for _, uri := range uris[1:] {
			b.WriteString("<Uri>" + ua.EscapeXML(uri) + "</Uri>\n")
		}
		b.WriteString("</NamespaceUris>\n")
	}

	ownURI := uris[0]
	if len(uris) > 1 {
		ownURI = uris[1]
	}
	model := findModel(t.Models, ownURI)
	b.WriteString("<Models>")
	b.WriteString(`<Model ModelUri="` + ua.EscapeXML(ownURI) + `" PublicationDate="` +
		modelDate(model, publicationDate) + `" Version="` + modelVersion(model) + `">`)
	if model != nil {
		for _, req := range model.RequiredModels {
			b.WriteString(`<RequiredModel ModelUri="` + ua.EscapeXML(req.ModelURI) + `"`)
			if req.PublicationDate != "" {
				b.WriteString(` PublicationDate="` + req.PublicationDate + `"`)
			}
			if req.Version != "" {
				b.WriteString(` Version="` + req.Version + `"`)
			}
			b.WriteString("/>")
		}
	}
	b.WriteString("</Model></Models>\n")
	b.WriteString("<Aliases></Aliases>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func findModel(models []ua.Model, uri string) *ua.Model {
	for i := range models {
		if models[i].ModelURI == uri {
			return &models[i]
		}
	}
	return nil
}

func modelDate(model *ua.Model, fallback time.Time) string {
	if model != nil && model.PublicationDate != "" {
		return model.PublicationDate
	}
	return fallback.Format(time.RFC3339)
}

func modelVersion(model *ua.Model) string {
	if model != nil && model.Version != "" {
		return model.Version
	}
	return "1.0.0"
}

type nodeLookup func(graph.ID) (ua.NodeID, error)

// referencesByNode encodes every reference and groups the XML by the node it
// is attached to. A reference whose target is a locally declared node is
// written under the target in backward form naming the source; otherwise it
// is written under the source in forward form naming the target.
func referencesByNode(t *graph.Tables, references []graph.Reference, lookup nodeLookup) (map[graph.ID][]string, error) {
	out := make(map[graph.ID][]string)
	for _, r := range references {
		srcID, err := lookup(r.Src)
		if err != nil {
			return nil, err
		}
		trgID, err := lookup(r.Trg)
		if err != nil {
			return nil, err
		}
		typeID, err := lookup(r.Type)
		if err != nil {
			return nil, err
		}

		refType := ua.EscapeXML(typeID.String())
		if t.NodeByID(r.Trg) != nil {
			xml := `<Reference ReferenceType="` + refType + `" IsForward="false">` +
				ua.EscapeXML(srcID.String()) + `</Reference>`
			out[r.Trg] = append(out[r.Trg], xml)
		} else {
			xml := `<Reference ReferenceType="` + refType + `">` +
				ua.EscapeXML(trgID.String()) + `</Reference>`
			out[r.Src] = append(out[r.Src], xml)
		}
	}
	return out, nil
}

func writeNode(w io.Writer, n *graph.Node, id graph.ID, remap ua.NamespaceMap, refXML map[graph.ID][]string, lookup nodeLookup) error {
	nodeID, err := lookup(id)
	if err != nil {
		return err
	}
	browseNS, ok := remap[n.BrowseNameNamespace]
	if !ok {
		return graph.NewError("WriteNodeSet").Node(id).
			Context("BrowseNameNamespace not in use set").
			Cause(graph.ErrIntegrity).Err()
	}

	var b strings.Builder
	tag := n.Class.XMLTag()
	b.WriteString("<" + tag)
	b.WriteString(` NodeId="` + ua.EscapeXML(nodeID.String()) + `"`)
	if n.SymbolicName != "" {
		b.WriteString(` SymbolicName="` + ua.EscapeXML(n.SymbolicName) + `"`)
	}
	b.WriteString(` BrowseName="` + strconv.Itoa(int(browseNS)) + ":" + ua.EscapeXML(n.BrowseName) + `"`)

	if err := writeClassAttributes(&b, n, lookup); err != nil {
		return err
	}
	b.WriteString(">")

	b.WriteString("<DisplayName>" + ua.EscapeXML(n.DisplayName) + "</DisplayName>")
	if n.Description != "" {
		b.WriteString("<Description>" + ua.EscapeXML(n.Description) + "</Description>")
	}
	if rt, ok := n.Attrs.(graph.ReferenceTypeAttributes); ok && rt.InverseName != "" {
		b.WriteString("<InverseName>" + ua.EscapeXML(rt.InverseName) + "</InverseName>")
	}

	b.WriteString("<References>")
	for _, ref := range refXML[id] {
		b.WriteString(ref)
	}
	b.WriteString("</References>")

	if n.Class == graph.ClassVariable {
		if v := n.Value(); v != nil {
			b.WriteString("<Value>" + v.XMLEncode(true) + "</Value>")
		}
	}
	if dt, ok := n.Attrs.(graph.DataTypeAttributes); ok && dt.Definition != nil {
		b.WriteString(dt.Definition.XMLEncode(false))
	}

	b.WriteString("</" + tag + ">\n")
	_, err = io.WriteString(w, b.String())
	return err
}

func writeClassAttributes(b *strings.Builder, n *graph.Node, lookup nodeLookup) error {
	idAttr := func(name string, id graph.ID) error {
		if id == graph.NilID {
			return nil
		}
		nid, err := lookup(id)
		if err != nil {
			return err
		}
		b.WriteString(" " + name + `="` + ua.EscapeXML(nid.String()) + `"`)
		return nil
	}
	boolAttr := func(name string, v bool) {
		if v {
			b.WriteString(" " + name + `="true"`)
		}
	}

	switch a := n.Attrs.(type) {
	case graph.ObjectAttributes:
		if a.EventNotifier != 0 {
			b.WriteString(` EventNotifier="` + strconv.Itoa(int(a.EventNotifier)) + `"`)
		}
		if err := idAttr("ParentNodeId", a.ParentNodeID); err != nil {
			return err
		}
	case graph.ObjectTypeAttributes:
		boolAttr("IsAbstract", a.IsAbstract)
	case graph.VariableAttributes:
		if err := idAttr("DataType", a.DataType); err != nil {
			return err
		}
		if a.ValueRank != nil {
			b.WriteString(` ValueRank="` + strconv.Itoa(int(*a.ValueRank)) + `"`)
		}
		if a.AccessLevel != nil {
			b.WriteString(` AccessLevel="` + strconv.Itoa(int(*a.AccessLevel)) + `"`)
		}
		if a.UserAccessLevel != nil {
			b.WriteString(` UserAccessLevel="` + strconv.Itoa(int(*a.UserAccessLevel)) + `"`)
		}
		if err := idAttr("ParentNodeId", a.ParentNodeID); err != nil {
			return err
		}
		if a.ArrayDimensions != "" {
			b.WriteString(` ArrayDimensions="` + ua.EscapeXML(a.ArrayDimensions) + `"`)
		}
		if a.MinimumSamplingInterval != nil {
			b.WriteString(` MinimumSamplingInterval="` +
				strconv.FormatFloat(*a.MinimumSamplingInterval, 'g', -1, 64) + `"`)
		}
		boolAttr("Historizing", a.Historizing)
	case graph.VariableTypeAttributes:
		if err := idAttr("DataType", a.DataType); err != nil {
			return err
		}
		if a.ValueRank != nil {
			b.WriteString(` ValueRank="` + strconv.Itoa(int(*a.ValueRank)) + `"`)
		}
		boolAttr("IsAbstract", a.IsAbstract)
	case graph.DataTypeAttributes:
		boolAttr("IsAbstract", a.IsAbstract)
	case graph.ReferenceTypeAttributes:
		boolAttr("IsAbstract", a.IsAbstract)
		boolAttr("Symmetric", a.Symmetric)
	case graph.MethodAttributes:
		if a.Executable != nil && !*a.Executable {
			b.WriteString(` Executable="false"`)
		}
		if a.UserExecutable != nil && !*a.UserExecutable {
			b.WriteString(` UserExecutable="false"`)
		}
		if err := idAttr("ParentNodeId", a.ParentNodeID); err != nil {
			return err
		}
		if err := idAttr("MethodDeclarationId", a.MethodDeclarationID); err != nil {
			return err
		}
	case graph.ViewAttributes:
		boolAttr("ContainsNoLoops", a.ContainsNoLoops)
		if a.EventNotifier != 0 {
			b.WriteString(` EventNotifier="` + strconv.Itoa(int(a.EventNotifier)) + `"`)
		}
	}
	return nil
}
