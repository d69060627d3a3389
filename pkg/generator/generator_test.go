package generator

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphforge/uanodeset/pkg/graph"
	"github.com/graphforge/uanodeset/pkg/logging"
	"github.com/graphforge/uanodeset/pkg/parser"
)

const baseNodeSet = `<?xml version="1.0" encoding="utf-8"?>
<UANodeSet xmlns="http://opcfoundation.org/UA/2011/03/UANodeSet.xsd" LastModified="2024-01-01T00:00:00Z">
  <Models><Model ModelUri="http://opcfoundation.org/UA/" PublicationDate="2024-01-01T00:00:00Z" Version="1.05"></Model></Models>
  <Aliases>
    <Alias Alias="HasComponent">i=47</Alias>
  </Aliases>
  <UAReferenceType NodeId="i=45" BrowseName="HasSubtype">
    <DisplayName>HasSubtype</DisplayName>
    <InverseName>SubtypeOf</InverseName>
  </UAReferenceType>
  <UAReferenceType NodeId="i=47" BrowseName="HasComponent">
    <DisplayName>HasComponent</DisplayName>
  </UAReferenceType>
  <UADataType NodeId="i=6" BrowseName="Int32">
    <DisplayName>Int32</DisplayName>
  </UADataType>
  <UAObject NodeId="i=85" BrowseName="Objects" EventNotifier="1">
    <DisplayName>Objects</DisplayName>
  </UAObject>
</UANodeSet>
`

const machineNodeSet = `<?xml version="1.0" encoding="utf-8"?>
<UANodeSet xmlns="http://opcfoundation.org/UA/2011/03/UANodeSet.xsd" LastModified="2024-01-01T00:00:00Z">
  <NamespaceUris>
    <Uri>http://example.com/machines/</Uri>
  </NamespaceUris>
  <Models>
    <Model ModelUri="http://example.com/machines/" PublicationDate="2024-01-01T00:00:00Z" Version="1.0.0">
      <RequiredModel ModelUri="http://opcfoundation.org/UA/" Version="1.05"/>
    </Model>
  </Models>
  <Aliases>
    <Alias Alias="HasComponent">i=47</Alias>
  </Aliases>
  <UAObject NodeId="ns=1;i=5001" SymbolicName="Machine_1" BrowseName="1:Machine">
    <DisplayName>Machine</DisplayName>
    <References>
      <Reference ReferenceType="HasComponent" IsForward="false">i=85</Reference>
    </References>
  </UAObject>
  <UAVariable NodeId="ns=1;i=6001" BrowseName="1:Speed" ParentNodeId="ns=1;i=5001" DataType="i=6" ValueRank="-1">
    <DisplayName>Speed</DisplayName>
    <References>
      <Reference ReferenceType="HasComponent" IsForward="false">ns=1;i=5001</Reference>
    </References>
    <Value>
      <Int32 xmlns="http://opcfoundation.org/UA/2008/02/Types.xsd">42</Int32>
    </Value>
  </UAVariable>
</UANodeSet>
`

var fixedTime = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func parseFixture(t *testing.T) *graph.Tables {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Opc.Ua.NodeSet2.xml"), []byte(baseNodeSet), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "machines.xml"), []byte(machineNodeSet), 0o644))

	p := parser.NewParser(logging.NopLogger{})
	tables, err := p.ParseDir(dir, nil)
	require.NoError(t, err)
	return tables
}

func generate(t *testing.T, tables *graph.Tables) string {
	t.Helper()
	g := NewGenerator(logging.NopLogger{})
	var buf bytes.Buffer
	err := g.WriteNodeSet(&buf, tables, tables.References, 1, Options{
		LastModified:    fixedTime,
		PublicationDate: fixedTime,
	})
	require.NoError(t, err)
	return buf.String()
}

func TestWriteNodeSetHeader(t *testing.T) {
	tables := parseFixture(t)
	out := generate(t, tables)

	assert.Contains(t, out, `LastModified="2024-06-01T00:00:00Z"`)
	assert.Contains(t, out, "<Uri>http://example.com/machines/</Uri>")
	assert.Contains(t, out, `<Model ModelUri="http://example.com/machines/" PublicationDate="2024-01-01T00:00:00Z" Version="1.0.0">`)
	assert.Contains(t, out, `<RequiredModel ModelUri="http://opcfoundation.org/UA/" Version="1.05"/>`)
	assert.Contains(t, out, "<Aliases></Aliases>")
}

func TestWriteNodeSetReferencePlacement(t *testing.T) {
	tables := parseFixture(t)
	out := generate(t, tables)

	// Targets declared in the file carry the reference backward, naming the
	// source, so each node's section is self-contained.
	assert.Contains(t, out,
		`<Reference ReferenceType="i=47" IsForward="false">i=85</Reference>`)
	assert.Contains(t, out,
		`<Reference ReferenceType="i=47" IsForward="false">ns=1;i=5001</Reference>`)
	assert.NotContains(t, out, `IsForward="true"`)
}

func TestWriteNodeSetAttributes(t *testing.T) {
	tables := parseFixture(t)
	out := generate(t, tables)

	assert.Contains(t, out, `<UAObject NodeId="i=85" BrowseName="0:Objects" EventNotifier="1">`)
	assert.Contains(t, out, `<UAObject NodeId="ns=1;i=5001" SymbolicName="Machine_1" BrowseName="1:Machine">`)
	assert.Contains(t, out, `DataType="i=6"`)
	assert.Contains(t, out, `ValueRank="-1"`)
	assert.Contains(t, out, `ParentNodeId="ns=1;i=5001"`)
	assert.Contains(t, out, "<InverseName>SubtypeOf</InverseName>")
	assert.Contains(t, out,
		`<Value><Int32 xmlns="http://opcfoundation.org/UA/2008/02/Types.xsd">42</Int32></Value>`)
}

func TestWriteNodeSetRoundTrip(t *testing.T) {
	tables := parseFixture(t)
	first := generate(t, tables)

	p := parser.NewParser(logging.NopLogger{})
	reparsed, err := p.ParseReader(strings.NewReader(first), nil)
	require.NoError(t, err)
	require.NoError(t, reparsed.ValidateIntegrity())

	require.Len(t, reparsed.Nodes, len(tables.Nodes))
	for i := range tables.Nodes {
		want := &tables.Nodes[i]
		got := &reparsed.Nodes[i]
		assert.Equal(t, want.NodeID, got.NodeID, "node %d identifier", i)
		assert.Equal(t, want.Class, got.Class, "node %d class", i)
		assert.Equal(t, want.BrowseName, got.BrowseName, "node %d browse name", i)
		assert.Equal(t, want.BrowseNameNamespace, got.BrowseNameNamespace, "node %d browse ns", i)
		assert.Equal(t, want.DisplayName, got.DisplayName, "node %d display name", i)
		assert.Equal(t, want.SymbolicName, got.SymbolicName, "node %d symbolic name", i)
	}

	assert.ElementsMatch(t, denormalizedRefs(t, tables), denormalizedRefs(t, reparsed))

	second := generate(t, reparsed)
	assert.Equal(t, first, second, "a generated file must re-serialize byte for byte")
}

func TestWriteNodeSetRenumbersForeignNamespace(t *testing.T) {
	extra := strings.ReplaceAll(machineNodeSet,
		"<Uri>http://example.com/machines/</Uri>",
		"<Uri>http://example.com/padding/</Uri>\n    <Uri>http://example.com/machines/</Uri>")
	extra = strings.ReplaceAll(extra, "ns=1;", "ns=2;")
	extra = strings.ReplaceAll(extra, `BrowseName="1:`, `BrowseName="2:`)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Opc.Ua.NodeSet2.xml"), []byte(baseNodeSet), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "machines.xml"), []byte(extra), 0o644))

	p := parser.NewParser(logging.NopLogger{})
	tables, err := p.ParseDir(dir, nil)
	require.NoError(t, err)

	target, ok := tables.NamespaceIndex("http://example.com/machines/")
	require.True(t, ok)

	g := NewGenerator(logging.NopLogger{})
	var buf bytes.Buffer
	require.NoError(t, g.WriteNodeSet(&buf, tables, tables.References, target, Options{
		LastModified: fixedTime, PublicationDate: fixedTime,
	}))
	out := buf.String()

	// The serialized namespace becomes file-local index 1 regardless of its
	// consolidated index, so its Uri comes first and its nodes say ns=1.
	uriPos := strings.Index(out, "<Uri>http://example.com/machines/</Uri>")
	nsBlock := strings.Index(out, "<NamespaceUris>")
	require.Greater(t, uriPos, nsBlock)
	assert.NotContains(t, out[nsBlock:uriPos], "<Uri>")
	assert.Contains(t, out, `NodeId="ns=1;i=5001"`)
	assert.NotContains(t, out, "ns=2;")
}

func denormalizedRefs(t *testing.T, tables *graph.Tables) []string {
	t.Helper()
	out := make([]string, 0, len(tables.References))
	for _, r := range tables.References {
		out = append(out,
			tables.Arena.NodeID(r.Src).String()+"|"+
				tables.Arena.NodeID(r.Trg).String()+"|"+
				tables.Arena.NodeID(r.Type).String())
	}
	return out
}

func TestSchemaValidatorMissingSchemaFile(t *testing.T) {
	_, err := NewSchemaValidator(filepath.Join(t.TempDir(), "missing.xsd"), logging.NopLogger{})
	require.Error(t, err)
}
