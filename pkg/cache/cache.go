// Package cache persists parsed tables as a snappy-compressed JSON snapshot
// so repeated pipeline runs can skip re-parsing unchanged nodeset files.
package cache

import (
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"io"
	"os"

	"github.com/golang/snappy"

	"github.com/graphforge/uanodeset/pkg/graph"
	"github.com/graphforge/uanodeset/pkg/logging"
	"github.com/graphforge/uanodeset/pkg/ua"
)

// Snapshot format: [magic:4][version:2][payload len:4][snappy payload][crc32:4]
// with the checksum taken over the compressed payload.
var magic = [4]byte{'U', 'A', 'N', 'C'}

const formatVersion uint16 = 1

// Sentinel errors for snapshot loading.
var (
	ErrBadMagic       = graph.NewError("cache").Input().Context("not a table snapshot").Cause(graph.ErrSchema).Err()
	ErrVersionSkew    = graph.NewError("cache").Input().Context("snapshot format version mismatch").Cause(graph.ErrSchema).Err()
	ErrChecksumFailed = graph.NewError("cache").Input().Context("snapshot checksum mismatch").Cause(graph.ErrIntegrity).Err()
)

type snapshot struct {
	Namespaces []graph.Namespace `json:"namespaces"`
	Models     []ua.Model        `json:"models"`
	Arena      []string          `json:"arena"`
	Nodes      []snapshotNode    `json:"nodes"`
	References []graph.Reference `json:"references"`
}

// snapshotNode flattens the per-class attribute variants into one record.
// Values and definitions travel as their XML encoding; identifiers stay
// surrogate since the arena travels alongside.
type snapshotNode struct {
	Class               uint8    `json:"class"`
	BrowseName          string   `json:"browseName"`
	BrowseNameNamespace uint16   `json:"browseNameNamespace"`
	DisplayName         string   `json:"displayName"`
	Description         string   `json:"description,omitempty"`
	SymbolicName        string   `json:"symbolicName,omitempty"`
	EventNotifier       uint8    `json:"eventNotifier,omitempty"`
	ParentNodeID        graph.ID `json:"parentNodeId"`
	DataType            graph.ID `json:"dataType"`
	MethodDeclarationID graph.ID `json:"methodDeclarationId"`
	ValueRank           *int32   `json:"valueRank,omitempty"`
	ArrayDimensions     string   `json:"arrayDimensions,omitempty"`
	AccessLevel         *uint8   `json:"accessLevel,omitempty"`
	UserAccessLevel     *uint8   `json:"userAccessLevel,omitempty"`
	MinimumSamplingInterval *float64 `json:"minimumSamplingInterval,omitempty"`
	Historizing         bool     `json:"historizing,omitempty"`
	IsAbstract          bool     `json:"isAbstract,omitempty"`
	Symmetric           bool     `json:"symmetric,omitempty"`
	InverseName         string   `json:"inverseName,omitempty"`
	ContainsNoLoops     bool     `json:"containsNoLoops,omitempty"`
	Executable          *bool    `json:"executable,omitempty"`
	UserExecutable      *bool    `json:"userExecutable,omitempty"`
	Value               string   `json:"value,omitempty"`
	Definition          *ua.DataTypeDefinition `json:"definition,omitempty"`
}

// Save writes the tables to path, replacing any existing snapshot.
func Save(t *graph.Tables, path string, log logging.Logger) error {
	if log == nil {
		log = logging.NopLogger{}
	}
	timer := logging.StartTimer(log, "cache_save", logging.File(path))

	payload, err := json.Marshal(encodeSnapshot(t))
	if err != nil {
		timer.EndError(err)
		return graph.SchemaError("cache.Save", path, err)
	}
	compressed := snappy.Encode(nil, payload)

	f, err := os.Create(path)
	if err != nil {
		timer.EndError(err)
		return graph.SchemaError("cache.Save", path, err)
	}
	defer f.Close()

	if _, err := f.Write(magic[:]); err != nil {
		timer.EndError(err)
		return err
	}
	if err := binary.Write(f, binary.BigEndian, formatVersion); err != nil {
		timer.EndError(err)
		return err
	}
	if err := binary.Write(f, binary.BigEndian, uint32(len(compressed))); err != nil {
		timer.EndError(err)
		return err
	}
	if _, err := f.Write(compressed); err != nil {
		timer.EndError(err)
		return err
	}
	if err := binary.Write(f, binary.BigEndian, crc32.ChecksumIEEE(compressed)); err != nil {
		timer.EndError(err)
		return err
	}

	timer.End(
		logging.Nodes(len(t.Nodes)),
		logging.Int("bytes_uncompressed", len(payload)),
		logging.Int("bytes_compressed", len(compressed)),
	)
	return f.Sync()
}

// Load reads a snapshot back into tables.
func Load(path string, log logging.Logger) (*graph.Tables, error) {
	if log == nil {
		log = logging.NopLogger{}
	}
	timer := logging.StartTimer(log, "cache_load", logging.File(path))

	f, err := os.Open(path)
	if err != nil {
		timer.EndError(err)
		return nil, err
	}
	defer f.Close()

	var head [4]byte
	if _, err := io.ReadFull(f, head[:]); err != nil {
		timer.EndError(err)
		return nil, ErrBadMagic
	}
	if head != magic {
		timer.EndError(ErrBadMagic)
		return nil, ErrBadMagic
	}
	var version uint16
	if err := binary.Read(f, binary.BigEndian, &version); err != nil {
		timer.EndError(err)
		return nil, ErrBadMagic
	}
	if version != formatVersion {
		timer.EndError(ErrVersionSkew)
		return nil, ErrVersionSkew
	}
	var length uint32
	if err := binary.Read(f, binary.BigEndian, &length); err != nil {
		timer.EndError(err)
		return nil, ErrBadMagic
	}
	compressed := make([]byte, length)
	if _, err := io.ReadFull(f, compressed); err != nil {
		timer.EndError(err)
		return nil, ErrBadMagic
	}
	var checksum uint32
	if err := binary.Read(f, binary.BigEndian, &checksum); err != nil {
		timer.EndError(err)
		return nil, ErrBadMagic
	}
	if crc32.ChecksumIEEE(compressed) != checksum {
		timer.EndError(ErrChecksumFailed)
		return nil, ErrChecksumFailed
	}

	payload, err := snappy.Decode(nil, compressed)
	if err != nil {
		timer.EndError(err)
		return nil, graph.SchemaError("cache.Load", path, err)
	}
	var snap snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		timer.EndError(err)
		return nil, graph.SchemaError("cache.Load", path, err)
	}

	tables, err := decodeSnapshot(&snap)
	if err != nil {
		timer.EndError(err)
		return nil, err
	}
	timer.End(logging.Nodes(len(tables.Nodes)))
	return tables, nil
}

func encodeSnapshot(t *graph.Tables) *snapshot {
	snap := &snapshot{
		Namespaces: t.Namespaces,
		Models:     t.Models,
		References: t.References,
	}
	snap.Arena = make([]string, t.Arena.Len())
	for i := range snap.Arena {
		snap.Arena[i] = t.Arena.NodeID(graph.ID(i)).String()
	}

	snap.Nodes = make([]snapshotNode, len(t.Nodes))
	for i := range t.Nodes {
		n := &t.Nodes[i]
		row := snapshotNode{
			Class:               uint8(n.Class),
			BrowseName:          n.BrowseName,
			BrowseNameNamespace: n.BrowseNameNamespace,
			DisplayName:         n.DisplayName,
			Description:         n.Description,
			SymbolicName:        n.SymbolicName,
			ParentNodeID:        graph.NilID,
			DataType:            graph.NilID,
			MethodDeclarationID: graph.NilID,
		}
		if v := n.Value(); v != nil {
			row.Value = v.XMLEncode(false)
		}
		switch a := n.Attrs.(type) {
		case graph.ObjectAttributes:
			row.EventNotifier = a.EventNotifier
			row.ParentNodeID = a.ParentNodeID
		case graph.ObjectTypeAttributes:
			row.IsAbstract = a.IsAbstract
		case graph.VariableAttributes:
			row.DataType = a.DataType
			row.ParentNodeID = a.ParentNodeID
			row.ValueRank = a.ValueRank
			row.ArrayDimensions = a.ArrayDimensions
			row.AccessLevel = a.AccessLevel
			row.UserAccessLevel = a.UserAccessLevel
			row.MinimumSamplingInterval = a.MinimumSamplingInterval
			row.Historizing = a.Historizing
		case graph.VariableTypeAttributes:
			row.DataType = a.DataType
			row.ValueRank = a.ValueRank
			row.IsAbstract = a.IsAbstract
		case graph.DataTypeAttributes:
			row.IsAbstract = a.IsAbstract
			row.Definition = a.Definition
		case graph.ReferenceTypeAttributes:
			row.IsAbstract = a.IsAbstract
			row.Symmetric = a.Symmetric
			row.InverseName = a.InverseName
		case graph.MethodAttributes:
			row.Executable = a.Executable
			row.UserExecutable = a.UserExecutable
			row.ParentNodeID = a.ParentNodeID
			row.MethodDeclarationID = a.MethodDeclarationID
		case graph.ViewAttributes:
			row.ContainsNoLoops = a.ContainsNoLoops
			row.EventNotifier = a.EventNotifier
		}
		snap.Nodes[i] = row
	}
	return snap
}

func decodeSnapshot(snap *snapshot) (*graph.Tables, error) {
	tables := graph.NewTables()
	tables.Namespaces = snap.Namespaces
	tables.Models = snap.Models
	tables.References = snap.References

	for _, text := range snap.Arena {
		nid, err := ua.ParseNodeID(text)
		if err != nil {
			return nil, graph.SchemaError("cache.Load", text, err)
		}
		tables.Arena.Intern(nid)
	}

	tables.Nodes = make([]graph.Node, len(snap.Nodes))
	for i := range snap.Nodes {
		row := &snap.Nodes[i]
		if i >= tables.Arena.Len() {
			return nil, graph.NewError("cache.Load").Node(graph.ID(i)).
				Context("node row beyond arena").
				Cause(graph.ErrIntegrity).Err()
		}
		nid := tables.Arena.NodeID(graph.ID(i))

		var value ua.Value
		if row.Value != "" {
			v, err := ua.ParseValueXML(row.Value)
			if err != nil {
				return nil, graph.SchemaError("cache.Load", row.Value, err)
			}
			value = v
		}

		node := graph.Node{
			NodeID:              nid,
			Class:               graph.NodeClass(row.Class),
			BrowseName:          row.BrowseName,
			BrowseNameNamespace: row.BrowseNameNamespace,
			DisplayName:         row.DisplayName,
			Description:         row.Description,
			SymbolicName:        row.SymbolicName,
			Namespace:           nid.Namespace,
		}
		switch node.Class {
		case graph.ClassObject:
			node.Attrs = graph.ObjectAttributes{
				EventNotifier: row.EventNotifier,
				ParentNodeID:  row.ParentNodeID,
			}
		case graph.ClassObjectType:
			node.Attrs = graph.ObjectTypeAttributes{IsAbstract: row.IsAbstract}
		case graph.ClassVariable:
			node.Attrs = graph.VariableAttributes{
				DataType:                row.DataType,
				ParentNodeID:            row.ParentNodeID,
				ValueRank:               row.ValueRank,
				ArrayDimensions:         row.ArrayDimensions,
				AccessLevel:             row.AccessLevel,
				UserAccessLevel:         row.UserAccessLevel,
				MinimumSamplingInterval: row.MinimumSamplingInterval,
				Historizing:             row.Historizing,
				Value:                   value,
			}
		case graph.ClassVariableType:
			node.Attrs = graph.VariableTypeAttributes{
				DataType:   row.DataType,
				ValueRank:  row.ValueRank,
				IsAbstract: row.IsAbstract,
				Value:      value,
			}
		case graph.ClassDataType:
			node.Attrs = graph.DataTypeAttributes{
				IsAbstract: row.IsAbstract,
				Definition: row.Definition,
			}
		case graph.ClassReferenceType:
			node.Attrs = graph.ReferenceTypeAttributes{
				IsAbstract:  row.IsAbstract,
				Symmetric:   row.Symmetric,
				InverseName: row.InverseName,
			}
		case graph.ClassMethod:
			node.Attrs = graph.MethodAttributes{
				Executable:          row.Executable,
				UserExecutable:      row.UserExecutable,
				ParentNodeID:        row.ParentNodeID,
				MethodDeclarationID: row.MethodDeclarationID,
			}
		case graph.ClassView:
			node.Attrs = graph.ViewAttributes{
				ContainsNoLoops: row.ContainsNoLoops,
				EventNotifier:   row.EventNotifier,
			}
		}
		tables.Nodes[i] = node
	}
	return tables, nil
}
