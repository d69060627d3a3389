package parser

import (
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/graphforge/uanodeset/pkg/graph"
)

// ListXMLFiles returns every regular .xml file directly inside the
// directory.
func ListXMLFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, graph.SchemaError("ListXMLFiles", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xml") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// PeekNamespaces opens the file and reads just far enough to learn which
// namespace URIs it defines: the Model headers when present, otherwise the
// NamespaceUris block. The base OPC Foundation nodeset file carries neither
// in some published versions, so its well-known filename is special-cased.
func PeekNamespaces(file string) ([]string, error) {
	if strings.HasSuffix(file, "Opc.Ua.NodeSet2.xml") {
		return []string{"http://opcfoundation.org/UA", BaseNamespaceURI}, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, graph.SchemaError("PeekNamespaces", file, err)
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	var fromModels, fromUris []string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, graph.SchemaError("PeekNamespaces", file, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "Models":
			elem, err := decodeElement(dec, start)
			if err != nil {
				return nil, graph.SchemaError("PeekNamespaces", file, err)
			}
			for _, model := range elem.FindAll("Model") {
				if uri, ok := model.Attr("ModelUri"); ok {
					fromModels = append(fromModels, uri)
				}
			}
		case "NamespaceUris":
			elem, err := decodeElement(dec, start)
			if err != nil {
				return nil, graph.SchemaError("PeekNamespaces", file, err)
			}
			for _, uri := range elem.FindAll("Uri") {
				fromUris = append(fromUris, strings.TrimSpace(uri.Text))
			}
		}
		if len(fromModels) > 0 {
			return fromModels, nil
		}
	}
	if len(fromModels) > 0 {
		return fromModels, nil
	}
	return fromUris, nil
}

// ExcludeFilesNotInNamespaces drops the files that declare none of the
// wanted namespace URIs.
func ExcludeFilesNotInNamespaces(files []string, namespaces []string) ([]string, error) {
	wanted := make(map[string]struct{}, len(namespaces))
	for _, ns := range namespaces {
		if ns != "" {
			wanted[ns] = struct{}{}
		}
	}

	var out []string
	for _, file := range files {
		declared, err := PeekNamespaces(file)
		if err != nil {
			return nil, err
		}
		for _, uri := range declared {
			if _, ok := wanted[uri]; ok {
				out = append(out, file)
				break
			}
		}
	}
	return out, nil
}
