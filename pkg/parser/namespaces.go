package parser

import (
	"github.com/graphforge/uanodeset/pkg/logging"
	"github.com/graphforge/uanodeset/pkg/ua"
)

// BaseNamespaceURI is the OPC Foundation namespace, consolidated index 0 by
// convention.
const BaseNamespaceURI = "http://opcfoundation.org/UA/"

// NamespaceBuilder accumulates the consolidated namespace array across a
// multi-file parse. It is created once per parse call with the desired
// namespace order and threaded through every file; URIs a file declares that
// are not in the desired order are appended at the end with a warning.
type NamespaceBuilder struct {
	uris []string
	log  logging.Logger
}

// NewNamespaceBuilder seeds the builder with the desired namespace order.
// The base namespace is appended if the caller left it out.
func NewNamespaceBuilder(desired []string, log logging.Logger) *NamespaceBuilder {
	if log == nil {
		log = logging.NopLogger{}
	}
	b := &NamespaceBuilder{uris: append([]string(nil), desired...), log: log}
	if b.index(BaseNamespaceURI) < 0 {
		b.uris = append(b.uris, BaseNamespaceURI)
	}
	return b
}

func (b *NamespaceBuilder) index(uri string) int {
	for i, u := range b.uris {
		if u == uri {
			return i
		}
	}
	return -1
}

// Map builds the file-local to consolidated namespace map for one file's
// declared URI list. File index 0 is the base namespace; declared URIs start
// at file index 1.
func (b *NamespaceBuilder) Map(declared []string) ua.NamespaceMap {
	nsMap := ua.NamespaceMap{0: 0}
	for i, uri := range declared {
		idx := b.index(uri)
		if idx < 0 {
			idx = len(b.uris)
			b.log.Warn("namespace not in desired list, appending",
				logging.Namespace(uri),
				logging.NamespaceIndex(idx))
			b.uris = append(b.uris, uri)
		}
		nsMap[uint16(i+1)] = uint16(idx)
	}
	return nsMap
}

// URIs returns the consolidated namespace array built so far.
func (b *NamespaceBuilder) URIs() []string {
	return append([]string(nil), b.uris...)
}
