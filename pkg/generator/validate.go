package generator

import (
	"context"
	"io"
	"os"

	"github.com/jacoelho/xsd"

	"github.com/graphforge/uanodeset/pkg/graph"
	"github.com/graphforge/uanodeset/pkg/logging"
)

// SchemaValidator checks generated documents against the UANodeSet XSD.
// Validation findings are reported, never enforced; a file that fails the
// schema is still usable by the parser.
type SchemaValidator struct {
	schema *xsd.Engine
	log    logging.Logger
}

// NewSchemaValidator compiles the UANodeSet schema at xsdPath.
func NewSchemaValidator(xsdPath string, log logging.Logger) (*SchemaValidator, error) {
	if log == nil {
		log = logging.NopLogger{}
	}
	schema, err := xsd.Compile(context.Background(), xsd.File(xsdPath))
	if err != nil {
		return nil, graph.SchemaError("NewSchemaValidator", xsdPath, err)
	}
	return &SchemaValidator{schema: schema, log: log}, nil
}

// Validate runs the schema over the document and logs the outcome. The
// returned error carries the validation findings so callers can surface
// them, but a non-nil error does not mean the document is unreadable.
func (v *SchemaValidator) Validate(r io.Reader) error {
	if err := v.schema.Validate(context.Background(), r); err != nil {
		v.log.Warn("nodeset failed schema validation", logging.Error(err))
		return graph.SchemaError("Validate", "generated nodeset", err)
	}
	v.log.Debug("nodeset passed schema validation")
	return nil
}

// ValidateFile validates the file at path against the schema.
func (v *SchemaValidator) ValidateFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return graph.SchemaError("ValidateFile", path, err)
	}
	defer f.Close()
	return v.Validate(f)
}
