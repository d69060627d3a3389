// Package config loads the YAML pipeline configuration that drives parsing,
// serialization and caching runs.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// PipelineConfig describes one parse-transform-serialize run.
type PipelineConfig struct {
	// InputDir holds the NodeSet2 XML files to parse.
	InputDir string `yaml:"input_dir" validate:"required"`

	// Namespaces pins the consolidated namespace order. URIs found in the
	// files but missing here are appended behind the pinned ones.
	Namespaces []string `yaml:"namespaces" validate:"omitempty,dive,uri"`

	// RestrictToNamespaces drops input files that declare none of the
	// configured namespaces before parsing.
	RestrictToNamespaces bool `yaml:"restrict_to_namespaces"`

	// DecodeEnums replaces integer values of enumeration-typed variables
	// with their decoded labels after parsing.
	DecodeEnums bool `yaml:"decode_enums"`

	// CachePath, when set, stores the parsed tables as a compressed
	// snapshot and reuses it on later runs.
	CachePath string `yaml:"cache_path"`

	// Output configures serialization back to NodeSet2 XML. Optional; a
	// parse-only pipeline leaves it empty.
	Output *OutputConfig `yaml:"output"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// OutputConfig configures the generated nodeset file.
type OutputConfig struct {
	// Path of the generated file.
	Path string `yaml:"path" validate:"required"`

	// NamespaceURI selects the namespace the file is written for.
	NamespaceURI string `yaml:"namespace_uri" validate:"required,uri"`

	// IncludeInstanceLevelReferences keeps instance-level references that
	// leave the serialized namespace. Off by default to match the
	// self-contained-file convention.
	IncludeInstanceLevelReferences bool `yaml:"include_instance_level_references"`

	// SchemaPath points at the UANodeSet XSD for report-only validation
	// of the generated file.
	SchemaPath string `yaml:"schema_path"`
}

// Load reads and validates a pipeline configuration file.
func Load(path string) (*PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a pipeline configuration document.
func Parse(data []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration beyond what YAML decoding enforces.
func (c *PipelineConfig) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if c.RestrictToNamespaces && len(c.Namespaces) == 0 {
		return errors.New("restrict_to_namespaces requires a namespaces list")
	}
	return nil
}

// formatValidationError flattens validator field errors into one readable
// message.
func formatValidationError(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}
	msg := "invalid config:"
	for _, fe := range fieldErrors {
		msg += fmt.Sprintf(" %s fails %q;", fe.Namespace(), fe.Tag())
	}
	return errors.New(msg[:len(msg)-1])
}
