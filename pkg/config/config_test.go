package config

import (
	"strings"
	"testing"
)

const validConfig = `
input_dir: ./nodesets
namespaces:
  - http://opcfoundation.org/UA/
  - http://example.com/machines/
restrict_to_namespaces: true
decode_enums: true
cache_path: ./tables.snap
log_level: debug
output:
  path: ./out/machines.NodeSet2.xml
  namespace_uri: http://example.com/machines/
  schema_path: ./UANodeSet.xsd
`

func TestParseValidConfig(t *testing.T) {
	cfg, err := Parse([]byte(validConfig))
	if err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if cfg.InputDir != "./nodesets" {
		t.Errorf("input dir lost: %q", cfg.InputDir)
	}
	if len(cfg.Namespaces) != 2 {
		t.Errorf("namespaces lost: %v", cfg.Namespaces)
	}
	if cfg.Output == nil || cfg.Output.NamespaceURI != "http://example.com/machines/" {
		t.Errorf("output section lost: %+v", cfg.Output)
	}
	if cfg.Output.IncludeInstanceLevelReferences {
		t.Errorf("instance-level references must default to off")
	}
}

func TestParseRejectsMissingInputDir(t *testing.T) {
	_, err := Parse([]byte("log_level: info"))
	if err == nil {
		t.Fatalf("config without input_dir must be rejected")
	}
	if !strings.Contains(err.Error(), "InputDir") {
		t.Errorf("error should name the field: %v", err)
	}
}

func TestParseRejectsBadLogLevel(t *testing.T) {
	_, err := Parse([]byte("input_dir: ./x\nlog_level: loud"))
	if err == nil {
		t.Errorf("unknown log level must be rejected")
	}
}

func TestParseRejectsOutputWithoutURI(t *testing.T) {
	doc := "input_dir: ./x\noutput:\n  path: ./out.xml\n"
	if _, err := Parse([]byte(doc)); err == nil {
		t.Errorf("output without namespace_uri must be rejected")
	}
}

func TestValidateRestrictionNeedsNamespaces(t *testing.T) {
	doc := "input_dir: ./x\nrestrict_to_namespaces: true\n"
	_, err := Parse([]byte(doc))
	if err == nil || !strings.Contains(err.Error(), "namespaces") {
		t.Errorf("restriction without namespaces must be rejected: %v", err)
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("input_dir: [")); err == nil {
		t.Errorf("malformed yaml must be rejected")
	}
}
