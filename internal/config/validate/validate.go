// Package validate checks JSON documents against JSON schemas.
package validate

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/config.schema.json
var configSchema []byte

const schemaBaseURL = "https://dartotsu-updater.local/schemas/"

var configSet = NewSchemaSet("config", configSchema)

// ConfigSchema returns the embedded schema for the updater config file.
func ConfigSchema() []byte {
	return configSchema
}

// ValidateAgainstSchema validates data against schema. ref optionally selects
// a sub-schema, e.g. "#/$defs/release". The schema is compiled on every call;
// use a SchemaSet for repeated validation.
func ValidateAgainstSchema(name string, schema []byte, data []byte, ref string) error {
	compiled, err := compile(name, schema, ref)
	if err != nil {
		return err
	}
	return validateDoc(name, compiled, data)
}

// ValidateConfigJSON validates a config document that has already been
// converted from YAML to JSON.
func ValidateConfigJSON(data []byte) error {
	return configSet.Validate(data, "")
}

// SchemaSet holds one schema document and compiles each referenced
// sub-schema once.
type SchemaSet struct {
	name   string
	schema []byte

	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

func NewSchemaSet(name string, schema []byte) *SchemaSet {
	return &SchemaSet{name: name, schema: schema, compiled: map[string]*jsonschema.Schema{}}
}

// Validate checks data against the sub-schema at ref ("" for the root).
func (s *SchemaSet) Validate(data []byte, ref string) error {
	compiled, err := s.lookup(ref)
	if err != nil {
		return err
	}
	return validateDoc(s.name, compiled, data)
}

func (s *SchemaSet) lookup(ref string) (*jsonschema.Schema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.compiled[ref]; ok {
		return c, nil
	}
	c, err := compile(s.name, s.schema, ref)
	if err != nil {
		return nil, err
	}
	s.compiled[ref] = c
	return c, nil
}

// validateDoc decodes data the way the schema library expects (numbers kept
// as json.Number) and validates it.
func validateDoc(name string, compiled *jsonschema.Schema, data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid JSON for %s: %w", name, err)
	}

	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("%s validation failed: %w", name, err)
	}
	return nil
}

func compile(name string, schema []byte, ref string) (*jsonschema.Schema, error) {
	if name == "" || strings.ContainsAny(name, "#?") {
		return nil, fmt.Errorf("invalid schema name %q", name)
	}
	if ref != "" && !strings.HasPrefix(ref, "#") {
		return nil, fmt.Errorf("invalid schema reference %q", ref)
	}

	url := schemaBaseURL + name + ".schema.json"
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, bytes.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("loading %s schema: %w", name, err)
	}
	compiled, err := c.Compile(url + ref)
	if err != nil {
		return nil, fmt.Errorf("compiling %s schema: %w", name, err)
	}
	return compiled, nil
}
