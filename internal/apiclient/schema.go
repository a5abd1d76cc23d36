package apiclient

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a compiled JSON schema used to validate response bodies.
type Schema struct {
	path   string
	schema *gojsonschema.Schema
}

// LoadSchema compiles the JSON schema file at path.
func LoadSchema(path string) (*Schema, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve schema path: %w", err)
	}
	loader := gojsonschema.NewReferenceLoader("file://" + filepath.ToSlash(abs))
	s, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", path, err)
	}
	return &Schema{path: path, schema: s}, nil
}

// Validate checks body against the schema.
func (s *Schema) Validate(body []byte) error {
	res, err := s.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("validate against %s: %w", s.path, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("response does not match %s: %s", s.path, strings.Join(msgs, "; "))
}
