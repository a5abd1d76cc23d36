package harness

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Suite is a named set of checks against one API and one database.
type Suite struct {
	// Name uniquely identifies this suite.
	Name string `yaml:"name"`

	// Description explains what the suite verifies.
	Description string `yaml:"description"`

	// Target is the API under test. Empty fields fall back to the run
	// configuration.
	Target Target `yaml:"target,omitempty"`

	// Preconditions run in order on the pinned connection before any check.
	Preconditions []Precondition `yaml:"preconditions,omitempty"`

	// Checks run in order, one at a time.
	Checks []CheckSpec `yaml:"checks"`
}

// Target is the base URL and endpoint path a check calls.
type Target struct {
	BaseURL  string `yaml:"base_url,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// Precondition is a named seed step: SQL statements that establish the
// state mutating checks rely on.
type Precondition struct {
	Name       string   `yaml:"name"`
	Statements []string `yaml:"statements"`
}

// CheckSpec configures one check. Literal fields left empty take the
// defaults of the check's kind.
type CheckSpec struct {
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`

	// Endpoint overrides the target endpoint for this check.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Table, Where, IDColumn and RowID select the rows the check reads.
	// When IDColumn is set the selection is narrowed to IDColumn = RowID.
	Table    string         `yaml:"table,omitempty"`
	Where    map[string]any `yaml:"where,omitempty"`
	IDColumn string         `yaml:"id_column,omitempty"`

	// RowID is appended to the endpoint for update and delete.
	RowID string `yaml:"row_id,omitempty"`

	// Column is the value a read check compares the response body with.
	// It is read from the first selected row, ordered by IDColumn when set.
	Column string `yaml:"column,omitempty"`

	// Body is the JSON request body for create and update.
	Body string `yaml:"body,omitempty"`

	Expect Expect `yaml:"expect,omitempty"`

	// ResponseSchema is a JSON schema file the response body must satisfy.
	// Relative paths resolve against the suite file's directory.
	ResponseSchema string `yaml:"response_schema,omitempty"`

	// DependsOn names preconditions that must succeed before this check runs.
	DependsOn []string `yaml:"depends_on,omitempty"`
}

// Expect holds the expected outcome of a check.
type Expect struct {
	Status int     `yaml:"status,omitempty"`
	Body   *string `yaml:"body,omitempty"`  // create: literal response body
	Field  string  `yaml:"field,omitempty"` // update: JSONPath into the response
	Value  *string `yaml:"value,omitempty"` // update: expected value at Field
	Count  *int64  `yaml:"count,omitempty"` // update: rows matching afterwards
	Delta  *int64  `yaml:"delta,omitempty"` // delete: rows removed
}

// Defaults for the literals a check does not set.
const (
	DefaultCreateBody     = `{"key":"value"}`
	DefaultCreateExpected = "expectedValue"
	DefaultUpdateBody     = `{"key":"newValue"}`
	DefaultUpdateField    = "$.key"
	DefaultUpdateValue    = "newValue"
	DefaultRowID          = "1"
)

// WithDefaults returns a copy of c with every unset literal filled in for
// its kind.
func (c CheckSpec) WithDefaults() CheckSpec {
	out := c
	switch c.Kind {
	case KindRead:
		if out.Expect.Status == 0 {
			out.Expect.Status = http.StatusOK
		}
	case KindCreate:
		if out.Body == "" {
			out.Body = DefaultCreateBody
		}
		if out.Expect.Status == 0 {
			out.Expect.Status = http.StatusCreated
		}
		if out.Expect.Body == nil {
			out.Expect.Body = ptr(DefaultCreateExpected)
		}
	case KindUpdate:
		if out.Body == "" {
			out.Body = DefaultUpdateBody
		}
		if out.RowID == "" {
			out.RowID = DefaultRowID
		}
		if out.Expect.Status == 0 {
			out.Expect.Status = http.StatusOK
		}
		if out.Expect.Field == "" {
			out.Expect.Field = DefaultUpdateField
		}
		if out.Expect.Value == nil {
			out.Expect.Value = ptr(DefaultUpdateValue)
		}
		if out.Expect.Count == nil {
			out.Expect.Count = ptr(int64(1))
		}
	case KindDelete:
		if out.RowID == "" {
			out.RowID = DefaultRowID
		}
		if out.Expect.Status == 0 {
			out.Expect.Status = http.StatusNoContent
		}
		if out.Expect.Delta == nil {
			out.Expect.Delta = ptr(int64(1))
		}
	}
	return out
}

// where returns the effective row filter: Where plus IDColumn = RowID.
func (c CheckSpec) where() map[string]any {
	if len(c.Where) == 0 && c.IDColumn == "" {
		return nil
	}
	w := make(map[string]any, len(c.Where)+1)
	for k, v := range c.Where {
		w[k] = v
	}
	if c.IDColumn != "" {
		w[c.IDColumn] = c.RowID
	}
	return w
}

func ptr[T any](v T) *T { return &v }

// LoadSuite reads and validates a suite file. Unknown fields are rejected
// so typos fail loudly. Relative response_schema paths are resolved against
// the suite's directory.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}

	suite, err := ParseSuite(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i := range suite.Checks {
		p := suite.Checks[i].ResponseSchema
		if p != "" && !filepath.IsAbs(p) {
			suite.Checks[i].ResponseSchema = filepath.Join(base, p)
		}
	}
	return suite, nil
}

// ParseSuite decodes and validates suite YAML.
func ParseSuite(data []byte) (*Suite, error) {
	var suite Suite
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&suite); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateSuite(&suite); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}
	return &suite, nil
}

// validateSuite checks required fields and references.
func validateSuite(s *Suite) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\`) {
		return fmt.Errorf("name %q must not contain path separators", s.Name)
	}
	if len(s.Checks) == 0 {
		return fmt.Errorf("checks list is required and must be non-empty")
	}

	preconditions := make(map[string]bool, len(s.Preconditions))
	for i, p := range s.Preconditions {
		if p.Name == "" {
			return fmt.Errorf("preconditions[%d]: name is required", i)
		}
		if preconditions[p.Name] {
			return fmt.Errorf("preconditions[%d]: duplicate name %q", i, p.Name)
		}
		if len(p.Statements) == 0 {
			return fmt.Errorf("preconditions[%d]: statements list is required", i)
		}
		preconditions[p.Name] = true
	}

	names := make(map[string]bool, len(s.Checks))
	for i, c := range s.Checks {
		if c.Name == "" {
			return fmt.Errorf("checks[%d]: name is required", i)
		}
		if names[c.Name] {
			return fmt.Errorf("checks[%d]: duplicate name %q", i, c.Name)
		}
		names[c.Name] = true

		if err := validateCheck(i, &c); err != nil {
			return err
		}
		for _, dep := range c.DependsOn {
			if !preconditions[dep] {
				return fmt.Errorf("checks[%d]: depends_on references unknown precondition %q", i, dep)
			}
		}
	}
	return nil
}

// validateCheck validates a single check based on its kind.
func validateCheck(index int, c *CheckSpec) error {
	switch c.Kind {
	case KindRead:
		if c.Table == "" {
			return fmt.Errorf("checks[%d]: table is required for read", index)
		}
		if c.Column == "" {
			return fmt.Errorf("checks[%d]: column is required for read", index)
		}
		if c.IDColumn != "" && c.RowID == "" {
			return fmt.Errorf("checks[%d]: row_id is required when id_column is set", index)
		}
	case KindCreate:
	case KindUpdate, KindDelete:
		if c.Table == "" {
			return fmt.Errorf("checks[%d]: table is required for %s", index, c.Kind)
		}
	case "":
		return fmt.Errorf("checks[%d]: kind is required", index)
	default:
		return fmt.Errorf("checks[%d]: unknown kind %q", index, c.Kind)
	}

	if c.Expect.Status < 0 || c.Expect.Status > 599 {
		return fmt.Errorf("checks[%d]: expect.status %d is not an HTTP status", index, c.Expect.Status)
	}
	if c.Expect.Count != nil && *c.Expect.Count < 0 {
		return fmt.Errorf("checks[%d]: expect.count must be non-negative", index)
	}
	return nil
}
