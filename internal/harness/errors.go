package harness

import (
	"fmt"
	"strings"
)

// Setup failure kinds.
const (
	SetupAuth     = "auth"
	SetupDatabase = "database"
)

// SetupError means the session could not be established.
type SetupError struct {
	Kind string // SetupAuth or SetupDatabase
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup failed (%s): %v", e.Kind, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// QueryError means a database read needed by a check failed.
type QueryError struct {
	Table string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query on %s failed: %v", e.Table, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// TransportError means an HTTP call produced no response.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AssertionError means the API and the database (or a configured literal)
// disagree.
type AssertionError struct {
	Check    string // check name
	What     string // status, body, field, count or schema
	Message  string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s: %s assertion failed", e.Check, e.What)
	if e.Message != "" {
		fmt.Fprintf(&buf, ": %s", e.Message)
	}
	fmt.Fprintf(&buf, " (expected %s, actual %s)", e.Expected, e.Actual)
	return buf.String()
}
