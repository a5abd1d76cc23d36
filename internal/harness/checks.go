package harness

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/roach88/crosscheck/internal/apiclient"
	"github.com/roach88/crosscheck/internal/store"
)

// ReadCheck verifies that GET <endpoint> returns the database value.
//
// The expected value is read first; the response must have the expected
// status (200 by default) and a body exactly equal to that value.
func ReadCheck(ctx context.Context, s *Session, t Target, spec CheckSpec) error {
	spec = spec.WithDefaults()

	expected, err := s.queryValue(ctx, store.Selector{Table: spec.Table, Where: spec.where(), OrderBy: spec.IDColumn}, spec.Column)
	if err != nil {
		return err
	}

	resp, err := s.call(ctx, t, http.MethodGet, endpointFor(t, spec), nil)
	if err != nil {
		return err
	}
	if err := s.assertStatus(spec, resp); err != nil {
		return err
	}
	if err := s.assertSchema(spec, resp); err != nil {
		return err
	}
	return s.assertEqual(spec.Name, "body", "response body does not match value from database",
		expected, string(resp.Body))
}

// CreateCheck verifies that POST <endpoint> with the configured body returns
// 201 and the configured literal.
func CreateCheck(ctx context.Context, s *Session, t Target, spec CheckSpec) error {
	spec = spec.WithDefaults()

	resp, err := s.call(ctx, t, http.MethodPost, endpointFor(t, spec), []byte(spec.Body))
	if err != nil {
		return err
	}
	if err := s.assertStatus(spec, resp); err != nil {
		return err
	}
	if err := s.assertSchema(spec, resp); err != nil {
		return err
	}
	return s.assertEqual(spec.Name, "body", "response body does not match expected value",
		*spec.Expect.Body, string(resp.Body))
}

// UpdateCheck verifies that PUT <endpoint>/<row_id> echoes the new value and
// leaves exactly the expected number of matching rows (1 by default).
func UpdateCheck(ctx context.Context, s *Session, t Target, spec CheckSpec) error {
	spec = spec.WithDefaults()

	path := apiclient.ResourcePath(endpointFor(t, spec), spec.RowID)
	resp, err := s.call(ctx, t, http.MethodPut, path, []byte(spec.Body))
	if err != nil {
		return err
	}
	if err := s.assertStatus(spec, resp); err != nil {
		return err
	}
	if err := s.assertSchema(spec, resp); err != nil {
		return err
	}

	got, err := fieldString(resp.Body, spec.Expect.Field)
	if err != nil {
		return s.fail(spec.Name, "field", err.Error(), *spec.Expect.Value, "unreadable")
	}
	if err := s.assertEqual(spec.Name, "field", spec.Expect.Field, *spec.Expect.Value, got); err != nil {
		return err
	}

	count, err := s.countRows(ctx, spec.Table, spec.where())
	if err != nil {
		return err
	}
	return s.assertEqual(spec.Name, "count", "record was not updated successfully",
		strconv.FormatInt(*spec.Expect.Count, 10), strconv.FormatInt(count, 10))
}

// DeleteCheck verifies that DELETE <endpoint>/<row_id> returns 204 and
// removes exactly the expected number of rows (1 by default).
func DeleteCheck(ctx context.Context, s *Session, t Target, spec CheckSpec) error {
	spec = spec.WithDefaults()

	before, err := s.countRows(ctx, spec.Table, spec.where())
	if err != nil {
		return err
	}

	path := apiclient.ResourcePath(endpointFor(t, spec), spec.RowID)
	resp, err := s.call(ctx, t, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	if err := s.assertStatus(spec, resp); err != nil {
		return err
	}

	after, err := s.countRows(ctx, spec.Table, spec.where())
	if err != nil {
		return err
	}
	return s.assertEqual(spec.Name, "count", "record was not deleted successfully",
		strconv.FormatInt(before-*spec.Expect.Delta, 10), strconv.FormatInt(after, 10))
}

// checkFuncs maps each kind to its operation.
var checkFuncs = map[Kind]func(context.Context, *Session, Target, CheckSpec) error{
	KindRead:   ReadCheck,
	KindCreate: CreateCheck,
	KindUpdate: UpdateCheck,
	KindDelete: DeleteCheck,
}

func endpointFor(t Target, spec CheckSpec) string {
	if spec.Endpoint != "" {
		return spec.Endpoint
	}
	return t.Endpoint
}

func (s *Session) queryValue(ctx context.Context, sel store.Selector, column string) (string, error) {
	v, err := s.Store.QueryValue(ctx, sel, column)
	if err != nil {
		return "", &QueryError{Table: sel.Table, Err: err}
	}
	s.record(TraceEvent{Type: EventQuery, Table: sel.Table, Name: column, Value: v})
	return v, nil
}

func (s *Session) countRows(ctx context.Context, table string, where map[string]any) (int64, error) {
	n, err := s.Store.CountRows(ctx, store.Selector{Table: table, Where: where})
	if err != nil {
		return 0, &QueryError{Table: table, Err: err}
	}
	s.record(TraceEvent{Type: EventQuery, Table: table, Name: "count", Value: strconv.FormatInt(n, 10)})
	return n, nil
}

func (s *Session) call(ctx context.Context, t Target, method, path string, body []byte) (*apiclient.Response, error) {
	s.record(TraceEvent{Type: EventRequest, Method: method, Path: path, Body: string(body)})
	s.Logger.Debug("request", "method", method, "path", path)

	resp, err := s.client(t).Do(ctx, method, path, body)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	s.record(TraceEvent{Type: EventResponse, Status: resp.Status, Body: string(resp.Body)})
	s.Logger.Debug("response", "method", method, "path", path, "status", resp.Status)
	return resp, nil
}

// assertStatus runs before any body comparison: a wrong status ends the check.
func (s *Session) assertStatus(spec CheckSpec, resp *apiclient.Response) error {
	return s.assertEqual(spec.Name, "status", "unexpected status code",
		strconv.Itoa(spec.Expect.Status), strconv.Itoa(resp.Status))
}

func (s *Session) assertSchema(spec CheckSpec, resp *apiclient.Response) error {
	if spec.ResponseSchema == "" {
		return nil
	}
	schema, err := apiclient.LoadSchema(spec.ResponseSchema)
	if err != nil {
		return err
	}
	if err := schema.Validate(resp.Body); err != nil {
		return s.fail(spec.Name, "schema", err.Error(), spec.ResponseSchema, "invalid body")
	}
	s.record(TraceEvent{Type: EventAssert, Name: "schema", Outcome: string(StatusPass)})
	return nil
}

func (s *Session) assertEqual(check, what, msg, expected, actual string) error {
	if expected != actual {
		return s.fail(check, what, msg, strconv.Quote(expected), strconv.Quote(actual))
	}
	s.record(TraceEvent{Type: EventAssert, Name: what, Value: actual, Outcome: string(StatusPass)})
	return nil
}

func (s *Session) fail(check, what, msg, expected, actual string) error {
	s.record(TraceEvent{Type: EventAssert, Name: what, Outcome: string(StatusFail)})
	return &AssertionError{Check: check, What: what, Message: msg, Expected: expected, Actual: actual}
}

// fieldString extracts a JSONPath value and renders it as text: strings as
// themselves, anything else as JSON.
func fieldString(body []byte, path string) (string, error) {
	v, found, err := apiclient.Field(body, path)
	if err != nil {
		return "", err
	}
	if !found {
		return "", errors.New("field " + path + " not found in response")
	}
	if str, ok := v.(string); ok {
		return str, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
