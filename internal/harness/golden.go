package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenDir is where golden snapshots live, relative to the test's package.
const GoldenDir = "testdata/golden"

// Snapshot renders a result as canonical JSON for golden comparison. The
// run ID is left out so snapshots are stable across runs.
func Snapshot(r *Result) ([]byte, error) {
	checks := make([]any, len(r.Checks))
	for i, c := range r.Checks {
		checks[i] = checkMap(c)
	}

	m := map[string]any{
		"suite":   r.Suite,
		"pass":    r.Pass,
		"checks":  checks,
		"passed":  r.Passed,
		"failed":  r.Failed,
		"errored": r.Errored,
		"skipped": r.Skipped,
	}
	if len(r.Preconditions) > 0 {
		pre := make([]any, len(r.Preconditions))
		for i, p := range r.Preconditions {
			pm := map[string]any{"name": p.Name, "status": string(p.Status)}
			if p.Error != "" {
				pm["error"] = p.Error
			}
			pre[i] = pm
		}
		m["preconditions"] = pre
	}
	return marshalCanonical(m)
}

func checkMap(c CheckResult) map[string]any {
	trace := make([]any, len(c.Trace))
	for i, ev := range c.Trace {
		trace[i] = eventMap(ev)
	}
	m := map[string]any{
		"name":   c.Name,
		"kind":   string(c.Kind),
		"status": string(c.Status),
		"trace":  trace,
	}
	if len(c.Errors) > 0 {
		errs := make([]any, len(c.Errors))
		for i, e := range c.Errors {
			errs[i] = e
		}
		m["errors"] = errs
	}
	return m
}

func eventMap(ev TraceEvent) map[string]any {
	m := map[string]any{"seq": ev.Seq, "type": ev.Type}
	for k, v := range map[string]string{
		"method":  ev.Method,
		"path":    ev.Path,
		"body":    ev.Body,
		"table":   ev.Table,
		"value":   ev.Value,
		"name":    ev.Name,
		"outcome": ev.Outcome,
	} {
		if v != "" {
			m[k] = v
		}
	}
	if ev.Status != 0 {
		m["status"] = ev.Status
	}
	return m
}

// RunWithGolden runs a suite on the session and compares the snapshot with
// testdata/golden/<suite name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Session, suite *Suite, fallback Target) *Result {
	t.Helper()

	result := s.Run(context.Background(), suite, fallback)
	if err := AssertGolden(t, suite.Name, result); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	return result
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}

// ErrSnapshotMismatch is returned by CompareGolden when the snapshot and
// the golden file differ.
var ErrSnapshotMismatch = errors.New("snapshot does not match golden file")

// CompareGolden checks a result against dir/<suite>.golden outside of
// tests. With update set the file is (re)written instead.
func CompareGolden(dir string, result *Result, update bool) (string, error) {
	data, err := Snapshot(result)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, result.Suite+".golden")

	if update {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return path, fmt.Errorf("failed to create golden dir: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return path, fmt.Errorf("failed to write golden file: %w", err)
		}
		return path, nil
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return path, fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(want, data) {
		return path, fmt.Errorf("%w: %s", ErrSnapshotMismatch, path)
	}
	return path, nil
}
