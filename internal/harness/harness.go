package harness

import (
	"context"
	"errors"
	"fmt"
)

// RunCheck executes one check and classifies its outcome: an
// *AssertionError is a failure, any other error is an error.
func RunCheck(ctx context.Context, s *Session, t Target, spec CheckSpec) CheckResult {
	cr := CheckResult{Name: spec.Name, Kind: spec.Kind, Status: StatusPass}

	fn, ok := checkFuncs[spec.Kind]
	var err error
	if !ok {
		err = fmt.Errorf("unknown check kind %q", spec.Kind)
	} else {
		err = fn(ctx, s, t, spec)
	}
	cr.Trace = s.takeTrace()

	if err != nil {
		cr.Err = err
		cr.Errors = []string{err.Error()}
		var ae *AssertionError
		if errors.As(err, &ae) {
			cr.Status = StatusFail
		} else {
			cr.Status = StatusError
		}
	}
	return cr
}

// Run executes a suite on the session: preconditions first, in order, then
// each check in order. Checks whose preconditions did not succeed are
// skipped. Suite target fields win over fallback.
//
// The trace sequence restarts at zero so repeated runs produce identical
// traces.
func (s *Session) Run(ctx context.Context, suite *Suite, fallback Target) *Result {
	s.seq.Reset()
	s.trace = nil
	result := NewResult(suite.Name, s.RunID)

	target := resolveTarget(suite.Target, fallback)
	logger := s.Logger.With("suite", suite.Name)

	succeeded := make(map[string]bool, len(suite.Preconditions))
	for _, p := range suite.Preconditions {
		pr := s.runPrecondition(ctx, p)
		if pr.Status == StatusPass {
			succeeded[p.Name] = true
			logger.Debug("precondition applied", "precondition", p.Name)
		} else {
			logger.Warn("precondition failed", "precondition", p.Name, "error", pr.Error)
		}
		result.AddPrecondition(pr)
	}

	for _, spec := range suite.Checks {
		if ctx.Err() != nil {
			result.AddCheck(CheckResult{
				Name:   spec.Name,
				Kind:   spec.Kind,
				Status: StatusError,
				Errors: []string{ctx.Err().Error()},
				Trace:  []TraceEvent{},
				Err:    ctx.Err(),
			})
			continue
		}

		if missing := unmetDependency(spec.DependsOn, succeeded); missing != "" {
			logger.Info("check skipped", "check", spec.Name, "precondition", missing)
			result.AddCheck(CheckResult{
				Name:   spec.Name,
				Kind:   spec.Kind,
				Status: StatusSkipped,
				Errors: []string{fmt.Sprintf("precondition %q did not succeed", missing)},
				Trace:  []TraceEvent{},
			})
			continue
		}

		cr := RunCheck(ctx, s, target, spec)
		switch cr.Status {
		case StatusPass:
			logger.Info("check passed", "check", spec.Name, "kind", spec.Kind)
		case StatusFail:
			logger.Warn("check failed", "check", spec.Name, "kind", spec.Kind, "error", cr.Err)
		default:
			logger.Error("check errored", "check", spec.Name, "kind", spec.Kind, "error", cr.Err)
		}
		result.AddCheck(cr)
	}
	return result
}

func (s *Session) runPrecondition(ctx context.Context, p Precondition) PreconditionResult {
	if err := s.Store.ExecTx(ctx, p.Statements); err != nil {
		return PreconditionResult{Name: p.Name, Status: StatusError, Error: err.Error()}
	}
	return PreconditionResult{Name: p.Name, Status: StatusPass}
}

func unmetDependency(deps []string, succeeded map[string]bool) string {
	for _, d := range deps {
		if !succeeded[d] {
			return d
		}
	}
	return ""
}

func resolveTarget(suite, fallback Target) Target {
	t := fallback
	if suite.BaseURL != "" {
		t.BaseURL = suite.BaseURL
	}
	if suite.Endpoint != "" {
		t.Endpoint = suite.Endpoint
	}
	return t
}
