package harness

// Kind is the HTTP verb a check exercises.
type Kind string

// Check kinds.
const (
	KindRead   Kind = "read"
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Status is the outcome of a check or precondition.
type Status string

// Outcomes.
const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"    // assertion mismatch
	StatusError   Status = "error"   // setup, query or transport problem
	StatusSkipped Status = "skipped" // a precondition it depends on did not succeed
)

// Trace event types.
const (
	EventQuery    = "query"
	EventRequest  = "request"
	EventResponse = "response"
	EventAssert   = "assert"
)

// TraceEvent is one step of a check.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Type    string `json:"type"`
	Method  string `json:"method,omitempty"`
	Path    string `json:"path,omitempty"`
	Status  int    `json:"status,omitempty"`
	Body    string `json:"body,omitempty"`
	Table   string `json:"table,omitempty"`
	Value   string `json:"value,omitempty"`
	Name    string `json:"name,omitempty"`
	Outcome string `json:"outcome,omitempty"`
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name   string       `json:"name"`
	Kind   Kind         `json:"kind"`
	Status Status       `json:"status"`
	Errors []string     `json:"errors,omitempty"`
	Trace  []TraceEvent `json:"trace"`

	// Err is the error that ended the check, for errors.As inspection.
	Err error `json:"-"`
}

// PreconditionResult is the outcome of one precondition.
type PreconditionResult struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Result is the outcome of running a suite.
type Result struct {
	Suite         string               `json:"suite"`
	RunID         string               `json:"run_id"`
	Pass          bool                 `json:"pass"`
	Preconditions []PreconditionResult `json:"preconditions,omitempty"`
	Checks        []CheckResult        `json:"checks"`
	Passed        int                  `json:"passed"`
	Failed        int                  `json:"failed"`
	Errored       int                  `json:"errored"`
	Skipped       int                  `json:"skipped"`
}

// NewResult creates a passing result with no checks.
func NewResult(suite, runID string) *Result {
	return &Result{
		Suite:  suite,
		RunID:  runID,
		Pass:   true,
		Checks: []CheckResult{},
	}
}

// AddCheck appends a check result and updates the tallies. Skipped checks
// do not fail the run; failed and errored ones do.
func (r *Result) AddCheck(cr CheckResult) {
	r.Checks = append(r.Checks, cr)
	switch cr.Status {
	case StatusPass:
		r.Passed++
	case StatusFail:
		r.Failed++
		r.Pass = false
	case StatusError:
		r.Errored++
		r.Pass = false
	case StatusSkipped:
		r.Skipped++
	}
}

// AddPrecondition records a precondition outcome. A failed precondition
// fails the run even if no check depends on it.
func (r *Result) AddPrecondition(pr PreconditionResult) {
	r.Preconditions = append(r.Preconditions, pr)
	if pr.Status != StatusPass {
		r.Pass = false
	}
}
