package harness

import (
	"github.com/roach88/blogdesk/internal/blogstore"
	"github.com/roach88/blogdesk/internal/session"
)

// TraceEvent is one journal row as recorded during a scenario.
type TraceEvent struct {
	Seq       int64          `json:"seq"`
	RequestID string         `json:"request_id"`
	Kind      string         `json:"kind"`
	Phase     string         `json:"phase"`
	Detail    map[string]any `json:"detail,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index int    `json:"index"`
	Op    string `json:"op"`
	Class string `json:"class,omitempty"`
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when every step and assertion matched.
	Pass bool `json:"pass"`

	Steps []StepResult `json:"steps"`

	// Trace is the operation journal in seq order.
	Trace []TraceEvent `json:"trace"`

	Errors []string `json:"errors,omitempty"`

	State    blogstore.State `json:"state"`
	Session  session.Session `json:"session"`
	Users    int             `json:"users"`
	Requests map[string]int  `json:"requests"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Steps:    []StepResult{},
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Requests: make(map[string]int),
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
