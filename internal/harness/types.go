package harness

// TraceEvent is one step of a scenario run: a compilation or a fetch.
type TraceEvent struct {
	Type     string   `json:"type"` // "compile" or "fetch"
	Dialect  string   `json:"dialect"`
	Query    string   `json:"query,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
	Items    *int     `json:"items,omitempty"`
	Total    *int64   `json:"total,omitempty"`
	Seq      int64    `json:"seq,omitempty"`
}

// Trace event types.
const (
	EventCompile = "compile"
	EventFetch   = "fetch"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses match.
	Pass bool `json:"pass"`

	// Trace lists compilations in dialect order, then the fetch, if any.
	Trace []TraceEvent `json:"trace"`

	// Include is the rendered include value, empty when none.
	Include string `json:"include,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Compiled returns the compile event for a dialect.
func (r *Result) Compiled(tag string) (TraceEvent, bool) {
	for _, ev := range r.Trace {
		if ev.Type == EventCompile && ev.Dialect == tag {
			return ev, true
		}
	}
	return TraceEvent{}, false
}

// Fetched returns the fetch event, if the scenario had a fetch step.
func (r *Result) Fetched() (TraceEvent, bool) {
	for _, ev := range r.Trace {
		if ev.Type == EventFetch {
			return ev, true
		}
	}
	return TraceEvent{}, false
}
