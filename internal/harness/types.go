package harness

// Trace event kinds.
const (
	EventStep   = "step"
	EventChange = "change"
)

// TraceEvent is either a flow step outcome or a change log entry written
// by that step.
type TraceEvent struct {
	Seq        int    `json:"seq"`
	Kind       string `json:"kind"`
	Action     string `json:"action,omitempty"`
	ItemID     string `json:"item_id,omitempty"`
	Field      string `json:"field,omitempty"`
	OldValue   string `json:"old_value,omitempty"`
	NewValue   string `json:"new_value,omitempty"`
	ChangeType string `json:"change_type,omitempty"`
	Outcome    string `json:"outcome,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds flow steps and the change log entries they wrote, in
	// order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds failed expectations and assertions.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
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

func (r *Result) add(ev TraceEvent) {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
}
