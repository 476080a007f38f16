package diagnostic

// Status tags which variant of a Result is populated.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Result is either Success{Output} or Failed{Diagnostics}.
type Result struct {
	Status      Status       `json:"status"`
	Output      string       `json:"output,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

func Success(output string) Result {
	return Result{Status: StatusSuccess, Output: output}
}

// Failed builds a failed result. A failure is never reported without a
// diagnostic: an empty list becomes a single InternalError.
func Failed(diags ...Diagnostic) Result {
	if len(diags) == 0 {
		diags = []Diagnostic{{
			Kind:       InternalError,
			RawMessage: "analysis failed without producing a diagnostic",
			ToolSource: "kodanaliz",
		}}
	}
	out := make([]Diagnostic, len(diags))
	copy(out, diags)
	return Result{Status: StatusFailed, Diagnostics: out}
}

func (r Result) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// Kinds returns the distinct kinds present, in first-seen order.
func (r Result) Kinds() []Kind {
	seen := make(map[Kind]bool)
	var kinds []Kind
	for _, d := range r.Diagnostics {
		if !seen[d.Kind] {
			seen[d.Kind] = true
			kinds = append(kinds, d.Kind)
		}
	}
	return kinds
}
