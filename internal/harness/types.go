package harness

import "github.com/roach88/dagclosure/internal/model"

// StepRecord is the observed outcome of one step.
type StepRecord struct {
	Op      string   `json:"op"`
	From    string   `json:"from"`
	To      string   `json:"to"`
	Outcome string   `json:"outcome"`
	Rules   []string `json:"rules,omitempty"`
	Code    string   `json:"code,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every step met its expectation and every assertion
	// held.
	Pass bool `json:"pass"`

	// Steps records each step in order.
	Steps []StepRecord `json:"steps"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Closure is the final closure table in store order.
	Closure []model.Link `json:"closure"`

	// Passes is the number of rewiring passes the scenario ran.
	Passes int64 `json:"passes"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Steps:   []StepRecord{},
		Errors:  []string{},
		Closure: []model.Link{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
