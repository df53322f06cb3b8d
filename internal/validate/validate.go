// Package validate implements the pre-commit checks for closure records.
//
// Create runs before a record is first stored; Update runs before a stored
// record is changed by a client. Both return every violation found rather
// than failing fast. Record mutations issued by the engine itself while
// rewiring never pass through this package.
package validate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/dagclosure/internal/model"
)

// Rule names a violated invariant.
type Rule string

// Create rules.
const (
	DuplicateLink      Rule = "DuplicateLink"
	ReverseCycle       Rule = "ReverseCycle"
	SelfLoop           Rule = "SelfLoop"
	ImpossibleDirect   Rule = "ImpossibleDirect"
	ImpossibleIndirect Rule = "ImpossibleIndirect"
)

// Update rules.
const (
	NoChange               Rule = "NoChange"
	ManualCountChange      Rule = "ManualCountChange"
	UnmakeableLonelyDirect Rule = "UnmakeableLonelyDirect"
)

var messages = map[Rule]string{
	DuplicateLink:          "link already exists between these points",
	ReverseCycle:           "link already exists in the opposite direction",
	SelfLoop:               "link must start and end in different places",
	ImpossibleDirect:       "cannot create a direct link with a count other than 0",
	ImpossibleIndirect:     "cannot create an indirect link with a count less than 1",
	NoChange:               "no changes",
	ManualCountChange:      "do not manually change the count value",
	UnmakeableLonelyDirect: "cannot make a direct link with count 1 indirect",
}

// Violation is one failed check.
type Violation struct {
	Rule    Rule   `json:"rule"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (v Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Rule, v.Message)
}

func violation(r Rule) Violation {
	return Violation{Rule: r, Message: messages[r]}
}

// NewViolation returns the violation for rule r with its standard message.
func NewViolation(r Rule) Violation {
	return violation(r)
}

// Reader is the lookup a create check needs from the store.
type Reader interface {
	FindOne(ctx context.Context, q model.Query) (*model.Link, error)
}

// Create checks a record that is about to be stored for the first time.
//
// The record is expected in its pre-rewiring state: a new direct record
// carries Count 0 because the engine adds the arc's own path afterwards.
func Create(ctx context.Context, r Reader, l model.Link) ([]Violation, error) {
	var out []Violation

	dup, err := r.FindOne(ctx, model.Pair(l.Ancestor, l.Descendant))
	if err != nil {
		return nil, fmt.Errorf("validate create: duplicate lookup: %w", err)
	}
	if dup != nil {
		out = append(out, violation(DuplicateLink))
	}

	rev, err := r.FindOne(ctx, model.Pair(l.Descendant, l.Ancestor))
	if err != nil {
		return nil, fmt.Errorf("validate create: reverse lookup: %w", err)
	}
	if rev != nil {
		out = append(out, violation(ReverseCycle))
	}

	if l.Ancestor.Equal(l.Descendant) {
		out = append(out, violation(SelfLoop))
	}

	if l.Direct && l.Count != 0 {
		out = append(out, violation(ImpossibleDirect))
	}
	if !l.Direct && l.Count < 1 {
		out = append(out, violation(ImpossibleIndirect))
	}

	return out, nil
}

// Update checks a client change from before (stored) to after (proposed).
func Update(before, after model.Link) []Violation {
	var out []Violation

	directChanged := before.Direct != after.Direct
	countChanged := before.Count != after.Count

	if !directChanged && !countChanged {
		out = append(out, violation(NoChange))
	}
	if directChanged && countChanged {
		out = append(out, violation(ManualCountChange))
	}
	if directChanged && !after.Direct && after.Count == 1 {
		out = append(out, violation(UnmakeableLonelyDirect))
	}

	return out
}

// RejectedError reports a mutation refused by validation. Nothing was
// committed.
type RejectedError struct {
	Op         string
	Link       model.Link
	Violations []Violation
}

// Reject wraps violations for the given operation. It returns nil when
// there are none.
func Reject(op string, l model.Link, vs []Violation) error {
	if len(vs) == 0 {
		return nil
	}
	return &RejectedError{Op: op, Link: l, Violations: vs}
}

// RejectRule builds a RejectedError carrying a single rule.
func RejectRule(op string, l model.Link, r Rule) error {
	return Reject(op, l, []Violation{violation(r)})
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Error()
	}
	return fmt.Sprintf("%s %s -> %s rejected: %s",
		e.Op, e.Link.Ancestor, e.Link.Descendant, strings.Join(parts, "; "))
}

// Has reports whether the rejection includes rule r.
func (e *RejectedError) Has(r Rule) bool {
	for _, v := range e.Violations {
		if v.Rule == r {
			return true
		}
	}
	return false
}

// Rules lists the violated rules in order.
func (e *RejectedError) Rules() []Rule {
	out := make([]Rule, len(e.Violations))
	for i, v := range e.Violations {
		out[i] = v.Rule
	}
	return out
}

// IsRejected reports whether err is a validation rejection.
// Uses errors.As to handle wrapped errors.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

// HasViolation reports whether err is a rejection that includes rule r.
func HasViolation(err error, r Rule) bool {
	var re *RejectedError
	if errors.As(err, &re) {
		return re.Has(r)
	}
	return false
}
