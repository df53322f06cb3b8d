package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/dagclosure/internal/model"
)

// ErrLinkNotFound is returned when an operation names a pair that has no
// closure record.
var ErrLinkNotFound = errors.New("link not found")

// ErrHomogeneous is returned by type-filtered navigation on a graph whose
// nodes carry no type tags.
var ErrHomogeneous = errors.New("type filters require a polymorphic graph")

// InvariantError reports a violated internal precondition.
//
// Invariant errors are not client mistakes: they mean the closure table or
// the engine itself is inconsistent. The enclosing transaction is aborted.
type InvariantError struct {
	// Code identifies the error category.
	Code InvariantErrorCode

	// Message is a human-readable description.
	Message string

	// Link is the record the engine was working on.
	Link model.Link

	// Details contains additional context.
	Details map[string]string
}

// InvariantErrorCode categorizes invariant errors.
type InvariantErrorCode string

const (
	// ErrCodeInconsistentRewire indicates both or neither leg of a crossing
	// carried a pending count change, or a count went negative.
	ErrCodeInconsistentRewire InvariantErrorCode = "INCONSISTENT_REWIRE"

	// ErrCodeSelfModification indicates a rewiring pass tried to write the
	// record that triggered it.
	ErrCodeSelfModification InvariantErrorCode = "SELF_MODIFICATION"

	// ErrCodeImmutableField indicates an attempt to change a record's
	// ancestor or descendant.
	ErrCodeImmutableField InvariantErrorCode = "IMMUTABLE_FIELD"

	// ErrCodeNotDestroyable indicates an attempt to destroy a record that
	// other paths still depend on.
	ErrCodeNotDestroyable InvariantErrorCode = "NOT_DESTROYABLE"

	// ErrCodeCountOverflow indicates a path count no longer fits in an int64.
	ErrCodeCountOverflow InvariantErrorCode = "COUNT_OVERFLOW"
)

// Error implements the error interface.
func (e *InvariantError) Error() string {
	if e.Link.Ancestor.IsZero() && e.Link.Descendant.IsZero() {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (link=%s -> %s)", e.Code, e.Message, e.Link.Ancestor, e.Link.Descendant)
}

// IsInvariantError returns true if err is an InvariantError.
// Uses errors.As to handle wrapped errors.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// HasInvariantCode returns true if err is an InvariantError with code c.
func HasInvariantCode(err error, c InvariantErrorCode) bool {
	var ie *InvariantError
	if errors.As(err, &ie) {
		return ie.Code == c
	}
	return false
}

func newInconsistentRewire(above, below model.Link, reason string) *InvariantError {
	return &InvariantError{
		Code:    ErrCodeInconsistentRewire,
		Message: reason,
		Link:    model.Link{Ancestor: above.Ancestor, Descendant: below.Descendant},
		Details: map[string]string{
			"above": above.String(),
			"below": below.String(),
		},
	}
}

func newSelfModification(l model.Link) *InvariantError {
	return &InvariantError{
		Code:    ErrCodeSelfModification,
		Message: "rewiring pass cannot modify its own record",
		Link:    l,
	}
}

func newImmutableField(stored, proposed model.Link) *InvariantError {
	return &InvariantError{
		Code:    ErrCodeImmutableField,
		Message: "ancestor and descendant cannot be changed for an existing record",
		Link:    stored,
		Details: map[string]string{
			"proposed": fmt.Sprintf("%s -> %s", proposed.Ancestor, proposed.Descendant),
		},
	}
}

func newNotDestroyable(l model.Link) *InvariantError {
	return &InvariantError{
		Code:    ErrCodeNotDestroyable,
		Message: "cannot destroy a link that other paths depend on",
		Link:    l,
		Details: map[string]string{
			"count":  fmt.Sprintf("%d", l.Count),
			"direct": fmt.Sprintf("%t", l.Direct),
		},
	}
}

func newCountOverflow(l model.Link, what string) *InvariantError {
	return &InvariantError{
		Code:    ErrCodeCountOverflow,
		Message: "path count overflows int64",
		Link:    l,
		Details: map[string]string{"while": what},
	}
}
