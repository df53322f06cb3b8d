package harness

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/dagclosure/internal/model"
)

// AssertionError describes a failed assertion.
type AssertionError struct {
	Type     string
	Subject  string
	Expected any
	Actual   any
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s %s: expected %v, got %v", e.Type, e.Subject, e.Expected, e.Actual)
}

func (h *Harness) evaluate(ctx context.Context, a Assertion) error {
	subject := a.From + ">" + a.To
	switch a.Type {
	case AssertLink:
		return h.assertLink(ctx, a, subject)

	case AssertNoLink:
		l, err := h.engine.FindLink(ctx, a.From, a.To)
		if err != nil {
			return err
		}
		if l != nil {
			return &AssertionError{Type: a.Type, Subject: subject, Expected: "no record", Actual: l.String()}
		}
		return nil

	case AssertConnected, AssertNotConnected:
		ok, err := h.engine.Connected(ctx, a.From, a.To)
		if err != nil {
			return err
		}
		want := a.Type == AssertConnected
		if ok != want {
			return &AssertionError{Type: a.Type, Subject: subject, Expected: want, Actual: ok}
		}
		return nil

	case AssertPath:
		var path []model.NodeRef
		var err error
		if a.Kind == "longest" {
			path, err = h.engine.LongestPathBetween(ctx, a.From, a.To)
		} else {
			path, err = h.engine.ShortestPathBetween(ctx, a.From, a.To)
		}
		if err != nil {
			return err
		}
		got := refStrings(path)
		want := a.Nodes
		if want == nil {
			want = []string{}
		}
		if !slices.Equal(got, want) {
			return &AssertionError{Type: a.Kind + " " + a.Type, Subject: subject, Expected: want, Actual: got}
		}
		return nil

	case AssertExact:
		ds, err := h.engine.Verify(ctx)
		if err != nil {
			return err
		}
		if len(ds) > 0 {
			return &AssertionError{Type: a.Type, Subject: "closure", Expected: "no discrepancies", Actual: ds}
		}
		return nil

	case AssertSize:
		links, err := h.engine.Links(ctx, model.Query{})
		if err != nil {
			return err
		}
		if int64(len(links)) != *a.Count {
			return &AssertionError{Type: a.Type, Subject: "closure", Expected: *a.Count, Actual: len(links)}
		}
		return nil
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func (h *Harness) assertLink(ctx context.Context, a Assertion, subject string) error {
	l, err := h.engine.FindLink(ctx, a.From, a.To)
	if err != nil {
		return err
	}
	if l == nil {
		return &AssertionError{Type: a.Type, Subject: subject, Expected: "a record", Actual: "none"}
	}
	if a.Direct != nil && l.Direct != *a.Direct {
		return &AssertionError{Type: a.Type + " direct", Subject: subject, Expected: *a.Direct, Actual: l.Direct}
	}
	if a.Count != nil && l.Count != *a.Count {
		return &AssertionError{Type: a.Type + " count", Subject: subject, Expected: *a.Count, Actual: l.Count}
	}
	return nil
}

// refStrings renders refs the way scenarios spell them.
func refStrings(refs []model.NodeRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.String()
	}
	return out
}
