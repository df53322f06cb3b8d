package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/dagclosure/internal/engine"
	"github.com/roach88/dagclosure/internal/model"
	"github.com/roach88/dagclosure/internal/store"
	"github.com/roach88/dagclosure/internal/store/memstore"
	"github.com/roach88/dagclosure/internal/testutil"
	"github.com/roach88/dagclosure/internal/validate"
)

// Harness executes scenarios against one engine.
type Harness struct {
	engine  *engine.Engine
	passIDs *testutil.SequentialPassIDs
}

// Option configures a harness run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes engine logs to l. By default they are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run executes a scenario on a fresh in-memory store.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	st := memstore.New()
	defer st.Close()
	return RunOn(context.Background(), st, scenario, opts...)
}

// RunOn executes a scenario on st. st should be empty.
//
// Execution flow:
// 1. Connect setup arcs (any failure aborts the run)
// 2. Execute steps, checking each against its expectation
// 3. Evaluate assertions against the final closure
// 4. Capture the closure for golden comparison
func RunOn(ctx context.Context, st store.Store, scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	h := &Harness{passIDs: testutil.NewSequentialPassIDs("")}
	h.engine = engine.New(st,
		engine.WithPolymorphic(scenario.Polymorphic),
		engine.WithPassIDs(h.passIDs),
		engine.WithLogger(o.logger),
	)

	for i, arc := range scenario.Setup {
		from, to, _ := strings.Cut(arc, ">")
		if _, err := h.engine.Connect(ctx, from, to); err != nil {
			return nil, fmt.Errorf("setup[%d] %s: %w", i, arc, err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		rec := h.runStep(ctx, step)
		result.Steps = append(result.Steps, rec)
		if msg := checkExpect(step, rec); msg != "" {
			result.AddError(fmt.Sprintf("steps[%d] %s %s>%s: %s", i, step.Op, step.From, step.To, msg))
		}
	}

	for i, a := range scenario.Assertions {
		if err := h.evaluate(ctx, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	closure, err := h.engine.Links(ctx, model.Query{})
	if err != nil {
		return nil, fmt.Errorf("read closure: %w", err)
	}
	result.Closure = closure
	result.Passes = h.passIDs.Count()
	return result, nil
}

func (h *Harness) runStep(ctx context.Context, st Step) StepRecord {
	var err error
	switch st.Op {
	case OpConnect:
		_, err = h.engine.Connect(ctx, st.From, st.To)
	case OpDisconnect:
		err = h.engine.Disconnect(ctx, st.From, st.To)
	case OpSetDirect:
		_, err = h.engine.SetDirect(ctx, st.From, st.To, *st.Direct)
	}
	return record(st, err)
}

func record(st Step, err error) StepRecord {
	rec := StepRecord{Op: st.Op, From: st.From, To: st.To, Outcome: OutcomeOK}
	if err == nil {
		return rec
	}

	var re *validate.RejectedError
	var ie *engine.InvariantError
	switch {
	case errors.As(err, &re):
		rec.Outcome = OutcomeRejected
		for _, r := range re.Rules() {
			rec.Rules = append(rec.Rules, string(r))
		}
	case errors.As(err, &ie):
		rec.Outcome = OutcomeFatal
		rec.Code = string(ie.Code)
	case errors.Is(err, engine.ErrLinkNotFound):
		rec.Outcome = OutcomeNotFound
	default:
		rec.Outcome = OutcomeError
		rec.Error = err.Error()
	}
	return rec
}

// checkExpect returns a failure message, or "" when rec meets the step's
// expectation. A step without expect must succeed.
func checkExpect(st Step, rec StepRecord) string {
	want := Expect{Outcome: OutcomeOK}
	if st.Expect != nil {
		want = *st.Expect
	}

	if rec.Outcome != want.Outcome {
		detail := ""
		switch rec.Outcome {
		case OutcomeRejected:
			detail = fmt.Sprintf(" %v", rec.Rules)
		case OutcomeFatal:
			detail = " " + rec.Code
		case OutcomeError:
			detail = ": " + rec.Error
		}
		return fmt.Sprintf("expected %s, got %s%s", want.Outcome, rec.Outcome, detail)
	}
	for _, r := range want.Rules {
		if !slices.Contains(rec.Rules, r) {
			return fmt.Sprintf("expected rule %s among %v", r, rec.Rules)
		}
	}
	if want.Code != "" && want.Code != rec.Code {
		return fmt.Sprintf("expected code %s, got %s", want.Code, rec.Code)
	}
	return ""
}
