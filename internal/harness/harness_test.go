package harness

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dagclosure/internal/store/memstore"
)

func boolPtr(b bool) *bool  { return &b }
func intPtr(n int64) *int64 { return &n }

func TestRun_SetupOnly(t *testing.T) {
	scenario := &Scenario{
		Name:        "setup_only",
		Description: "Chain built in setup",
		Setup:       []string{"a>b", "b>c"},
		Assertions: []Assertion{
			{Type: AssertLink, From: "a", To: "c", Direct: boolPtr(false), Count: intPtr(1)},
			{Type: AssertSize, Count: intPtr(3)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Steps)
	assert.Len(t, result.Closure, 3)
	assert.Equal(t, int64(2), result.Passes)
}

func TestRun_SetupFailureAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_setup",
		Description: "Setup arc closes a cycle",
		Setup:       []string{"a>b", "b>a"},
		Assertions:  []Assertion{{Type: AssertExact}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup[1] b>a")
}

func TestRun_StepOutcomes(t *testing.T) {
	scenario := &Scenario{
		Name:        "outcomes",
		Description: "One step per outcome",
		Setup:       []string{"a>b", "b>c"},
		Steps: []Step{
			{Op: OpConnect, From: "c", To: "d"},
			{Op: OpConnect, From: "b", To: "a", Expect: &Expect{Outcome: OutcomeRejected, Rules: []string{"ReverseCycle"}}},
			{Op: OpDisconnect, From: "a", To: "c", Expect: &Expect{Outcome: OutcomeFatal, Code: "NOT_DESTROYABLE"}},
			{Op: OpDisconnect, From: "x", To: "y", Expect: &Expect{Outcome: OutcomeNotFound}},
		},
		Assertions: []Assertion{{Type: AssertExact}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Steps, 4)
	assert.Equal(t, OutcomeOK, result.Steps[0].Outcome)
	assert.Equal(t, OutcomeRejected, result.Steps[1].Outcome)
	assert.Equal(t, []string{"ReverseCycle"}, result.Steps[1].Rules)
	assert.Equal(t, OutcomeFatal, result.Steps[2].Outcome)
	assert.Equal(t, "NOT_DESTROYABLE", result.Steps[2].Code)
	assert.Equal(t, OutcomeNotFound, result.Steps[3].Outcome)
}

func TestRun_UnexpectedOutcomeFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected",
		Description: "A rejected step without expect",
		Setup:       []string{"a>b"},
		Steps: []Step{
			{Op: OpConnect, From: "a", To: "b"},
		},
		Assertions: []Assertion{{Type: AssertExact}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected ok, got rejected [NoChange]")
}

func TestRun_WrongRuleFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_rule",
		Description: "Rejected for a different rule",
		Setup:       []string{"a>b"},
		Steps: []Step{
			{Op: OpConnect, From: "b", To: "a", Expect: &Expect{Outcome: OutcomeRejected, Rules: []string{"SelfLoop"}}},
		},
		Assertions: []Assertion{{Type: AssertExact}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected rule SelfLoop")
}

func TestRun_ResolveErrorIsRecorded(t *testing.T) {
	scenario := &Scenario{
		Name:        "untyped",
		Description: "Untyped handle in a polymorphic graph",
		Polymorphic: true,
		Steps: []Step{
			{Op: OpConnect, From: "eng", To: "User:ann"},
		},
		Assertions: []Assertion{{Type: AssertExact}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, OutcomeError, result.Steps[0].Outcome)
	assert.Contains(t, result.Steps[0].Error, "polymorphic node requires a type")
}

func TestRunOn_UsesGivenStore(t *testing.T) {
	st := memstore.New()
	defer st.Close()

	scenario := &Scenario{
		Name:        "given_store",
		Description: "Runs on a caller store",
		Setup:       []string{"a>b"},
		Assertions:  []Assertion{{Type: AssertSize, Count: intPtr(1)}},
	}

	result, err := RunOn(context.Background(), st, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Equal(t, 1, st.Len())
}

func TestRun_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	scenario := &Scenario{
		Name:        "logged",
		Description: "Rewiring passes are logged",
		Setup:       []string{"a>b"},
		Assertions:  []Assertion{{Type: AssertExact}},
	}

	_, err := Run(scenario, WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "rewiring pass")
	assert.Contains(t, buf.String(), "pass=pass-1")
}
