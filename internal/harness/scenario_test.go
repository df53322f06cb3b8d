package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	content := `
name: test_scenario
description: "Test scenario for validation"
setup:
  - a>b
steps:
  - op: set_direct
    from: a
    to: b
    direct: false
    expect:
      outcome: rejected
      rules: [UnmakeableLonelyDirect]
assertions:
  - type: link
    from: a
    to: b
    count: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, []string{"a>b"}, scenario.Setup)
	require.Len(t, scenario.Steps, 1)
	assert.Equal(t, OpSetDirect, scenario.Steps[0].Op)
	require.NotNil(t, scenario.Steps[0].Direct)
	assert.False(t, *scenario.Steps[0].Direct)
	assert.Equal(t, OutcomeRejected, scenario.Steps[0].Expect.Outcome)
	require.Len(t, scenario.Assertions, 1)
	assert.Nil(t, scenario.Assertions[0].Direct)
	assert.Equal(t, int64(1), *scenario.Assertions[0].Count)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "unknown field",
			content: `
name: x
description: x
setup: [a>b]
colour: red
assertions: [{type: exact}]
`,
			wantErr: "field colour not found",
		},
		{
			name: "missing name",
			content: `
description: x
setup: [a>b]
assertions: [{type: exact}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: x
setup: [a>b]
assertions: [{type: exact}]
`,
			wantErr: "description is required",
		},
		{
			name: "nothing to run",
			content: `
name: x
description: x
assertions: [{type: exact}]
`,
			wantErr: "setup or steps must be non-empty",
		},
		{
			name: "no assertions",
			content: `
name: x
description: x
setup: [a>b]
`,
			wantErr: "assertions list is required",
		},
		{
			name: "bad arc",
			content: `
name: x
description: x
setup: [ab]
assertions: [{type: exact}]
`,
			wantErr: `setup[0]: arc must look like "from>to"`,
		},
		{
			name: "unknown op",
			content: `
name: x
description: x
steps: [{op: teleport, from: a, to: b}]
assertions: [{type: exact}]
`,
			wantErr: `unknown op "teleport"`,
		},
		{
			name: "set_direct without direct",
			content: `
name: x
description: x
steps: [{op: set_direct, from: a, to: b}]
assertions: [{type: exact}]
`,
			wantErr: "direct is required for set_direct",
		},
		{
			name: "rejected without rules",
			content: `
name: x
description: x
steps: [{op: connect, from: a, to: b, expect: {outcome: rejected}}]
assertions: [{type: exact}]
`,
			wantErr: "rules are required for rejected",
		},
		{
			name: "fatal without code",
			content: `
name: x
description: x
steps: [{op: disconnect, from: a, to: b, expect: {outcome: fatal}}]
assertions: [{type: exact}]
`,
			wantErr: "code is required for fatal",
		},
		{
			name: "path without kind",
			content: `
name: x
description: x
setup: [a>b]
assertions: [{type: path, from: a, to: b}]
`,
			wantErr: "kind must be longest or shortest",
		},
		{
			name: "size without count",
			content: `
name: x
description: x
setup: [a>b]
assertions: [{type: size}]
`,
			wantErr: "non-negative count is required for size",
		},
		{
			name: "link without pair",
			content: `
name: x
description: x
setup: [a>b]
assertions: [{type: link, from: a}]
`,
			wantErr: "from and to are required for link",
		},
		{
			name: "unknown assertion",
			content: `
name: x
description: x
setup: [a>b]
assertions: [{type: vibes}]
`,
			wantErr: `unknown assertion type "vibes"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
