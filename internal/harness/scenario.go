package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is a graph test: setup arcs, mutation steps, then assertions on
// the final closure.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Polymorphic selects typed node references ("type:id").
	Polymorphic bool `yaml:"polymorphic,omitempty"`

	// Setup lists arcs as "from>to", connected before the steps.
	Setup []string `yaml:"setup,omitempty"`

	// Steps are the mutations under test.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final closure.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one engine mutation.
type Step struct {
	Op     string  `yaml:"op"`
	From   string  `yaml:"from"`
	To     string  `yaml:"to"`
	Direct *bool   `yaml:"direct,omitempty"`
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the outcome a step must have.
type Expect struct {
	// Outcome is one of ok, rejected, fatal, not_found.
	Outcome string `yaml:"outcome"`

	// Rules must all be among the violations of a rejected step.
	Rules []string `yaml:"rules,omitempty"`

	// Code is the invariant error code of a fatal step.
	Code string `yaml:"code,omitempty"`
}

// Assertion validates the final closure.
type Assertion struct {
	Type string `yaml:"type"`
	From string `yaml:"from,omitempty"`
	To   string `yaml:"to,omitempty"`

	// Direct and Count constrain a link assertion when set. Count is also
	// the expected record total of a size assertion.
	Direct *bool  `yaml:"direct,omitempty"`
	Count  *int64 `yaml:"count,omitempty"`

	// Kind is longest or shortest for a path assertion.
	Kind  string   `yaml:"kind,omitempty"`
	Nodes []string `yaml:"nodes,omitempty"`
}

// Step operations.
const (
	OpConnect    = "connect"
	OpDisconnect = "disconnect"
	OpSetDirect  = "set_direct"
)

// Step outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFatal    = "fatal"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Assertion type constants.
const (
	AssertLink         = "link"
	AssertNoLink       = "no_link"
	AssertConnected    = "connected"
	AssertNotConnected = "not_connected"
	AssertPath         = "path"
	AssertExact        = "exact"
	AssertSize         = "size"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 && len(s.Setup) == 0 {
		return fmt.Errorf("setup or steps must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, arc := range s.Setup {
		from, to, ok := strings.Cut(arc, ">")
		if !ok || from == "" || to == "" {
			return fmt.Errorf("setup[%d]: arc must look like \"from>to\", got %q", i, arc)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	switch st.Op {
	case OpConnect, OpDisconnect:
	case OpSetDirect:
		if st.Direct == nil {
			return fmt.Errorf("steps[%d]: direct is required for set_direct", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	if st.From == "" || st.To == "" {
		return fmt.Errorf("steps[%d]: from and to are required", index)
	}
	if st.Expect == nil {
		return nil
	}
	switch st.Expect.Outcome {
	case OutcomeOK, OutcomeNotFound:
	case OutcomeRejected:
		if len(st.Expect.Rules) == 0 {
			return fmt.Errorf("steps[%d].expect: rules are required for rejected", index)
		}
	case OutcomeFatal:
		if st.Expect.Code == "" {
			return fmt.Errorf("steps[%d].expect: code is required for fatal", index)
		}
	default:
		return fmt.Errorf("steps[%d].expect: unknown outcome %q", index, st.Expect.Outcome)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	needPair := func() error {
		if a.From == "" || a.To == "" {
			return fmt.Errorf("assertions[%d]: from and to are required for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertLink, AssertNoLink, AssertConnected, AssertNotConnected:
		return needPair()
	case AssertPath:
		if a.Kind != "longest" && a.Kind != "shortest" {
			return fmt.Errorf("assertions[%d]: kind must be longest or shortest", index)
		}
		return needPair()
	case AssertExact:
		return nil
	case AssertSize:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for size", index)
		}
		return nil
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
}
