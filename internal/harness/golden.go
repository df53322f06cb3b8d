package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/dagclosure/internal/model"
)

// Snapshot is the golden form of a scenario result. Record ids are left out
// because they depend on the store.
type Snapshot struct {
	Scenario string         `json:"scenario"`
	Passes   int64          `json:"passes"`
	Steps    []StepRecord   `json:"steps"`
	Closure  []SnapshotLink `json:"closure"`
}

// SnapshotLink is a closure record without its id.
type SnapshotLink struct {
	Ancestor   string `json:"ancestor"`
	Descendant string `json:"descendant"`
	Direct     bool   `json:"direct"`
	Count      int64  `json:"count"`
}

// NewSnapshot builds the snapshot of result.
func NewSnapshot(name string, result *Result) Snapshot {
	s := Snapshot{
		Scenario: name,
		Passes:   result.Passes,
		Steps:    result.Steps,
		Closure:  make([]SnapshotLink, len(result.Closure)),
	}
	if s.Steps == nil {
		s.Steps = []StepRecord{}
	}
	for i, l := range result.Closure {
		s.Closure[i] = snapshotLink(l)
	}
	return s
}

func snapshotLink(l model.Link) SnapshotLink {
	return SnapshotLink{
		Ancestor:   l.Ancestor.String(),
		Descendant: l.Descendant.String(),
		Direct:     l.Direct,
		Count:      l.Count,
	}
}

// Marshal renders s as indented JSON with a trailing newline.
func (s Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(name, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
