package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/herbtrace/ledger/internal/record"
)

// Scenario defines a replayable ledger exercise: a set of nodes, a
// sequence of steps, and the expected admission verdicts. Scenarios run
// against a deterministic clock and id generator so two runs of the
// same file produce identical traces.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description"`

	// Policy is an optional path to a CUE policy file, resolved
	// relative to the scenario file. Empty means the built-in tables.
	Policy string `yaml:"policy,omitempty"`

	// StartTime is the first clock instant, RFC 3339. Defaults to
	// 2025-10-14T09:00:00Z, inside the default harvest seasons.
	StartTime string `yaml:"start_time,omitempty"`

	// Nodes are registered before the first step runs.
	Nodes []NodeSpec `yaml:"nodes"`

	// Steps is the ordered sequence of ledger operations.
	Steps []Step `yaml:"steps"`
}

// NodeSpec registers one participant.
type NodeSpec struct {
	ID       string            `yaml:"id"`
	Role     string            `yaml:"role"`
	Metadata map[string]string `yaml:"metadata,omitempty"`
}

// Step is a tagged union: exactly one of its members is set.
type Step struct {
	Submit     *SubmitStep `yaml:"submit,omitempty"`
	Seal       *SealStep   `yaml:"seal,omitempty"`
	Deactivate string      `yaml:"deactivate,omitempty"`

	// Advance moves the clock forward by a Go duration ("24h") without
	// emitting an instant. Used to cross daily-ceiling day boundaries.
	Advance string `yaml:"advance,omitempty"`
}

// SubmitStep submits one event and checks the admission verdict.
type SubmitStep struct {
	Node string `yaml:"node"`
	Kind string `yaml:"kind"`

	// Payload fields, shape keyed by kind. Numeric values may be
	// written as integers or decimals.
	Payload map[string]any `yaml:"payload"`

	// Expect is "admitted" or "rejected". Defaults to admitted.
	Expect string `yaml:"expect,omitempty"`

	// Rule is the rule expected to fail when Expect is rejected.
	Rule string `yaml:"rule,omitempty"`
}

// SealStep drains the pool into a new block.
type SealStep struct {
	Sealer string `yaml:"sealer"`

	// ExpectEmpty marks a seal that should fail with an empty pool.
	ExpectEmpty bool `yaml:"expect_empty,omitempty"`
}

// Expected verdicts for SubmitStep.Expect.
const (
	ExpectAdmitted = "admitted"
	ExpectRejected = "rejected"
)

// defaultStartTime sits inside every default harvest season window.
var defaultStartTime = time.Date(2025, 10, 14, 9, 0, 0, 0, time.UTC)

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected to catch typos; the policy path is resolved relative to
// the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Policy != "" && !filepath.IsAbs(scenario.Policy) {
		scenario.Policy = filepath.Join(filepath.Dir(path), scenario.Policy)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// startTime returns the parsed start instant or the default.
func (s *Scenario) startTime() (time.Time, error) {
	if s.StartTime == "" {
		return defaultStartTime, nil
	}
	t, err := time.Parse(time.RFC3339, s.StartTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start_time: %w", err)
	}
	return t.UTC(), nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Nodes) == 0 {
		return fmt.Errorf("nodes list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if _, err := s.startTime(); err != nil {
		return err
	}
	if s.Policy != "" {
		if _, err := os.Stat(s.Policy); os.IsNotExist(err) {
			return fmt.Errorf("policy file not found: %s", s.Policy)
		}
	}

	for i, n := range s.Nodes {
		if n.ID == "" {
			return fmt.Errorf("nodes[%d]: id is required", i)
		}
		if !record.Role(n.Role).Valid() {
			return fmt.Errorf("nodes[%d]: unknown role %q", i, n.Role)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	return nil
}

// validateStep checks that exactly one step member is set and that its
// fields are usable.
func validateStep(index int, step *Step) error {
	set := 0
	if step.Submit != nil {
		set++
	}
	if step.Seal != nil {
		set++
	}
	if step.Deactivate != "" {
		set++
	}
	if step.Advance != "" {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of submit, seal, deactivate, advance is required", index)
	}

	switch {
	case step.Submit != nil:
		sub := step.Submit
		if sub.Node == "" {
			return fmt.Errorf("steps[%d].submit: node is required", index)
		}
		if !validKind(sub.Kind) {
			return fmt.Errorf("steps[%d].submit: unknown kind %q", index, sub.Kind)
		}
		if sub.Payload == nil {
			return fmt.Errorf("steps[%d].submit: payload is required", index)
		}
		switch sub.Expect {
		case "", ExpectAdmitted:
		case ExpectRejected:
			if sub.Rule == "" {
				return fmt.Errorf("steps[%d].submit: rule is required when expect is rejected", index)
			}
		default:
			return fmt.Errorf("steps[%d].submit: expect must be %q or %q", index, ExpectAdmitted, ExpectRejected)
		}
	case step.Seal != nil:
		if step.Seal.Sealer == "" {
			return fmt.Errorf("steps[%d].seal: sealer is required", index)
		}
	case step.Advance != "":
		if _, err := time.ParseDuration(step.Advance); err != nil {
			return fmt.Errorf("steps[%d]: invalid advance duration: %w", index, err)
		}
	}
	return nil
}

func validKind(kind string) bool {
	for _, k := range record.Kinds {
		if record.EventKind(kind) == k {
			return true
		}
	}
	return false
}
