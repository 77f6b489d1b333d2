// Package harness replays YAML scenario files against a deterministic
// ledger and compares the resulting traces to golden files. Scenarios
// double as executable documentation of the admission rules.
package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/herbtrace/ledger/internal/engine"
	"github.com/herbtrace/ledger/internal/policy"
	"github.com/herbtrace/ledger/internal/record"
	"github.com/herbtrace/ledger/internal/rules"
)

// TraceEvent is one observed ledger operation. Digests and nonces are
// deliberately absent: the trace records verdicts and ordering, not
// hash material.
type TraceEvent struct {
	Type string `json:"type"` // register, submit, seal, deactivate

	// Register and deactivate.
	Node string `json:"node,omitempty"`
	Role string `json:"role,omitempty"`

	// Submit.
	Kind    string `json:"kind,omitempty"`
	EventID string `json:"event_id,omitempty"`
	Result  string `json:"result,omitempty"` // admitted or rejected
	Rule    string `json:"rule,omitempty"`   // failing rule on rejection

	// Seal.
	Sealer string `json:"sealer,omitempty"`
	Block  int    `json:"block,omitempty"`
	Events int    `json:"events,omitempty"`
}

// Result captures a finished scenario run.
type Result struct {
	Trace  []TraceEvent
	Ledger *engine.Ledger
}

// Run executes a scenario on a fresh in-memory ledger with a manual
// clock and sequential event ids. Steps whose outcome contradicts the
// scenario's expectation fail the run; expected rejections are recorded
// in the trace and execution continues.
func Run(scenario *Scenario) (*Result, error) {
	start, err := scenario.startTime()
	if err != nil {
		return nil, err
	}
	clock := engine.NewManualClock(start, time.Second)

	opts := []engine.Option{
		engine.WithClock(clock),
		engine.WithIDGenerator(engine.NewSequenceGenerator("evt")),
		engine.WithDifficulty(1),
	}
	if scenario.Policy != "" {
		p, err := policy.LoadFile(scenario.Policy)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		opts = append(opts, engine.WithPolicy(p))
	}

	ledger, err := engine.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := &Result{Ledger: ledger}
	for _, n := range scenario.Nodes {
		if _, err := ledger.RegisterNode(n.ID, record.Role(n.Role), "pk-"+n.ID, n.Metadata); err != nil {
			return nil, fmt.Errorf("scenario %s: register %s: %w", scenario.Name, n.ID, err)
		}
		result.Trace = append(result.Trace, TraceEvent{Type: "register", Node: n.ID, Role: n.Role})
	}

	for i, step := range scenario.Steps {
		if err := runStep(ledger, clock, &step, result); err != nil {
			return nil, fmt.Errorf("scenario %s: steps[%d]: %w", scenario.Name, i, err)
		}
	}
	return result, nil
}

func runStep(ledger *engine.Ledger, clock *engine.ManualClock, step *Step, result *Result) error {
	switch {
	case step.Submit != nil:
		return runSubmit(ledger, step.Submit, result)
	case step.Seal != nil:
		return runSeal(ledger, step.Seal, result)
	case step.Deactivate != "":
		if err := ledger.DeactivateNode(step.Deactivate); err != nil {
			return err
		}
		result.Trace = append(result.Trace, TraceEvent{Type: "deactivate", Node: step.Deactivate})
		return nil
	case step.Advance != "":
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return err
		}
		clock.Advance(d)
		return nil
	}
	return fmt.Errorf("empty step")
}

func runSubmit(ledger *engine.Ledger, sub *SubmitStep, result *Result) error {
	payload, err := buildPayload(sub.Kind, sub.Payload)
	if err != nil {
		return err
	}

	event, err := ledger.SubmitEvent(sub.Node, payload)
	trace := TraceEvent{Type: "submit", Node: sub.Node, Kind: sub.Kind}

	if err != nil {
		if sub.Expect != ExpectRejected {
			return fmt.Errorf("unexpected rejection: %w", err)
		}
		var le *record.LedgerError
		if !errors.As(err, &le) || le.Rule != sub.Rule {
			return fmt.Errorf("expected rejection by rule %q, got: %w", sub.Rule, err)
		}
		trace.Result = ExpectRejected
		trace.Rule = le.Rule
		result.Trace = append(result.Trace, trace)
		return nil
	}

	if sub.Expect == ExpectRejected {
		return fmt.Errorf("event %s admitted, expected rejection by rule %q", event.ID, sub.Rule)
	}
	trace.Result = ExpectAdmitted
	trace.EventID = event.ID
	result.Trace = append(result.Trace, trace)
	return nil
}

func runSeal(ledger *engine.Ledger, seal *SealStep, result *Result) error {
	block, err := ledger.SealBlock(context.Background(), seal.Sealer)
	if err != nil {
		if seal.ExpectEmpty && record.IsEmptyPool(err) {
			result.Trace = append(result.Trace, TraceEvent{Type: "seal", Sealer: seal.Sealer, Result: "empty"})
			return nil
		}
		return err
	}
	if seal.ExpectEmpty {
		return fmt.Errorf("block %d sealed, expected empty pool", block.Index)
	}
	result.Trace = append(result.Trace, TraceEvent{
		Type:   "seal",
		Sealer: seal.Sealer,
		Block:  block.Index,
		Events: len(block.Events),
	})
	return nil
}

// buildPayload converts scenario payload fields into the concrete
// payload type for the kind. The YAML map round-trips through JSON so
// numeric fields accept both integer and decimal spellings.
func buildPayload(kind string, fields map[string]any) (record.Payload, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode payload fields: %w", err)
	}
	return record.DecodePayload(record.EventKind(kind), data)
}

// FirstFailedRule extracts the failing rule name from an event outcome.
// Convenience for scenario tests inspecting pending events.
func FirstFailedRule(outcome record.Outcome) string {
	if failure, ok := rules.FirstFailure(outcome); ok {
		return failure.Rule
	}
	return ""
}
